package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/questionnaire"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/worklist"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/storage"
)

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fakeSink struct {
	mu    sync.Mutex
	calls []storage.Submission
	err   error
}

func (s *fakeSink) UpsertSubmission(_ context.Context, sub storage.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sub)
	return s.err
}

type fakeAssets struct {
	mu    sync.Mutex
	puts  []string
	fail  map[string]int
	bytes map[string]int
}

func (a *fakeAssets) PutAsset(_ context.Context, key string, data []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.puts = append(a.puts, key)
	if status, ok := a.fail[key]; ok {
		return "", &storage.UploadError{Key: key, Status: status}
	}
	if a.bytes == nil {
		a.bytes = map[string]int{}
	}
	a.bytes[key] = len(data)
	return "store://" + key, nil
}

func mustDefinition(t *testing.T, id string) questionnaire.Definition {
	t.Helper()
	def, err := questionnaire.Builtin(id)
	if err != nil {
		t.Fatalf("Builtin(%q): %v", id, err)
	}
	return def
}

func ratingItems(n int) []worklist.WorkItem {
	items := make([]worklist.WorkItem, n)
	for i := range items {
		items[i] = worklist.WorkItem{Index: i, Reference: "https://img.example/" + string(rune('a'+i)) + ".png", ExpectedCountry: "Japan"}
	}
	return items
}

func slotItems(t *testing.T, n int) []worklist.WorkItem {
	t.Helper()
	items, err := worklist.SlotSource{Count: n, Country: "India"}.Load(context.Background())
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	return items
}

func validRating() questionnaire.Answers {
	return questionnaire.Answers{Values: map[string]string{
		"rating":     "0",
		"net_rating": "1",
		"awareness":  "2",
	}}
}

func validUpload(size int) questionnaire.Answers {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	return questionnaire.Answers{
		Values: map[string]string{
			"description": "stepwell",
			"location":    "Ahmedabad",
			"rating":      "1",
		},
		Payload: data,
	}
}

func startedMachine(t *testing.T, def questionnaire.Definition, items []worklist.WorkItem, opts ...Option) *Machine {
	t.Helper()
	m := NewMachine(def, items, append([]Option{WithClock(clock)}, opts...)...)
	intake := Intake{ParticipantID: "pid-1", BirthCountry: "India", ResidenceCountry: "India"}
	if def.RequiresPrivacy() {
		intake.Privacy = def.PrivacyOptions[0]
	}
	if err := m.SubmitIntake(intake); err != nil {
		t.Fatalf("SubmitIntake: %v", err)
	}
	return m
}

func validationMissing(t *testing.T, err error) []string {
	t.Helper()
	var verr *questionnaire.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *questionnaire.ValidationError", err)
	}
	return verr.Missing
}
