package sqlite

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/questionnaire"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/storage"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "survey.sqlite")
	store, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func submission(pid string, responses int) storage.Submission {
	consent := questionnaire.Consent{BirthCountry: "India", ResidenceCountry: "Kenya"}
	sub := storage.Submission{
		Collection:    "Image_geolocalization",
		Mode:          questionnaire.ModeRating,
		ParticipantID: pid,
		Consent:       consent,
		Timestamp:     time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC),
		Fields:        []string{"rating", "clues"},
	}
	for i := range responses {
		sub.Responses = append(sub.Responses, questionnaire.AnswerRecord{
			ItemIndex:     i,
			ItemReference: "https://img.example/x.png",
			ParticipantID: pid,
			Consent:       consent,
			Choices:       map[string]int{"rating": i},
			Texts:         map[string]string{},
		})
	}
	return sub
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "survey.sqlite")
	for i := range 2 {
		store, err := Open(context.Background(), path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("close %d: %v", i, err)
		}
	}
}

func TestUpsertSubmissionRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.UpsertSubmission(ctx, submission("pid-1", 2)); err != nil {
		t.Fatalf("upsert submission: %v", err)
	}

	got, err := store.GetSubmission(ctx, "Image_geolocalization", "pid-1")
	if err != nil {
		t.Fatalf("get submission: %v", err)
	}
	if got.ResponseCount != 2 {
		t.Fatalf("response_count = %d, want 2", got.ResponseCount)
	}
	if got.Document["prolific_id"] != "pid-1" {
		t.Fatalf("document prolific_id = %v", got.Document["prolific_id"])
	}
	responses, ok := got.Document["responses"].([]any)
	if !ok || len(responses) != 2 {
		t.Fatalf("document responses = %v", got.Document["responses"])
	}
	first := responses[0].(map[string]any)
	if first["clues"] != nil {
		t.Fatalf("clues = %v, want null", first["clues"])
	}
	if !got.SubmittedAt.Equal(time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("submitted_at = %s", got.SubmittedAt)
	}
}

func TestUpsertSubmissionOverwrites(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.UpsertSubmission(ctx, submission("pid-1", 1)); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := store.UpsertSubmission(ctx, submission("pid-1", 3)); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, err := store.GetSubmission(ctx, "Image_geolocalization", "pid-1")
	if err != nil {
		t.Fatalf("get submission: %v", err)
	}
	if got.ResponseCount != 3 {
		t.Fatalf("response_count = %d, want 3", got.ResponseCount)
	}

	var count int
	if err := store.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&count); err != nil {
		t.Fatalf("count submissions: %v", err)
	}
	if count != 1 {
		t.Fatalf("rows = %d, want 1", count)
	}
}

func TestUpsertSubmissionValidates(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	sub := submission("", 1)
	if err := store.UpsertSubmission(context.Background(), sub); err == nil {
		t.Fatal("expected participant id error")
	}
	sub = submission("pid", 1)
	sub.Collection = " "
	if err := store.UpsertSubmission(context.Background(), sub); err == nil {
		t.Fatal("expected collection error")
	}
}

func TestGetSubmissionNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	_, err := store.GetSubmission(context.Background(), "Image_procurement", "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestPutAssetOverwritesByKey(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{1}, 120)...)

	ref, err := store.PutAsset(ctx, "India_images/p_0.png", []byte("first version of the bytes"))
	if err != nil {
		t.Fatalf("put asset: %v", err)
	}
	if ref != "sqlite://assets/India_images/p_0.png" {
		t.Fatalf("reference = %q", ref)
	}
	if _, err := store.PutAsset(ctx, "India_images/p_0.png", png); err != nil {
		t.Fatalf("put asset again: %v", err)
	}

	got, err := store.GetAsset(ctx, ref)
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	if !bytes.Equal(got.Content, png) {
		t.Fatalf("content was not replaced")
	}
	if got.ContentType != "image/png" {
		t.Fatalf("content_type = %q, want image/png", got.ContentType)
	}
}

func TestPutAssetRejectsEmpty(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	_, err := store.PutAsset(context.Background(), "k", nil)
	var uploadErr *storage.UploadError
	if !errors.As(err, &uploadErr) || uploadErr.Status != 400 {
		t.Fatalf("error = %v, want UploadError 400", err)
	}
	if _, err := store.GetAsset(context.Background(), "k"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get error = %v, want ErrNotFound", err)
	}
}
