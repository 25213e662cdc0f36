package session

import (
	"maps"
	"slices"
	"time"

	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/questionnaire"
)

// Phase is the lifecycle stage of a session.
type Phase string

const (
	PhaseAwaitingIntake Phase = "awaiting_intake"
	PhaseInProgress     Phase = "in_progress"
	PhaseFinished       Phase = "finished"
)

// PendingAsset is an uploaded file waiting for finalize.
type PendingAsset struct {
	Key       string
	ItemIndex int
	Data      []byte
}

// State is the mutable core of one session. It is only changed by Fold.
type State struct {
	Phase         Phase
	ParticipantID string
	Consent       questionnaire.Consent
	// Position is the index of the next unvalidated item.
	Position int
	// CurrentAnswers keeps the raw input of the last rejected attempt.
	CurrentAnswers questionnaire.Answers
	Committed      []questionnaire.AnswerRecord
	PendingAssets  []PendingAsset
	// Uploaded maps asset keys to the references returned by the store.
	Uploaded    map[string]string
	Persisted   bool
	PersistedAt time.Time
}

// NewState returns the state of a fresh session.
func NewState() State {
	return State{Phase: PhaseAwaitingIntake, Uploaded: map[string]string{}}
}

// clone copies everything Fold may touch. Asset bytes are shared since they
// are never written after enqueueing.
func (s State) clone() State {
	out := s
	out.CurrentAnswers = s.CurrentAnswers.Clone()
	out.Committed = make([]questionnaire.AnswerRecord, len(s.Committed))
	for i, record := range s.Committed {
		out.Committed[i] = record.Clone()
	}
	out.PendingAssets = slices.Clone(s.PendingAssets)
	out.Uploaded = maps.Clone(s.Uploaded)
	if out.Uploaded == nil {
		out.Uploaded = map[string]string{}
	}
	return out
}
