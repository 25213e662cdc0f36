package session

import (
	"slices"

	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/questionnaire"
)

// Fold applies one event to state and returns the result. Callers pass a
// copy when the original must stay untouched.
func Fold(state State, evt Event) State {
	switch evt.Type {
	case EventTypeIntakeAccepted:
		state.Phase = PhaseInProgress
		state.ParticipantID = evt.ParticipantID
		state.Consent = evt.Consent
	case EventTypeItemRejected:
		state.CurrentAnswers = evt.Answers
	case EventTypeItemCommitted:
		state.Committed = append(state.Committed, evt.Record)
		if evt.Asset != nil {
			state.PendingAssets = append(state.PendingAssets, *evt.Asset)
		}
		state.CurrentAnswers = questionnaire.Answers{}
		state.Position++
	case EventTypeFinished:
		state.Phase = PhaseFinished
	case EventTypeAssetUploaded:
		if state.Uploaded == nil {
			state.Uploaded = map[string]string{}
		}
		state.Uploaded[evt.AssetKey] = evt.AssetReference
		state.PendingAssets = slices.DeleteFunc(state.PendingAssets, func(a PendingAsset) bool {
			return a.Key == evt.AssetKey
		})
		setAsset(state.Committed, evt.AssetKey, evt.AssetReference, questionnaire.AssetUploaded)
	case EventTypeAssetFailed:
		setAsset(state.Committed, evt.AssetKey, "", questionnaire.AssetFailed)
	case EventTypePersisted:
		state.Persisted = true
		state.PersistedAt = evt.Timestamp
		state.PendingAssets = nil
	}
	return state
}

func setAsset(records []questionnaire.AnswerRecord, key, reference string, status questionnaire.AssetStatus) {
	for i := range records {
		if records[i].AssetKey != key {
			continue
		}
		records[i].AssetReference = reference
		records[i].AssetStatus = status
	}
}
