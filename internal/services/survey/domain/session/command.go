package session

import (
	"time"

	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/questionnaire"
)

// CommandType identifies a session command.
type CommandType string

const (
	CommandTypeSubmitIntake        CommandType = "survey.submit_intake"
	CommandTypeSubmitItem          CommandType = "survey.submit_item"
	CommandTypeRecordUpload        CommandType = "survey.record_upload"
	CommandTypeRecordUploadFailure CommandType = "survey.record_upload_failure"
	CommandTypeRecordPersisted     CommandType = "survey.record_persisted"
)

// EventType identifies a session event.
type EventType string

const (
	EventTypeIntakeAccepted EventType = "survey.intake_accepted"
	EventTypeItemRejected   EventType = "survey.item_rejected"
	EventTypeItemCommitted  EventType = "survey.item_committed"
	EventTypeFinished       EventType = "survey.finished"
	EventTypeAssetUploaded  EventType = "survey.asset_uploaded"
	EventTypeAssetFailed    EventType = "survey.asset_failed"
	EventTypePersisted      EventType = "survey.persisted"
)

// Intake is the raw consent form.
type Intake struct {
	ParticipantID    string
	BirthCountry     string
	ResidenceCountry string
	Privacy          string
}

// Command is one request to change a session.
type Command struct {
	Type    CommandType
	Intake  Intake
	Answers questionnaire.Answers
	// AssetKey and AssetReference describe upload outcomes.
	AssetKey       string
	AssetReference string
}

// Event is one fact applied by Fold.
type Event struct {
	Type      EventType
	Timestamp time.Time

	ParticipantID string
	Consent       questionnaire.Consent
	Answers       questionnaire.Answers
	Record        questionnaire.AnswerRecord
	Asset         *PendingAsset

	AssetKey       string
	AssetReference string
}

// Rejection captures why a command was declined.
type Rejection struct {
	Code    string
	Message string
	Missing []string
	Invalid []string
}

// Decision is the pure outcome of a command. A rejected item submission
// carries both a rejection and the event that retains the raw input.
type Decision struct {
	Events     []Event
	Rejections []Rejection
}

// Accept returns a decision that emits events.
func Accept(events ...Event) Decision {
	return Decision{Events: append([]Event(nil), events...)}
}

// Reject returns a decision that carries rejections.
func Reject(rejections ...Rejection) Decision {
	return Decision{Rejections: append([]Rejection(nil), rejections...)}
}
