package session

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/questionnaire"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/worklist"
)

// MaxIntakeLength bounds the participant id and country fields.
const MaxIntakeLength = 24

const (
	rejectionCodePhaseMismatch   = "SESSION_PHASE_MISMATCH"
	rejectionCodeValidation      = "VALIDATION_FAILED"
	rejectionCodeDataUnavailable = "DATA_UNAVAILABLE"
	rejectionCodeAssetNotPending = "ASSET_NOT_PENDING"
	rejectionCodeUnknownCommand  = "COMMAND_UNKNOWN"
)

// Environment is the fixed context a session is decided against.
type Environment struct {
	Definition questionnaire.Definition
	Worklist   []worklist.WorkItem
}

// Decide returns the decision for cmd against state. It never mutates state
// and performs no I/O.
func Decide(state State, env Environment, cmd Command, now func() time.Time) Decision {
	if now == nil {
		now = time.Now
	}
	switch cmd.Type {
	case CommandTypeSubmitIntake:
		return decideIntake(state, env, cmd.Intake, now)
	case CommandTypeSubmitItem:
		return decideItem(state, env, cmd.Answers, now)
	case CommandTypeRecordUpload, CommandTypeRecordUploadFailure:
		return decideUploadOutcome(state, cmd, now)
	case CommandTypeRecordPersisted:
		if state.Phase != PhaseFinished {
			return phaseMismatch(state.Phase, PhaseFinished)
		}
		if state.Persisted {
			return Decision{}
		}
		return Accept(Event{Type: EventTypePersisted, Timestamp: now().UTC()})
	default:
		return Reject(Rejection{
			Code:    rejectionCodeUnknownCommand,
			Message: fmt.Sprintf("unknown command %q", cmd.Type),
		})
	}
}

// validParticipantID accepts ASCII letters, digits, '-' and '_', starting
// with a letter or digit. The id becomes a document id and part of asset
// keys, so path separators and dot segments are excluded.
func validParticipantID(id string) bool {
	for i, r := range id {
		alnum := r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r))
		if alnum || (i > 0 && (r == '-' || r == '_')) {
			continue
		}
		return false
	}
	return id != ""
}

func decideIntake(state State, env Environment, intake Intake, now func() time.Time) Decision {
	if state.Phase != PhaseAwaitingIntake {
		return phaseMismatch(state.Phase, PhaseAwaitingIntake)
	}

	fields := []struct {
		name  string
		value string
	}{
		{name: "participant_id", value: strings.TrimSpace(intake.ParticipantID)},
		{name: "birth_country", value: strings.TrimSpace(intake.BirthCountry)},
		{name: "residence_country", value: strings.TrimSpace(intake.ResidenceCountry)},
	}
	var missing, invalid []string
	for _, f := range fields {
		switch {
		case f.value == "":
			missing = append(missing, f.name)
		case utf8.RuneCountInString(f.value) > MaxIntakeLength:
			invalid = append(invalid, f.name)
		case f.name == "participant_id" && !validParticipantID(f.value):
			invalid = append(invalid, f.name)
		}
	}

	privacy := strings.TrimSpace(intake.Privacy)
	if env.Definition.RequiresPrivacy() {
		switch {
		case privacy == "":
			missing = append(missing, "privacy")
		case !env.Definition.HasPrivacyOption(privacy):
			invalid = append(invalid, "privacy")
		}
	} else {
		privacy = ""
	}

	if len(missing) > 0 || len(invalid) > 0 {
		return Reject(Rejection{
			Code:    rejectionCodeValidation,
			Message: "intake is incomplete",
			Missing: missing,
			Invalid: invalid,
		})
	}
	return Accept(Event{
		Type:          EventTypeIntakeAccepted,
		Timestamp:     now().UTC(),
		ParticipantID: fields[0].value,
		Consent: questionnaire.Consent{
			BirthCountry:     fields[1].value,
			ResidenceCountry: fields[2].value,
			Privacy:          privacy,
		},
	})
}

func decideItem(state State, env Environment, answers questionnaire.Answers, now func() time.Time) Decision {
	if state.Phase != PhaseInProgress {
		return phaseMismatch(state.Phase, PhaseInProgress)
	}
	if len(env.Worklist) == 0 {
		return Reject(Rejection{Code: rejectionCodeDataUnavailable, Message: "worklist is empty"})
	}
	if state.Position >= len(env.Worklist) {
		return Reject(Rejection{
			Code:    rejectionCodePhaseMismatch,
			Message: fmt.Sprintf("position %d is past the end of the worklist", state.Position),
		})
	}

	ts := now().UTC()
	work := env.Worklist[state.Position]
	item := questionnaire.Item{
		Index:           state.Position,
		Reference:       work.Reference,
		ExpectedCountry: work.ExpectedCountry,
	}
	record, err := questionnaire.Validate(env.Definition, item, answers)
	if err != nil {
		rejection := Rejection{Code: rejectionCodeValidation, Message: err.Error()}
		var verr *questionnaire.ValidationError
		if errors.As(err, &verr) {
			rejection.Missing = verr.Missing
			rejection.Invalid = verr.Invalid
		}
		return Decision{
			Events:     []Event{{Type: EventTypeItemRejected, Timestamp: ts, Answers: answers.Clone()}},
			Rejections: []Rejection{rejection},
		}
	}

	record.ParticipantID = state.ParticipantID
	record.Consent = state.Consent
	committed := Event{Type: EventTypeItemCommitted, Timestamp: ts, Record: record}
	if env.Definition.Mode == questionnaire.ModeProcurement && record.AssetStatus == questionnaire.AssetPending {
		key := AssetKey(env.Definition.AssetPrefix, state.ParticipantID, state.Position)
		committed.Record.AssetKey = key
		committed.Asset = &PendingAsset{
			Key:       key,
			ItemIndex: state.Position,
			Data:      append([]byte(nil), answers.Payload...),
		}
	}

	events := []Event{committed}
	if state.Position+1 == len(env.Worklist) {
		events = append(events, Event{Type: EventTypeFinished, Timestamp: ts})
	}
	return Accept(events...)
}

func decideUploadOutcome(state State, cmd Command, now func() time.Time) Decision {
	if state.Phase != PhaseFinished {
		return phaseMismatch(state.Phase, PhaseFinished)
	}
	pending := false
	for _, asset := range state.PendingAssets {
		if asset.Key == cmd.AssetKey {
			pending = true
			break
		}
	}
	if !pending {
		return Reject(Rejection{
			Code:    rejectionCodeAssetNotPending,
			Message: fmt.Sprintf("asset %q is not pending", cmd.AssetKey),
		})
	}
	evt := Event{Type: EventTypeAssetFailed, Timestamp: now().UTC(), AssetKey: cmd.AssetKey}
	if cmd.Type == CommandTypeRecordUpload {
		evt.Type = EventTypeAssetUploaded
		evt.AssetReference = cmd.AssetReference
	}
	return Accept(evt)
}

func phaseMismatch(got, want Phase) Decision {
	return Reject(Rejection{
		Code:    rejectionCodePhaseMismatch,
		Message: fmt.Sprintf("session is %s, want %s", got, want),
	})
}
