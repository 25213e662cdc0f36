package questionnaire

import (
	"fmt"
	"strings"

	apperrors "github.com/abhipsabasu/Image-geoprofiling/internal/platform/errors"
)

// Item is the subset of a work item the validator reads.
type Item struct {
	Index           int
	Reference       string
	ExpectedCountry string
}

// ValidationError lists every missing field of a rejected step, in
// definition order. Invalid names fields that were present but out of bounds.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}

// Fields returns missing then invalid field names.
func (e *ValidationError) Fields() []string {
	return append(append([]string(nil), e.Missing...), e.Invalid...)
}

// Unwrap exposes the coded error so callers can map it with
// apperrors.CodeOf.
func (e *ValidationError) Unwrap() error {
	return apperrors.WithMetadata(
		apperrors.CodeValidationFailed,
		"validation failed",
		map[string]string{"Fields": strings.Join(e.Fields(), ", ")},
	)
}

// Active returns the fields shown for the given raw values, in definition
// order. A gated field is active only when its gating field is itself active
// and rated with one of the gate's values.
func Active(def Definition, values map[string]string) []Field {
	active := make([]Field, 0, len(def.Fields))
	choices := make(map[string]Choice, len(def.Fields))
	for _, f := range def.Fields {
		if f.Gate != nil {
			gating, ok := choices[f.Gate.Field]
			if !ok || !f.Gate.Allows(gating) {
				continue
			}
		}
		if f.Kind == KindChoice {
			choices[f.Name] = ParseChoice(f, values[f.Name])
		}
		active = append(active, f)
	}
	return active
}

// Validate checks answers for item against def. It either returns a complete
// record or a *ValidationError naming every missing field. Participant and
// consent fields are left for the caller to fill.
func Validate(def Definition, item Item, answers Answers) (AnswerRecord, error) {
	record := AnswerRecord{
		ItemIndex:       item.Index,
		ItemReference:   item.Reference,
		ExpectedCountry: item.ExpectedCountry,
		Choices:         map[string]int{},
		Texts:           map[string]string{},
	}
	var missing []string

	for _, f := range Active(def, answers.Values) {
		required := f.Required || f.Name == def.Primary
		switch f.Kind {
		case KindChoice:
			v, ok := ParseChoice(f, answers.Value(f.Name)).Value()
			if ok {
				record.Choices[f.Name] = v
			} else if required {
				missing = append(missing, f.Name)
			}
		case KindText:
			text := strings.TrimSpace(answers.Value(f.Name))
			if text != "" {
				record.Texts[f.Name] = text
			} else if required {
				missing = append(missing, f.Name)
			}
		case KindLocation:
			loc := answers.location(f)
			if loc.Resolved(f.RequireCoordinates) {
				record.Location = loc
			} else if required {
				missing = append(missing, f.Name)
			}
		case KindFile:
			if len(answers.Payload) >= def.MinPayload() {
				record.AssetStatus = AssetPending
			} else if required {
				missing = append(missing, f.Name)
			}
		}
	}

	if len(missing) > 0 {
		return AnswerRecord{}, &ValidationError{Missing: missing}
	}
	return record, nil
}
