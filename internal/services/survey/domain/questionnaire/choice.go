package questionnaire

import (
	"strconv"
	"strings"
)

// NoSelection is the placeholder the presentation layer submits before the
// respondent picks an option.
const NoSelection = "Choose an option"

// Choice is an optional answer to a choice field: either Unanswered or
// Rated with a value drawn from the field's options.
type Choice struct {
	value int
	rated bool
}

// Unanswered returns the empty choice.
func Unanswered() Choice { return Choice{} }

// Rated returns a choice holding v.
func Rated(v int) Choice { return Choice{value: v, rated: true} }

// Value returns the rated value and whether the choice is answered.
func (c Choice) Value() (int, bool) { return c.value, c.rated }

// IsRated reports whether a value was selected.
func (c Choice) IsRated() bool { return c.rated }

func (c Choice) String() string {
	if !c.rated {
		return "unanswered"
	}
	return strconv.Itoa(c.value)
}

// ParseChoice interprets raw form input for field. Empty input, the
// NoSelection placeholder, non-integers and values outside the field's
// options all parse as Unanswered.
func ParseChoice(field Field, raw string) Choice {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == NoSelection {
		return Unanswered()
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return Unanswered()
	}
	if !field.HasOption(v) {
		return Unanswered()
	}
	return Rated(v)
}
