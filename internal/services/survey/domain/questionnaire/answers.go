package questionnaire

import (
	"maps"
	"math"
	"strings"
)

// Location is a place the respondent entered, optionally resolved to
// coordinates by a geocoder or a map pick.
type Location struct {
	Text string
	Lat  *float64
	Lng  *float64
	Name string
}

// ValidCoordinates reports whether lat and lng are finite and lie within
// [-90, 90] and [-180, 180].
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return math.Abs(lat) <= 90 && math.Abs(lng) <= 180
}

// HasCoordinates reports whether both coordinates are set and valid.
func (l *Location) HasCoordinates() bool {
	return l != nil && l.Lat != nil && l.Lng != nil && ValidCoordinates(*l.Lat, *l.Lng)
}

// Resolved reports whether the location satisfies a required location
// field.
func (l *Location) Resolved(requireCoordinates bool) bool {
	if l == nil {
		return false
	}
	if l.HasCoordinates() {
		return true
	}
	return !requireCoordinates && strings.TrimSpace(l.Text) != ""
}

func (l *Location) clone() *Location {
	if l == nil {
		return nil
	}
	out := *l
	if l.Lat != nil {
		lat := *l.Lat
		out.Lat = &lat
	}
	if l.Lng != nil {
		lng := *l.Lng
		out.Lng = &lng
	}
	return &out
}

// Answers is the raw input for one step as captured by the presentation
// layer.
type Answers struct {
	Values   map[string]string
	Payload  []byte
	Location *Location
}

// Value returns the raw value for name, or "".
func (a Answers) Value(name string) string {
	if a.Values == nil {
		return ""
	}
	return a.Values[name]
}

// Clone returns a deep copy so retained input cannot be mutated by the
// caller after submission.
func (a Answers) Clone() Answers {
	out := Answers{
		Values:   maps.Clone(a.Values),
		Location: a.Location.clone(),
	}
	if a.Payload != nil {
		out.Payload = append([]byte(nil), a.Payload...)
	}
	return out
}

// location merges the free-text value of a location field with any
// resolved coordinates.
func (a Answers) location(field Field) *Location {
	text := strings.TrimSpace(a.Value(field.Name))
	if a.Location == nil {
		if text == "" {
			return nil
		}
		return &Location{Text: text}
	}
	loc := a.Location.clone()
	if strings.TrimSpace(loc.Text) == "" {
		loc.Text = text
	}
	if !loc.HasCoordinates() {
		loc.Lat, loc.Lng, loc.Name = nil, nil, ""
		if strings.TrimSpace(loc.Text) == "" {
			return nil
		}
	}
	return loc
}
