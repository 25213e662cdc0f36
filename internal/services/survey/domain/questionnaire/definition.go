package questionnaire

import (
	"fmt"
	"slices"
	"strings"
)

// Mode distinguishes rating surveys from upload (procurement) surveys.
type Mode string

const (
	// ModeRating presents catalog images with a stated country.
	ModeRating Mode = "rating"
	// ModeProcurement collects respondent-uploaded images from one country.
	ModeProcurement Mode = "procurement"
)

// Kind is the input type of a field.
type Kind string

const (
	KindChoice   Kind = "choice"
	KindText     Kind = "text"
	KindLocation Kind = "location"
	KindFile     Kind = "file"
)

// DefaultMinPayloadBytes rejects uploads that are almost certainly a failed
// read rather than an image.
const DefaultMinPayloadBytes = 100

// Option is one selectable value of a choice field.
type Option struct {
	Value int    `yaml:"value"`
	Label string `yaml:"label"`
}

// Gate activates a field only while Field holds one of Values.
type Gate struct {
	Field  string `yaml:"field"`
	Values []int  `yaml:"values"`
}

// Allows reports whether choice satisfies the gate.
func (g Gate) Allows(choice Choice) bool {
	v, ok := choice.Value()
	return ok && slices.Contains(g.Values, v)
}

// Field is one question of a survey item.
type Field struct {
	Name     string   `yaml:"name"`
	Kind     Kind     `yaml:"kind"`
	Label    string   `yaml:"label"`
	Help     string   `yaml:"help"`
	Options  []Option `yaml:"options"`
	Required bool     `yaml:"required"`
	Gate     *Gate    `yaml:"gate"`
	// RequireCoordinates makes a location field accept only geocoded or
	// map-picked coordinates, not bare text.
	RequireCoordinates bool `yaml:"require_coordinates"`
}

// HasOption reports whether v is one of the field's option values.
func (f Field) HasOption(v int) bool {
	for _, opt := range f.Options {
		if opt.Value == v {
			return true
		}
	}
	return false
}

// Definition is one deployed survey variant.
type Definition struct {
	ID              string  `yaml:"id"`
	Title           string  `yaml:"title"`
	Intro           string  `yaml:"intro"`
	Mode            Mode    `yaml:"mode"`
	Collection      string  `yaml:"collection"`
	Primary         string  `yaml:"primary"`
	Country         string  `yaml:"country"`
	Continent       string  `yaml:"continent"`
	Slots           int     `yaml:"slots"`
	MaxItems        int     `yaml:"max_items"`
	MinPayloadBytes int     `yaml:"min_payload_bytes"`
	AssetPrefix     string  `yaml:"asset_prefix"`

	// PrivacyOptions, when set, makes the public-release choice part of
	// intake.
	PrivacyOptions []string `yaml:"privacy_options"`
	Fields         []Field  `yaml:"fields"`
}

// Field returns the named field.
func (d Definition) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// RequiresPrivacy reports whether intake must carry a privacy choice.
func (d Definition) RequiresPrivacy() bool {
	return len(d.PrivacyOptions) > 0
}

// HasPrivacyOption reports whether choice is one of the privacy options.
func (d Definition) HasPrivacyOption(choice string) bool {
	return slices.Contains(d.PrivacyOptions, choice)
}

// MinPayload returns the smallest accepted upload size.
func (d Definition) MinPayload() int {
	if d.MinPayloadBytes > 0 {
		return d.MinPayloadBytes
	}
	return DefaultMinPayloadBytes
}

// Copy substitutes {country} and {continent} placeholders in text. For rating
// surveys the country is the item's stated country.
func (d Definition) Copy(text, country string) string {
	if country == "" {
		country = d.Country
	}
	return strings.NewReplacer("{country}", country, "{continent}", d.Continent).Replace(text)
}

// Validate rejects malformed definitions before a session can use them.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("survey id is required")
	}
	switch d.Mode {
	case ModeRating, ModeProcurement:
	default:
		return fmt.Errorf("survey %s: unknown mode %q", d.ID, d.Mode)
	}
	if strings.TrimSpace(d.Collection) == "" {
		return fmt.Errorf("survey %s: collection is required", d.ID)
	}
	if len(d.Fields) == 0 {
		return fmt.Errorf("survey %s: at least one field is required", d.ID)
	}

	seen := make(map[string]Field, len(d.Fields))
	hasFile := false
	for _, f := range d.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("survey %s: field name is required", d.ID)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("survey %s: duplicate field %q", d.ID, f.Name)
		}
		switch f.Kind {
		case KindChoice:
			if len(f.Options) == 0 {
				return fmt.Errorf("survey %s: choice field %q has no options", d.ID, f.Name)
			}
		case KindText, KindLocation:
		case KindFile:
			hasFile = true
		default:
			return fmt.Errorf("survey %s: field %q has unknown kind %q", d.ID, f.Name, f.Kind)
		}
		if f.Gate != nil {
			gating, ok := seen[f.Gate.Field]
			if !ok {
				return fmt.Errorf("survey %s: field %q is gated on %q, which is not an earlier field", d.ID, f.Name, f.Gate.Field)
			}
			if gating.Kind != KindChoice {
				return fmt.Errorf("survey %s: field %q is gated on non-choice field %q", d.ID, f.Name, f.Gate.Field)
			}
			if len(f.Gate.Values) == 0 {
				return fmt.Errorf("survey %s: field %q has an empty gate", d.ID, f.Name)
			}
			for _, v := range f.Gate.Values {
				if !gating.HasOption(v) {
					return fmt.Errorf("survey %s: field %q gate value %d is not an option of %q", d.ID, f.Name, v, f.Gate.Field)
				}
			}
		}
		seen[f.Name] = f
	}

	primary, ok := seen[d.Primary]
	if !ok {
		return fmt.Errorf("survey %s: primary field %q is not defined", d.ID, d.Primary)
	}
	if primary.Kind != KindChoice || primary.Gate != nil {
		return fmt.Errorf("survey %s: primary field %q must be an ungated choice", d.ID, d.Primary)
	}
	if d.Mode == ModeProcurement {
		if !hasFile {
			return fmt.Errorf("survey %s: procurement surveys need a file field", d.ID)
		}
		if d.Slots <= 0 {
			return fmt.Errorf("survey %s: procurement surveys need a positive slot count", d.ID)
		}
		if strings.TrimSpace(d.Country) == "" {
			return fmt.Errorf("survey %s: procurement surveys need a country", d.ID)
		}
	}
	if d.MaxItems < 0 {
		return fmt.Errorf("survey %s: max items must not be negative", d.ID)
	}
	return nil
}
