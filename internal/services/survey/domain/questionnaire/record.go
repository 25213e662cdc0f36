package questionnaire

import "maps"

// Consent holds the intake fields attached to every record.
type Consent struct {
	BirthCountry     string
	ResidenceCountry string
	// Privacy is the public-release preference. Empty in rating surveys.
	Privacy string
}

// AssetStatus tracks the upload of a record's file payload.
type AssetStatus string

const (
	AssetNone     AssetStatus = ""
	AssetPending  AssetStatus = "pending"
	AssetUploaded AssetStatus = "uploaded"
	AssetFailed   AssetStatus = "failed"
)

// AnswerRecord is the frozen result of one validated item. It is
// denormalized so each record can be replayed without the session.
type AnswerRecord struct {
	ItemIndex       int
	ItemReference   string
	ExpectedCountry string

	ParticipantID string
	Consent       Consent

	Choices  map[string]int
	Texts    map[string]string
	Location *Location

	AssetKey       string
	AssetReference string
	AssetStatus    AssetStatus
}

// Choice returns the committed value of a choice field.
func (r AnswerRecord) Choice(name string) (int, bool) {
	v, ok := r.Choices[name]
	return v, ok
}

// Clone returns a deep copy of the record.
func (r AnswerRecord) Clone() AnswerRecord {
	out := r
	out.Choices = maps.Clone(r.Choices)
	out.Texts = maps.Clone(r.Texts)
	out.Location = r.Location.clone()
	return out
}
