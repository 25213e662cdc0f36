package i18n

import "golang.org/x/text/language"

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeGeocodingUnresolved  = "GEOCODING_UNRESOLVED"
	CodeSessionPhaseMismatch = "SESSION_PHASE_MISMATCH"
	CodeSessionNotFound      = "SESSION_NOT_FOUND"
	CodeDataUnavailable      = "DATA_UNAVAILABLE"
	CodeUploadFailed         = "UPLOAD_FAILED"
	CodePersistenceFailed    = "PERSISTENCE_FAILED"
	CodeNotFound             = "NOT_FOUND"
)

// Progress and status message keys.
const (
	MsgProgress        = "survey.progress"
	MsgUploadSlot      = "survey.upload_slot"
	MsgAssetsUploaded  = "survey.assets_uploaded"
	MsgComplete        = "survey.complete"
	MsgMissingField    = "survey.missing_field"
	MsgLocationFound   = "survey.location_found"
	MsgLocationMissing = "survey.location_missing"
	MsgInvalidField    = "survey.invalid_field"
	MsgNext            = "survey.next"
	MsgStart           = "survey.start"
	MsgFindLocation    = "survey.find_location"
	MsgRetry           = "survey.retry"
	MsgParticipantID   = "intake.participant_id"
	MsgBirthCountry    = "intake.birth_country"
	MsgResidence       = "intake.residence_country"
	MsgPrivacy         = "intake.privacy"
)

var locales = map[language.Tag]map[string]string{
	language.AmericanEnglish: {
		errorKey(CodeValidationFailed):     "Please answer all the questions: {{.Fields}}.",
		errorKey(CodeGeocodingUnresolved):  "We could not find that location. Try a nearby city or landmark.",
		errorKey(CodeSessionPhaseMismatch): "This step is no longer available. Reload the page to continue.",
		errorKey(CodeSessionNotFound):      "Your session has expired. Please start again.",
		errorKey(CodeDataUnavailable):      "The survey could not be loaded. Please try again later.",
		errorKey(CodeUploadFailed):         "Upload of {{.Key}} failed with status {{.Status}}.",
		errorKey(CodePersistenceFailed):    "Your answers could not be saved yet. Please retry.",
		errorKey(CodeNotFound):             "Not found.",

		MsgProgress:        "Image %d of %d",
		MsgUploadSlot:      "Upload image %d",
		MsgAssetsUploaded:  "%d of %d images uploaded",
		MsgComplete:        "Survey complete. Thank you!",
		MsgMissingField:    "Missing answer: %s",
		MsgLocationFound:   "Found: %s (%.6f, %.6f)",
		MsgLocationMissing: "No location selected yet.",
		MsgInvalidField:    "Please check your answer: %s",
		MsgNext:            "Next",
		MsgStart:           "Start survey",
		MsgFindLocation:    "Find location",
		MsgRetry:           "Retry saving",
		MsgParticipantID:   "Prolific ID",
		MsgBirthCountry:    "Country of birth",
		MsgResidence:       "Country of residence",
		MsgPrivacy:         "How may we use your images?",
	},
}
