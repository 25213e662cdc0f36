// Package errors provides structured survey errors with user-facing copy.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Respondent input
	CodeValidationFailed    Code = "VALIDATION_FAILED"
	CodeGeocodingUnresolved Code = "GEOCODING_UNRESOLVED"

	// Session lifecycle
	CodeSessionPhaseMismatch Code = "SESSION_PHASE_MISMATCH"
	CodeSessionNotFound      Code = "SESSION_NOT_FOUND"

	// External collaborators
	CodeDataUnavailable   Code = "DATA_UNAVAILABLE"
	CodeUploadFailed      Code = "UPLOAD_FAILED"
	CodePersistenceFailed Code = "PERSISTENCE_FAILED"

	// Storage
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to the status the web adapter responds with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidationFailed, CodeGeocodingUnresolved:
		return http.StatusUnprocessableEntity
	case CodeSessionPhaseMismatch:
		return http.StatusConflict
	case CodeSessionNotFound, CodeNotFound:
		return http.StatusNotFound
	case CodeDataUnavailable, CodePersistenceFailed:
		return http.StatusServiceUnavailable
	case CodeUploadFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
