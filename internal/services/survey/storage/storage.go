// Package storage defines persistence contracts for finished survey
// sessions and their uploaded assets.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/abhipsabasu/Image-geoprofiling/internal/platform/errors"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/questionnaire"
)

var (
	// ErrNotFound indicates a requested submission or asset is missing.
	ErrNotFound = errors.New("record not found")
)

// Submission is the full response set of one finished session.
type Submission struct {
	Collection    string
	Mode          questionnaire.Mode
	ParticipantID string
	Consent       questionnaire.Consent
	Timestamp     time.Time
	// Fields lists the choice and text field names of the survey so absent
	// answers are persisted as explicit nulls.
	Fields    []string
	Responses []questionnaire.AnswerRecord
}

// SubmissionSink persists finished sessions. Upserts replace any existing
// document for the same collection and participant.
type SubmissionSink interface {
	UpsertSubmission(ctx context.Context, sub Submission) error
}

// AssetStore persists uploaded bytes at a deterministic key and returns a
// durable reference. Writing the same key twice overwrites.
type AssetStore interface {
	PutAsset(ctx context.Context, key string, data []byte) (string, error)
}

// UploadError reports a rejected asset write.
type UploadError struct {
	Key    string
	Status int
	Cause  error
}

func (e *UploadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("upload %s: status %d: %v", e.Key, e.Status, e.Cause)
	}
	return fmt.Sprintf("upload %s: status %d", e.Key, e.Status)
}

// Unwrap exposes the coded error and the cause.
func (e *UploadError) Unwrap() []error {
	coded := apperrors.WithMetadata(apperrors.CodeUploadFailed, "upload failed", map[string]string{
		"Key":    e.Key,
		"Status": fmt.Sprint(e.Status),
	})
	if e.Cause == nil {
		return []error{coded}
	}
	return []error{coded, e.Cause}
}
