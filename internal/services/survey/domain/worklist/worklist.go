// Package worklist loads the ordered items a respondent walks through.
package worklist

import (
	"context"

	apperrors "github.com/abhipsabasu/Image-geoprofiling/internal/platform/errors"
)

// PendingUpload is the reference of a procurement slot before a file is
// attached.
const PendingUpload = "pending-upload"

// ErrDataUnavailable marks a worklist that could not be fetched, parsed or
// was empty. Starting a session is impossible without one.
var ErrDataUnavailable = apperrors.New(apperrors.CodeDataUnavailable, "worklist data unavailable")

// WorkItem is one unit of work. Items are immutable once loaded.
type WorkItem struct {
	Index           int
	Reference       string
	ExpectedCountry string
	// Frequency is the remaining quota from the catalog, or 0 when the
	// catalog has no frequency column.
	Frequency int
}

// Source loads a complete worklist or fails.
type Source interface {
	Load(ctx context.Context) ([]WorkItem, error)
}
