package validate

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"pdf-to-word/internal/domain"
)

// MaxUploadSize is the client-side upload limit. The service enforces its own.
const MaxUploadSize = 50 * 1024 * 1024

var (
	ErrNoFileSelected = errors.New("no file selected")
	ErrFileTooLarge   = errors.New("file too large")
)

// Error is a validation rejection carrying a user-facing message.
type Error struct {
	Kind    error
	Message string
	Size    int64
	Limit   int64
}

// Error returns the user-facing message.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap exposes the sentinel kind for errors.Is.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Kind
}

// Validate checks a candidate against the default 50 MiB policy.
func Validate(candidate *domain.FileRef) (domain.FileRef, error) {
	return WithLimit(candidate, MaxUploadSize)
}

// WithLimit checks file presence and size against limit. A size equal to the
// limit passes. A non-positive limit falls back to MaxUploadSize.
func WithLimit(candidate *domain.FileRef, limit int64) (domain.FileRef, error) {
	if limit <= 0 {
		limit = MaxUploadSize
	}
	if candidate == nil {
		return domain.FileRef{}, &Error{
			Kind:    ErrNoFileSelected,
			Message: "Please select a PDF file first",
		}
	}
	if candidate.Size > limit {
		return domain.FileRef{}, &Error{
			Kind:    ErrFileTooLarge,
			Message: fmt.Sprintf("File size exceeds %s limit. Please select a smaller file.", limitLabel(limit)),
			Size:    candidate.Size,
			Limit:   limit,
		}
	}
	return *candidate, nil
}

// limitLabel renders whole-MiB limits the way the upload form labels them.
func limitLabel(limit int64) string {
	const mib = 1024 * 1024
	if limit%mib == 0 {
		return fmt.Sprintf("%dMB", limit/mib)
	}
	return humanize.IBytes(uint64(limit))
}
