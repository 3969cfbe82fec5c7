package submit

import (
	"errors"
	"fmt"

	"pdf-to-word/internal/domain"
)

// ErrMalformedResponse marks a /convert reply that does not match the contract.
var ErrMalformedResponse = errors.New("malformed conversion response")

// User-facing messages for failures the service did not describe itself.
const (
	MessageNetwork  = "Network error. Please check your connection and try again."
	MessageProtocol = "Unexpected response from the conversion service. Please try again."
)

// Error is a submission failure that produced no usable service verdict.
type Error struct {
	Kind   domain.FailureKind
	Op     string
	Status int
	Err    error
}

// Error formats the failure for logs.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s error: %s (status %d): %v", e.Kind, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FailureOutcome normalizes a submission error into a failed Outcome.
// Errors that are not *Error are treated as transport failures.
func FailureOutcome(err error) domain.Outcome {
	kind := domain.FailureNetwork
	var subErr *Error
	if errors.As(err, &subErr) && subErr.Kind != domain.FailureNone {
		kind = subErr.Kind
	}

	message := MessageNetwork
	if kind == domain.FailureProtocol {
		message = MessageProtocol
	}
	return domain.Outcome{
		Succeeded: false,
		Message:   message,
		Kind:      kind,
	}
}
