package scheduling

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers absent doctors and appointments. Wrap it to name
	// the missing thing: fmt.Errorf("doctor %w", ErrNotFound).
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the caller is neither the patient-of-record nor
	// the doctor-of-record, or lacks the required verification.
	ErrForbidden = errors.New("not authorized")

	// ErrSlotTaken is returned both by the advisory pre-check and by the
	// storage constraint when a booking race is lost.
	ErrSlotTaken = errors.New("This time slot is already booked.")
)

// InvalidRequestError reports a failed booking or availability precondition
// with a user-readable reason.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string { return e.Reason }

func invalidRequestf(format string, args ...interface{}) error {
	return &InvalidRequestError{Reason: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError reports an illegal appointment status change.
type InvalidTransitionError struct {
	Reason string
}

func (e *InvalidTransitionError) Error() string { return e.Reason }

func invalidTransitionf(format string, args ...interface{}) error {
	return &InvalidTransitionError{Reason: fmt.Sprintf(format, args...)}
}
