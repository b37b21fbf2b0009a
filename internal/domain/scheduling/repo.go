package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AvailabilityRepository persists recurring weekly availability windows.
type AvailabilityRepository interface {
	Create(ctx context.Context, a *Availability) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Availability, error)
	// FindWindow returns the first window for the doctor on the given day
	// name, in insertion order, or ErrNotFound.
	FindWindow(ctx context.Context, doctorID uuid.UUID, dayName string) (*Availability, error)
}

// AppointmentRepository persists appointments and owns the storage half of
// the double-booking guard.
type AppointmentRepository interface {
	// Create inserts a new appointment. A unique-constraint violation on
	// the active-slot index is returned as ErrSlotTaken.
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, meetingLink *string) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Appointment, error)
	ListAll(ctx context.Context, limit, offset int) ([]*Appointment, int, error)
	// CountActiveAt counts PENDING or CONFIRMED appointments occupying the
	// given slot. This check is advisory; the unique index is authoritative.
	CountActiveAt(ctx context.Context, doctorID uuid.UUID, date Date, t TimeOfDay) (int, error)
	// CompleteOverdue promotes every CONFIRMED appointment whose slot is
	// strictly before now to COMPLETED, returning the number updated.
	CompleteOverdue(ctx context.Context, now time.Time) (int64, error)
	// ListConfirmedOn returns the CONFIRMED appointments booked for a date.
	ListConfirmedOn(ctx context.Context, date Date) ([]*Appointment, error)
}
