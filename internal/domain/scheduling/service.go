package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MinAvailabilityMinutes is the minimum length of a single availability
// window.
const MinAvailabilityMinutes = 60

// DoctorRecord is the directory's view of a doctor: enough to resolve
// ownership and verification, nothing more.
type DoctorRecord struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Verified bool
}

// DoctorDirectory resolves doctors for the booking and transition engines.
// Lookups return (nil, nil) when no such doctor exists.
type DoctorDirectory interface {
	LookupDoctor(ctx context.Context, doctorID uuid.UUID) (*DoctorRecord, error)
	LookupOwningDoctor(ctx context.Context, userID uuid.UUID) (*DoctorRecord, error)
}

// MeetingLinks generates video room URLs. Must be idempotent per
// appointment ID.
type MeetingLinks interface {
	MeetingLink(appointmentID string) string
}

// Notifier delivers a notification to a user without ever failing the
// caller's operation.
type Notifier interface {
	Notify(ctx context.Context, recipientID uuid.UUID, title, message, notificationType string)
}

// TxRunner runs a function inside a storage transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	availability AvailabilityRepository
	appointments AppointmentRepository
	directory    DoctorDirectory
	links        MeetingLinks
	notifier     Notifier
	tx           TxRunner
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(
	availability AvailabilityRepository,
	appointments AppointmentRepository,
	directory DoctorDirectory,
	links MeetingLinks,
	notifier Notifier,
	tx TxRunner,
	logger zerolog.Logger,
) *Service {
	return &Service{
		availability: availability,
		appointments: appointments,
		directory:    directory,
		links:        links,
		notifier:     notifier,
		tx:           tx,
		logger:       logger.With().Str("component", "scheduling").Logger(),
		now:          time.Now,
	}
}

// -- Availability --

var dayNames = map[string]bool{
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true,
	"Friday": true, "Saturday": true, "Sunday": true,
}

func capitalizeDay(day string) string {
	if day == "" {
		return day
	}
	return strings.ToUpper(day[:1]) + strings.ToLower(day[1:])
}

// SetAvailability records one availability window per requested day for the
// doctor owned by userID. The owning account must be verified.
func (s *Service) SetAvailability(ctx context.Context, userID uuid.UUID, days []string, start, end TimeOfDay) ([]*Availability, error) {
	doc, err := s.directory.LookupOwningDoctor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("doctor profile %w", ErrNotFound)
	}
	if !doc.Verified {
		return nil, fmt.Errorf("%w: profile must be verified by an admin before setting availability", ErrForbidden)
	}

	if end <= start {
		return nil, invalidRequestf("End time must be strictly after the start time.")
	}
	if int(end-start) < MinAvailabilityMinutes {
		return nil, invalidRequestf("Minimum availability block must be at least %d minutes.", MinAvailabilityMinutes)
	}
	if len(days) == 0 {
		return nil, invalidRequestf("At least one day is required.")
	}

	normalized := make([]string, 0, len(days))
	for _, day := range days {
		name := capitalizeDay(day)
		if !dayNames[name] {
			return nil, invalidRequestf("Unknown day of week: %s", day)
		}
		normalized = append(normalized, name)
	}

	var created []*Availability
	for _, day := range normalized {
		a := &Availability{
			DoctorID:  doc.ID,
			DayOfWeek: day,
			StartTime: start,
			EndTime:   end,
		}
		if err := s.availability.Create(ctx, a); err != nil {
			return nil, err
		}
		created = append(created, a)
	}
	return created, nil
}

// DoctorAvailability returns a verified doctor's windows.
func (s *Service) DoctorAvailability(ctx context.Context, doctorID uuid.UUID) ([]*Availability, error) {
	doc, err := s.directory.LookupDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("doctor %w", ErrNotFound)
	}
	if !doc.Verified {
		return nil, fmt.Errorf("%w: this doctor is not verified yet", ErrForbidden)
	}
	return s.availability.ListByDoctor(ctx, doctorID)
}

// -- Booking Engine --

// BookingInput carries a booking request.
type BookingInput struct {
	DoctorID uuid.UUID
	Date     Date
	Time     TimeOfDay
	Type     string
}

// RequestBooking validates a requested slot and creates a PENDING
// appointment. Validation short-circuits on the first failure, in a fixed
// order: past check, doctor lookup, self-booking, verification, day window,
// time window, slot conflict.
//
// The conflict pre-check is advisory. The unique index over active statuses
// is authoritative: a constraint violation on insert is mapped to the same
// ErrSlotTaken a pre-detected conflict produces.
func (s *Service) RequestBooking(ctx context.Context, patientID uuid.UUID, in BookingInput) (*Appointment, error) {
	if in.Type == "" {
		in.Type = TypeInPerson
	}
	if in.Type != TypeInPerson && in.Type != TypeVirtual {
		return nil, invalidRequestf("Unknown appointment type: %s", in.Type)
	}

	now := s.now()
	today := DateOf(now)
	if in.Date.Before(today) || (in.Date.Equal(today) && in.Time < TimeOfDayFrom(now)) {
		return nil, invalidRequestf("Cannot book an appointment in the past.")
	}

	doc, err := s.directory.LookupDoctor(ctx, in.DoctorID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("doctor %w", ErrNotFound)
	}
	if doc.UserID == patientID {
		return nil, invalidRequestf("You cannot book an appointment with yourself.")
	}
	if !doc.Verified {
		return nil, invalidRequestf("This doctor is not verified yet.")
	}

	dayName := in.Date.Weekday()
	window, err := s.availability.FindWindow(ctx, in.DoctorID, dayName)
	if err != nil {
		if isNotFound(err) {
			return nil, invalidRequestf("Doctor is not available on %ss", dayName)
		}
		return nil, err
	}
	if !window.Contains(in.Time) {
		return nil, invalidRequestf("Doctor is only available between %s and %s", window.StartTime, window.EndTime)
	}

	appt := &Appointment{
		PatientID: patientID,
		DoctorID:  in.DoctorID,
		Date:      in.Date,
		Time:      in.Time,
		Status:    StatusPending,
		Type:      in.Type,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		count, err := s.appointments.CountActiveAt(ctx, in.DoctorID, in.Date, in.Time)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrSlotTaken
		}
		return s.appointments.Create(ctx, appt)
	})
	if err != nil {
		return nil, err
	}

	slot := fmt.Sprintf("%s at %s", appt.Date, appt.Time)
	s.notifier.Notify(ctx, patientID,
		"Booking Requested",
		fmt.Sprintf("Your appointment request for %s is pending confirmation.", slot),
		"INFO")
	s.notifier.Notify(ctx, doc.UserID,
		"New Booking Request",
		fmt.Sprintf("You have a new booking request for %s.", slot),
		"INFO")

	return appt, nil
}

// -- Status Transition Engine --

// callerRole is the result of resolving the caller against the appointment's
// parties. Resolved once, consumed once by the transition rules.
type callerRole int

const (
	callerUnauthorized callerRole = iota
	callerPatient
	callerDoctor
)

func (s *Service) resolveCaller(ctx context.Context, appt *Appointment, userID uuid.UUID) (callerRole, error) {
	if appt.PatientID == userID {
		return callerPatient, nil
	}
	doc, err := s.directory.LookupOwningDoctor(ctx, userID)
	if err != nil {
		return callerUnauthorized, err
	}
	if doc != nil && doc.ID == appt.DoctorID {
		return callerDoctor, nil
	}
	return callerUnauthorized, nil
}

// UpdateStatus applies the status state machine for the appointment, keyed
// by whether the caller is the patient-of-record or the doctor-of-record.
func (s *Service) UpdateStatus(ctx context.Context, appointmentID, userID uuid.UUID, requested string) (*Appointment, error) {
	if !ValidStatus(requested) {
		return nil, invalidRequestf("Unknown status: %s", requested)
	}

	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("appointment %w", ErrNotFound)
		}
		return nil, err
	}

	role, err := s.resolveCaller(ctx, appt, userID)
	if err != nil {
		return nil, err
	}

	switch role {
	case callerPatient:
		if requested != StatusCancelled {
			return nil, invalidTransitionf("Patients may only cancel appointments.")
		}
		if appt.Status != StatusPending {
			return nil, invalidTransitionf("Appointment is already %s and can no longer be cancelled.", appt.Status)
		}
	case callerDoctor:
		if TerminalStatus(appt.Status) {
			return nil, invalidTransitionf("Appointment is already %s, cannot be changed.", appt.Status)
		}
		legal := (appt.Status == StatusPending && (requested == StatusConfirmed || requested == StatusRejected)) ||
			(appt.Status == StatusConfirmed && requested == StatusCompleted)
		if !legal {
			return nil, invalidTransitionf("Cannot change status from %s to %s.", appt.Status, requested)
		}
	default:
		return nil, fmt.Errorf("%w for this appointment", ErrForbidden)
	}

	var meetingLink *string
	if requested == StatusConfirmed && appt.Type == TypeVirtual {
		link := s.links.MeetingLink(appt.ID.String())
		meetingLink = &link
	}

	if err := s.appointments.UpdateStatus(ctx, appt.ID, requested, meetingLink); err != nil {
		return nil, err
	}
	appt.Status = requested
	if meetingLink != nil {
		appt.MeetingLink = meetingLink
	}

	s.notifyTransition(ctx, appt, role)
	return appt, nil
}

// notifyTransition emits the post-transition notification keyed by who acted
// and the new status. The COMPLETED transition is silent.
func (s *Service) notifyTransition(ctx context.Context, appt *Appointment, role callerRole) {
	slot := fmt.Sprintf("%s at %s", appt.Date, appt.Time)

	switch {
	case role == callerPatient && appt.Status == StatusCancelled:
		doc, err := s.directory.LookupDoctor(ctx, appt.DoctorID)
		if err != nil || doc == nil {
			s.logger.Warn().Err(err).Str("doctor_id", appt.DoctorID.String()).
				Msg("cannot resolve doctor for cancellation notification")
			return
		}
		s.notifier.Notify(ctx, doc.UserID,
			"Appointment Cancelled",
			fmt.Sprintf("The patient cancelled the appointment on %s.", slot),
			"WARNING")
	case role == callerDoctor && appt.Status == StatusConfirmed:
		s.notifier.Notify(ctx, appt.PatientID,
			"Appointment Confirmed",
			fmt.Sprintf("Your appointment on %s has been confirmed.", slot),
			"SUCCESS")
	case role == callerDoctor && appt.Status == StatusRejected:
		s.notifier.Notify(ctx, appt.PatientID,
			"Appointment Declined",
			fmt.Sprintf("Your appointment request for %s was declined.", slot),
			"WARNING")
	}
}

// -- Reads and Sweep --

// CompleteOverdue promotes stale CONFIRMED appointments to COMPLETED. It is
// idempotent and silent.
func (s *Service) CompleteOverdue(ctx context.Context) (int64, error) {
	return s.appointments.CompleteOverdue(ctx, s.now())
}

// SendDailyReminders notifies both parties of every CONFIRMED appointment
// booked for today. It returns the number of appointments reminded.
func (s *Service) SendDailyReminders(ctx context.Context) (int, error) {
	today := DateOf(s.now())
	appts, err := s.appointments.ListConfirmedOn(ctx, today)
	if err != nil {
		return 0, err
	}

	for _, appt := range appts {
		s.notifier.Notify(ctx, appt.PatientID,
			"Appointment Reminder",
			fmt.Sprintf("You have an appointment today at %s.", appt.Time),
			"INFO")

		doc, err := s.directory.LookupDoctor(ctx, appt.DoctorID)
		if err != nil || doc == nil {
			s.logger.Warn().Err(err).Str("doctor_id", appt.DoctorID.String()).
				Msg("cannot resolve doctor for reminder")
			continue
		}
		s.notifier.Notify(ctx, doc.UserID,
			"Appointment Reminder",
			fmt.Sprintf("You have an appointment today at %s.", appt.Time),
			"INFO")
	}
	return len(appts), nil
}

// ListForCaller returns the caller's appointments ordered by date then time,
// both descending. The sweep runs first as a best-effort staleness
// correction; its failure does not fail the read.
func (s *Service) ListForCaller(ctx context.Context, userID uuid.UUID, role string) ([]*Appointment, error) {
	if n, err := s.CompleteOverdue(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("auto-completion sweep failed")
	} else if n > 0 {
		s.logger.Debug().Int64("completed", n).Msg("auto-completed overdue appointments")
	}

	if role == "doctor" {
		doc, err := s.directory.LookupOwningDoctor(ctx, userID)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			return s.appointments.ListByDoctor(ctx, doc.ID)
		}
	}
	return s.appointments.ListByPatient(ctx, userID)
}

// ListAll returns every appointment for the admin surface.
func (s *Service) ListAll(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	if _, err := s.CompleteOverdue(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("auto-completion sweep failed")
	}
	return s.appointments.ListAll(ctx, limit, offset)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
