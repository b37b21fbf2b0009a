// Package jobs schedules recurring background work: the auto-completion
// sweep for overdue appointments and the daily appointment reminders.
package jobs

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Appointments is the slice of the scheduling service the jobs need.
type Appointments interface {
	CompleteOverdue(ctx context.Context) (int64, error)
	SendDailyReminders(ctx context.Context) (int, error)
}

const (
	// sweepSpec backs up the on-read sweep so overdue appointments are
	// completed even when nobody lists them.
	sweepSpec = "*/15 * * * *"
	// defaultReminderSpec fires once each morning.
	defaultReminderSpec = "0 8 * * *"
)

type Scheduler struct {
	cron         *cron.Cron
	appts        Appointments
	reminderSpec string
	logger       zerolog.Logger
}

func NewScheduler(appts Appointments, reminderSpec string, logger zerolog.Logger) *Scheduler {
	if reminderSpec == "" {
		reminderSpec = defaultReminderSpec
	}
	jobLogger := logger.With().Str("component", "jobs").Logger()
	return &Scheduler{
		cron:         cron.New(cron.WithChain(cron.Recover(cronLogger{jobLogger}))),
		appts:        appts,
		reminderSpec: reminderSpec,
		logger:       jobLogger,
	}
}

// cronLogger adapts zerolog for the cron recovery wrapper. A job that panics
// is logged and skipped instead of taking the process down.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// Start registers the jobs and starts the cron loop. It returns an error only
// when a schedule expression fails to parse.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(sweepSpec, s.runSweep); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.reminderSpec, s.runReminders); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info().Msg("background jobs started")
	return nil
}

// Stop halts the cron loop and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("background jobs stopped")
}

func (s *Scheduler) runSweep() {
	n, err := s.appts.CompleteOverdue(context.Background())
	if err != nil {
		s.logger.Error().Err(err).Msg("auto-completion sweep failed")
		return
	}
	if n > 0 {
		s.logger.Info().Int64("completed", n).Msg("auto-completed overdue appointments")
	}
}

func (s *Scheduler) runReminders() {
	n, err := s.appts.SendDailyReminders(context.Background())
	if err != nil {
		s.logger.Error().Err(err).Msg("daily reminders failed")
		return
	}
	s.logger.Info().Int("appointments", n).Msg("daily reminders sent")
}
