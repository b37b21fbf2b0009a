package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type fakeAppointments struct {
	mu         sync.Mutex
	sweeps     int
	reminders  int
	sweepErr   error
	sweepPanic bool
}

func (f *fakeAppointments) CompleteOverdue(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	if f.sweepPanic {
		panic("sweep blew up")
	}
	return 2, f.sweepErr
}

func (f *fakeAppointments) SendDailyReminders(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reminders++
	return 1, nil
}

func TestScheduler_StartAndStop(t *testing.T) {
	s := NewScheduler(&fakeAppointments{}, "", zerolog.Nop())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
}

func TestScheduler_JobsInvokeService(t *testing.T) {
	appts := &fakeAppointments{}
	s := NewScheduler(appts, "", zerolog.Nop())

	s.runSweep()
	s.runReminders()

	if appts.sweeps != 1 {
		t.Errorf("sweeps = %d, want 1", appts.sweeps)
	}
	if appts.reminders != 1 {
		t.Errorf("reminders = %d, want 1", appts.reminders)
	}
}

func TestScheduler_JobPanicIsRecovered(t *testing.T) {
	appts := &fakeAppointments{sweepPanic: true}
	s := NewScheduler(appts, "", zerolog.Nop())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	// Run every registered job through the cron chain, the way the cron
	// loop would. The panicking sweep must not escape.
	for _, entry := range s.cron.Entries() {
		entry.WrappedJob.Run()
	}

	if appts.sweeps != 1 {
		t.Errorf("sweeps = %d, want 1", appts.sweeps)
	}
	if appts.reminders != 1 {
		t.Errorf("reminders = %d, want 1", appts.reminders)
	}
}

func TestScheduler_SweepErrorIsSwallowed(t *testing.T) {
	appts := &fakeAppointments{sweepErr: errors.New("db down")}
	s := NewScheduler(appts, "", zerolog.Nop())

	s.runSweep()

	if appts.sweeps != 1 {
		t.Errorf("sweeps = %d, want 1", appts.sweeps)
	}
}
