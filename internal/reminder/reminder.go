// Package reminder arms and fires the daily reminder. The scheduler owns a
// single one-shot job: arming cancels any previous job before creating the
// next one, and every firing re-arms for the following day. Delivery goes
// through the notify fanout; outcomes land in the journal and metrics.
package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	ierr "git.home.luguber.info/inful/inventoryd/internal/errors"
	"git.home.luguber.info/inful/inventoryd/internal/inventory"
	"git.home.luguber.info/inful/inventoryd/internal/journal"
	"git.home.luguber.info/inful/inventoryd/internal/logfields"
	"git.home.luguber.info/inful/inventoryd/internal/metrics"
	"git.home.luguber.info/inful/inventoryd/internal/notify"
	"git.home.luguber.info/inful/inventoryd/internal/settings"
)

const deliveryTimeout = 10 * time.Second

// Status is a snapshot of the scheduler for the API.
type Status struct {
	State   State      `json:"state"`
	Time    string     `json:"time,omitempty"`
	NextRun *time.Time `json:"next_run,omitempty"`
}

// Scheduler manages the daily reminder lifecycle.
type Scheduler struct {
	fanout   *notify.Fanout
	settings *settings.Store
	journal  journal.Journal
	recorder metrics.Recorder
	clock    clockwork.Clock

	mu        sync.Mutex
	scheduler gocron.Scheduler
	job       gocron.Job
	state     State
	hour      int
	minute    int
	nextRun   time.Time
}

// New creates a reminder scheduler. journal, recorder and clock may be nil;
// they default to the no-op journal, no-op recorder and the real clock.
func New(fanout *notify.Fanout, st *settings.Store, jnl journal.Journal, rec metrics.Recorder, clock clockwork.Clock) (*Scheduler, error) {
	if jnl == nil {
		jnl = journal.Noop{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	gs, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, ierr.WrapError(err, ierr.CategoryDaemon, "failed to create scheduler").Build()
	}

	return &Scheduler{
		fanout:    fanout,
		settings:  st,
		journal:   jnl,
		recorder:  rec,
		clock:     clock,
		scheduler: gs,
		state:     StateUninitialized,
	}, nil
}

// Start begins the underlying job scheduler.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("Starting reminder scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	slog.Info("Stopping reminder scheduler")
	return s.scheduler.Shutdown()
}

// Initialize moves the scheduler out of the zero state. Idempotent: calling
// it again returns the current state without side effects.
func (s *Scheduler) Initialize(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUninitialized {
		return s.state, nil
	}

	if len(s.fanout.Sinks()) == 0 {
		s.state = StateUnsupported
	} else {
		s.state = StatePermissionDefault
	}
	slog.Info("Reminder scheduler initialized", logfields.SchedulerState(string(s.state)))
	return s.state, nil
}

// RequestPermission probes the configured sinks. At least one reachable sink
// grants permission; a denied request may be retried later.
func (s *Scheduler) RequestPermission(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateUninitialized:
		return s.state, ierr.DaemonError("scheduler is not initialized").Build()
	case StateUnsupported:
		return s.state, ierr.NotificationError("no notification sinks configured").Build()
	case StateIdle, StateScheduled:
		return s.state, nil
	}

	var granted bool
	var lastErr error
	for _, sink := range s.fanout.Sinks() {
		if err := sink.Probe(ctx); err != nil {
			lastErr = err
			slog.Warn("Notification sink probe failed",
				logfields.Sink(sink.Name()), logfields.Error(err))
			continue
		}
		granted = true
	}

	if !granted {
		s.state = StatePermissionDenied
		return s.state, ierr.WrapError(lastErr, ierr.CategoryNotification, "all notification sinks unreachable").Build()
	}

	s.state = StateIdle
	slog.Info("Notification delivery granted", logfields.SchedulerState(string(s.state)))
	return s.state, nil
}

// ScheduleDaily validates the clock time, persists it, and arms a one-shot
// job for the next occurrence. Scheduling again replaces the armed job; two
// reminders are never armed at once.
func (s *Scheduler) ScheduleDaily(ctx context.Context, hour, minute int) error {
	cfg := settings.ReminderConfig{Hour: hour, Minute: minute, Enabled: true}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Granted() {
		return ierr.PermissionError("notification delivery is not granted").
			WithContext("state", string(s.state)).Build()
	}

	if err := s.settings.SetReminder(hour, minute); err != nil {
		return err
	}
	if err := s.armLocked(hour, minute); err != nil {
		return err
	}

	s.state = StateScheduled
	s.recorder.SetReminderArmed(true)
	if err := s.journal.Append(ctx, journal.EntryReminderArmed, "", map[string]any{
		"time":     cfg.TimeOfDay(),
		"next_run": s.nextRun,
	}); err != nil {
		slog.Warn("Failed to journal reminder arming", logfields.Error(err))
	}

	slog.Info("Daily reminder armed",
		logfields.ReminderAt(cfg.TimeOfDay()),
		slog.Time("next_run", s.nextRun))
	return nil
}

// Restore re-arms the reminder persisted in settings, if any. Called once at
// daemon startup after permission has been granted.
func (s *Scheduler) Restore(ctx context.Context) error {
	cfg, ok := s.settings.Reminder()
	if !ok {
		return nil
	}
	return s.ScheduleDaily(ctx, cfg.Hour, cfg.Minute)
}

// Cancel disarms the reminder and clears the persisted time. Safe to call
// when nothing is armed.
func (s *Scheduler) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeJobLocked()
	s.nextRun = time.Time{}

	if err := s.settings.ClearReminder(); err != nil {
		return err
	}
	if s.state == StateScheduled {
		s.state = StateIdle
	}
	s.recorder.SetReminderArmed(false)
	slog.Info("Daily reminder canceled", logfields.SchedulerState(string(s.state)))
	return nil
}

// FireNow delivers a test notification immediately without touching the
// armed job. Like ScheduleDaily it requires granted delivery.
func (s *Scheduler) FireNow(ctx context.Context) error {
	s.mu.Lock()
	if !s.state.Granted() {
		state := s.state
		s.mu.Unlock()
		return ierr.PermissionError("notification delivery is not granted").
			WithContext("state", string(state)).Build()
	}
	s.mu.Unlock()

	return s.fanout.Deliver(ctx, notify.TestNotification(s.clock.Now()))
}

// Status returns a snapshot for the API.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{State: s.state}
	if s.state == StateScheduled {
		st.Time = settings.ReminderConfig{Hour: s.hour, Minute: s.minute}.TimeOfDay()
		next := s.nextRun
		st.NextRun = &next
	}
	return st
}

// NextRun returns the next firing time when a reminder is armed.
func (s *Scheduler) NextRun() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRun, s.state == StateScheduled
}

// armLocked replaces the current job with a one-shot job at the next
// occurrence of hour:minute. The next occurrence is strictly in the future:
// arming at 09:30 for 09:00 fires tomorrow, and the job firing at 21:00
// re-arms for 21:00 the following day.
func (s *Scheduler) armLocked(hour, minute int) error {
	s.removeJobLocked()

	next := nextOccurrence(s.clock.Now(), hour, minute)
	job, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(next)),
		gocron.NewTask(s.fire),
		gocron.WithName("daily-reminder"),
	)
	if err != nil {
		return ierr.WrapError(err, ierr.CategoryDaemon, "failed to arm reminder job").
			WithContext("next_run", next).Build()
	}

	s.job = job
	s.hour = hour
	s.minute = minute
	s.nextRun = next
	return nil
}

func (s *Scheduler) removeJobLocked() {
	if s.job == nil {
		return
	}
	if err := s.scheduler.RemoveJob(s.job.ID()); err != nil {
		slog.Warn("Failed to remove reminder job", logfields.Error(err))
	}
	s.job = nil
}

// fire delivers the daily reminder and re-arms for the following day.
func (s *Scheduler) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	now := s.clock.Now()
	date := inventory.DateKey(now)

	if err := s.fanout.Deliver(ctx, notify.DailyReminder(now)); err != nil {
		slog.Error("Reminder delivery failed", logfields.Date(date), logfields.Error(err))
		s.recorder.IncReminderOutcome(metrics.ReminderFailed)
		if jerr := s.journal.Append(ctx, journal.EntryReminderFailed, date, nil); jerr != nil {
			slog.Warn("Failed to journal reminder failure", logfields.Error(jerr))
		}
	} else {
		slog.Info("Reminder delivered", logfields.Date(date))
		s.recorder.IncReminderOutcome(metrics.ReminderDelivered)
		if jerr := s.journal.Append(ctx, journal.EntryReminderFired, date, nil); jerr != nil {
			slog.Warn("Failed to journal reminder delivery", logfields.Error(jerr))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateScheduled {
		return
	}
	if err := s.armLocked(s.hour, s.minute); err != nil {
		slog.Error("Failed to re-arm daily reminder", logfields.Error(err))
		s.state = StateIdle
		s.recorder.SetReminderArmed(false)
	}
}

// nextOccurrence returns the next hh:mm strictly after now.
func nextOccurrence(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
