// Package scheduler runs the nightly daily-story digest on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DigestFunc produces one digest. It receives the time the job fired.
type DigestFunc func(ctx context.Context, at time.Time) error

// Scheduler manages scheduled jobs.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	spec   string
	digest DigestFunc
	log    *slog.Logger
	now    func() time.Time
}

// New creates a scheduler firing on spec in loc.
func New(spec string, loc *time.Location, log *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		ctx:    ctx,
		cancel: cancel,
		spec:   spec,
		log:    log,
		now:    func() time.Time { return time.Now().In(loc) },
	}
}

// SetDigestFunction sets the job run on each tick.
func (s *Scheduler) SetDigestFunction(f DigestFunc) {
	s.digest = f
}

// Start registers the digest and starts the cron loop. Without a digest
// function it does nothing.
func (s *Scheduler) Start() error {
	if s.digest == nil {
		s.log.Warn("digest function not set, scheduler will not run")
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return fmt.Errorf("schedule digest %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.log.Info("scheduler started", "schedule", s.spec)
	return nil
}

func (s *Scheduler) run() {
	at := s.now()
	s.log.Info("digest triggered", "at", at)
	if err := s.digest(s.ctx, at); err != nil {
		s.log.Error("digest failed", "err", err)
	}
}

// Next returns the next time the digest fires, or the zero time when nothing
// is scheduled.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop waits for a running job to finish and cancels its context.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.log.Info("scheduler stopped")
}

// IsRunning reports whether a job is registered.
func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
