package archive

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SchedulerConfig holds the daily trigger settings.
type SchedulerConfig struct {
	// Hour and Minute of the daily trigger, local time.
	Hour   int
	Minute int
	// GraceWindow permits a delayed tick (process suspend, clock jump) to
	// still run; a tick later than this skips the day instead.
	GraceWindow time.Duration
	Logger      *slog.Logger
}

// DefaultSchedulerConfig triggers daily at 09:15 with a one hour grace window.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Hour:        9,
		Minute:      15,
		GraceWindow: time.Hour,
	}
}

// Scheduler fires the archival sweep once per day at a fixed time.
type Scheduler struct {
	sweeper *Sweeper
	config  SchedulerConfig
	logger  *slog.Logger

	// now is swapped in tests.
	now func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewScheduler creates a scheduler for the sweeper.
func NewScheduler(sweeper *Sweeper, config SchedulerConfig) *Scheduler {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		sweeper: sweeper,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// Start launches the trigger loop. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx)

	s.logger.Info("archival scheduler started",
		slog.Int("hour", s.config.Hour),
		slog.Int("minute", s.config.Minute))
}

// Stop cancels the trigger loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.mu.Unlock()

	cancel()
	<-done
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	for {
		fireAt := s.nextFire(s.now())
		timer := time.NewTimer(fireAt.Sub(s.now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		// A tick can arrive late after a suspend. Within the grace window
		// the run still happens; beyond it the day is skipped so a stale
		// sweep does not fire at an arbitrary hour.
		delay := s.now().Sub(fireAt)
		if s.config.GraceWindow > 0 && delay > s.config.GraceWindow {
			s.logger.Warn("sweep trigger missed grace window, skipping",
				slog.String("scheduled", fireAt.Format(time.RFC3339)),
				slog.String("delay", delay.String()))
			continue
		}

		if _, err := s.sweeper.SweepDate(ctx, fireAt.AddDate(0, 0, -1)); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("scheduled sweep failed", slog.String("error", err.Error()))
		}
	}
}

// nextFire returns the next daily trigger strictly after now.
func (s *Scheduler) nextFire(now time.Time) time.Time {
	fire := time.Date(now.Year(), now.Month(), now.Day(),
		s.config.Hour, s.config.Minute, 0, 0, now.Location())
	if !fire.After(now) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}
