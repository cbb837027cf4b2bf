package archive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/chatgraph-go/chatgraph/agent"
	"github.com/chatgraph-go/chatgraph/checkpoint"
	"github.com/chatgraph-go/chatgraph/graph"
	"github.com/chatgraph-go/chatgraph/telemetry"
)

// ThreadFailure records one thread the sweep could not archive.
type ThreadFailure struct {
	ThreadID string
	Err      error
}

// Report summarizes one sweep pass.
type Report struct {
	Date     string
	Threads  int
	Archived int
	Skipped  int
	Failures []ThreadFailure
}

// Sweeper replays a day's completed runs into the message index. One
// thread's failure never aborts the pass; failures are collected into the
// report and the sweep continues.
type Sweeper struct {
	saver     checkpoint.Saver
	indexer   MessageIndexer
	limiter   *rate.Limiter
	logger    *slog.Logger
	telemetry *telemetry.Provider
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweepRateLimit bounds index pushes to n threads per second.
func WithSweepRateLimit(n rate.Limit, burst int) SweeperOption {
	return func(s *Sweeper) {
		s.limiter = rate.NewLimiter(n, burst)
	}
}

// WithSweepLogger sets the sweep logger.
func WithSweepLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

// WithSweepTelemetry enables sweep metrics.
func WithSweepTelemetry(provider *telemetry.Provider) SweeperOption {
	return func(s *Sweeper) {
		s.telemetry = provider
	}
}

// NewSweeper creates a sweeper over a checkpoint saver and an indexer.
func NewSweeper(saver checkpoint.Saver, indexer MessageIndexer, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		saver:   saver,
		indexer: indexer,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SweepYesterday archives the previous calendar day relative to now.
func (s *Sweeper) SweepYesterday(ctx context.Context) (*Report, error) {
	return s.SweepDate(ctx, time.Now().AddDate(0, 0, -1))
}

// SweepDate archives every thread whose identity falls on the given day.
// The returned error is non-nil only when thread enumeration itself fails;
// per-thread failures are reported, not returned.
func (s *Sweeper) SweepDate(ctx context.Context, day time.Time) (*Report, error) {
	suffix := agent.DateSuffix(day)
	report := &Report{Date: day.Format("2006-01-02")}

	threads, err := s.saver.ListThreads(ctx, suffix)
	if err != nil {
		return nil, fmt.Errorf("list threads for %s: %w", report.Date, err)
	}
	report.Threads = len(threads)

	s.logger.Info("archival sweep starting",
		slog.String("date", report.Date),
		slog.Int("threads", len(threads)))

	for _, threadID := range threads {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return report, err
			}
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		n, err := s.sweepThread(ctx, threadID)
		if s.telemetry != nil {
			s.telemetry.RecordSweepThread(ctx, err != nil)
		}
		if err != nil {
			report.Failures = append(report.Failures, ThreadFailure{ThreadID: threadID, Err: err})
			s.logger.Error("thread archival failed",
				slog.String("thread_id", threadID),
				slog.String("error", err.Error()))
			continue
		}
		if n == 0 {
			report.Skipped++
			continue
		}

		report.Archived += n
		if s.telemetry != nil {
			s.telemetry.RecordMessagesArchived(ctx, n)
		}
		s.logger.Info("thread archived",
			slog.String("thread_id", threadID),
			slog.Int("messages", n))
	}

	s.logger.Info("archival sweep finished",
		slog.String("date", report.Date),
		slog.Int("archived", report.Archived),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", len(report.Failures)))

	return report, nil
}

// sweepThread loads a thread's final state and forwards its message log.
func (s *Sweeper) sweepThread(ctx context.Context, threadID string) (int, error) {
	cp, err := s.saver.GetLatest(ctx, threadID)
	if err != nil {
		return 0, fmt.Errorf("load checkpoint: %w", err)
	}
	if cp == nil {
		return 0, fmt.Errorf("no checkpoint for thread %s", threadID)
	}

	messages, err := graph.MessagesFromState(cp.State)
	if err != nil {
		return 0, fmt.Errorf("read messages: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	userID := agent.UserFromThreadID(threadID)
	return s.indexer.IndexMessages(ctx, userID, threadID, messages)
}
