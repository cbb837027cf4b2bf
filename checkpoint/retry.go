package checkpoint

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	cgerrors "github.com/chatgraph-go/chatgraph/errors"
	"github.com/chatgraph-go/chatgraph/types"
)

// RetrySaver wraps a Saver with exponential-backoff retries at the store
// client boundary. When retries exhaust, the operation fails with a
// PersistenceError and the caller should retry the run later.
type RetrySaver struct {
	inner  Saver
	policy types.RetryPolicy
	logger *slog.Logger
}

// NewRetrySaver wraps a saver with the given retry policy.
func NewRetrySaver(inner Saver, policy types.RetryPolicy, logger *slog.Logger) *RetrySaver {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrySaver{
		inner:  inner,
		policy: policy,
		logger: logger,
	}
}

// GetLatest retries the wrapped GetLatest.
func (s *RetrySaver) GetLatest(ctx context.Context, threadID string) (*Checkpoint, error) {
	var cp *Checkpoint
	err := s.withRetry(ctx, "get_latest", threadID, func() error {
		var err error
		cp, err = s.inner.GetLatest(ctx, threadID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cp, nil
}

// Put retries the wrapped Put.
func (s *RetrySaver) Put(ctx context.Context, threadID string, state map[string]interface{}, nextNode string) (int64, error) {
	var seq int64
	err := s.withRetry(ctx, "put", threadID, func() error {
		var err error
		seq, err = s.inner.Put(ctx, threadID, state, nextNode)
		return err
	})
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// ListThreads retries the wrapped ListThreads.
func (s *RetrySaver) ListThreads(ctx context.Context, suffix string) ([]string, error) {
	var threads []string
	err := s.withRetry(ctx, "list_threads", "", func() error {
		var err error
		threads, err = s.inner.ListThreads(ctx, suffix)
		return err
	})
	if err != nil {
		return nil, err
	}
	return threads, nil
}

// withRetry runs op under the retry policy.
func (s *RetrySaver) withRetry(ctx context.Context, op, threadID string, fn func() error) error {
	var lastErr error
	wait := s.policy.InitialInterval

	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if s.policy.RetryOn != nil && !s.policy.RetryOn(lastErr) {
			break
		}
		if attempt == s.policy.MaxAttempts {
			break
		}

		s.logger.Warn("checkpoint operation failed, retrying",
			slog.String("op", op),
			slog.String("thread_id", threadID),
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()),
		)

		sleep := wait
		if s.policy.Jitter {
			sleep = time.Duration(float64(sleep) * (0.5 + 0.5*rand.Float64()))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}

		wait = time.Duration(float64(wait) * s.policy.BackoffFactor)
		if wait > s.policy.MaxInterval {
			wait = s.policy.MaxInterval
		}
	}

	return &cgerrors.PersistenceError{Op: op, ThreadID: threadID, Cause: lastErr}
}
