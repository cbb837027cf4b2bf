package checkpoint

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemorySaver is an in-memory checkpoint saver. Useful for tests and
// single-process runs; per-thread histories are append-only slices guarded
// by a single mutex, which serializes concurrent puts per thread.
type MemorySaver struct {
	mu      sync.RWMutex
	threads map[string][]*Checkpoint
}

// NewMemorySaver creates a new in-memory checkpoint saver.
func NewMemorySaver() *MemorySaver {
	return &MemorySaver{
		threads: make(map[string][]*Checkpoint),
	}
}

// GetLatest returns the highest-sequence checkpoint for a thread.
func (s *MemorySaver) GetLatest(ctx context.Context, threadID string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.threads[threadID]
	if len(history) == 0 {
		return nil, nil
	}

	latest := history[len(history)-1]
	return &Checkpoint{
		ThreadID:  latest.ThreadID,
		Seq:       latest.Seq,
		State:     deepCopyMap(latest.State),
		NextNode:  latest.NextNode,
		CreatedAt: latest.CreatedAt,
	}, nil
}

// Put appends a new checkpoint for a thread.
func (s *MemorySaver) Put(ctx context.Context, threadID string, state map[string]interface{}, nextNode string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.threads[threadID]
	var seq int64 = 1
	if len(history) > 0 {
		seq = history[len(history)-1].Seq + 1
	}

	s.threads[threadID] = append(history, &Checkpoint{
		ThreadID:  threadID,
		Seq:       seq,
		State:     deepCopyMap(state),
		NextNode:  nextNode,
		CreatedAt: time.Now(),
	})

	return seq, nil
}

// ListThreads enumerates thread identities whose id ends with the suffix.
func (s *MemorySaver) ListThreads(ctx context.Context, suffix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, 0)
	for threadID := range s.threads {
		if suffix == "" || strings.HasSuffix(threadID, suffix) {
			result = append(result, threadID)
		}
	}
	sort.Strings(result)
	return result, nil
}

// History returns the full checkpoint history for a thread, oldest first.
func (s *MemorySaver) History(threadID string) []*Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.threads[threadID]
	result := make([]*Checkpoint, len(history))
	copy(result, history)
	return result
}
