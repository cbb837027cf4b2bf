// Package checkpoint provides durable, thread-keyed persistence of run
// state for chatgraph.
//
// A checkpoint is an append-only (thread, sequence, state, next-node) tuple.
// Checkpoints for a thread are totally ordered by sequence number and the
// highest-sequence checkpoint is the authoritative resumption point. A
// failed Put after a node's side effects have occurred means that node may
// be re-executed on crash recovery, so every node must be safe to re-run
// from its last committed input state.
package checkpoint

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Checkpoint is a persisted snapshot of a thread's run.
type Checkpoint struct {
	// ThreadID scopes the conversation this checkpoint belongs to.
	ThreadID string `json:"thread_id"`
	// Seq orders checkpoints within a thread; strictly increasing.
	Seq int64 `json:"seq"`
	// State is the channel-value snapshot after the producing step.
	State map[string]interface{} `json:"state"`
	// NextNode is the cursor: the node the run executes on resume.
	NextNode string `json:"next_node"`
	// CreatedAt is the checkpoint creation time.
	CreatedAt time.Time `json:"created_at"`
}

// Saver is the checkpoint persistence contract.
type Saver interface {
	// GetLatest returns the highest-sequence checkpoint for the thread, or
	// (nil, nil) when the thread has no prior run.
	GetLatest(ctx context.Context, threadID string) (*Checkpoint, error)

	// Put appends a new checkpoint and returns its sequence number. Puts for
	// the same thread are serialized: concurrent writers never produce
	// duplicate sequence numbers or lost updates.
	Put(ctx context.Context, threadID string, state map[string]interface{}, nextNode string) (int64, error)

	// ListThreads enumerates thread identities whose thread_id matches the
	// given suffix filter (typically a calendar date), without loading state.
	ListThreads(ctx context.Context, suffix string) ([]string, error)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes the LIKE wildcards in s so it matches literally. Thread
// identities contain underscores, which LIKE treats as a single-character
// wildcard; queries using this must declare ESCAPE '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// deepCopy copies a checkpointed value so savers never alias caller state.
func deepCopy(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]interface{}); ok {
		return deepCopyMap(m)
	}
	if s, ok := v.([]interface{}); ok {
		result := make([]interface{}, len(s))
		for i, e := range s {
			result[i] = deepCopy(e)
		}
		return result
	}

	// For other types, round-trip through JSON.
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var result interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return v
	}
	return result
}

// deepCopyMap creates a deep copy of a map.
func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(m))
	for k, v := range m {
		result[k] = deepCopy(v)
	}
	return result
}
