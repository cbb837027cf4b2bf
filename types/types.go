// Package types provides core types for chatgraph.
package types

import (
	"context"
	"time"
)

// State is the shared key-value state threaded through every node.
type State = map[string]interface{}

// NodeFunc is the contract every processing step satisfies: consume the
// current state, produce a partial update. Keys absent from the returned
// map are untouched.
type NodeFunc func(ctx context.Context, state State) (State, error)

// RouterFunc is a pure function of state that selects the next route label.
// Routers must not perform side effects.
type RouterFunc func(state State) string

// ReducerFunc merges an update into an existing channel value.
type ReducerFunc func(existing, update interface{}) (interface{}, error)

// RunPhase is the run-level state of the engine for a single thread.
type RunPhase string

const (
	// PhasePending means the engine is about to execute the named node.
	PhasePending RunPhase = "pending"
	// PhaseRunning means the named node is executing.
	PhaseRunning RunPhase = "running"
	// PhaseHalted means the run reached the terminal node.
	PhaseHalted RunPhase = "halted"
	// PhaseFailed means the run stopped on an unrecoverable error.
	PhaseFailed RunPhase = "failed"
)

// RetryPolicy configures retrying nodes.
type RetryPolicy struct {
	// InitialInterval is the amount of time that must elapse before the first retry occurs.
	InitialInterval time.Duration
	// BackoffFactor is the multiplier by which the interval increases after each retry.
	BackoffFactor float64
	// MaxInterval is the maximum amount of time that may elapse between retries.
	MaxInterval time.Duration
	// MaxAttempts is the maximum number of attempts to make before giving up, including the first.
	MaxAttempts int
	// Jitter indicates whether to add random jitter to the interval between retries.
	Jitter bool
	// RetryOn is a function that returns true for errors that should trigger a retry.
	RetryOn func(error) bool
}

// DefaultRetryPolicy returns a default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 500 * time.Millisecond,
		BackoffFactor:   2.0,
		MaxInterval:     30 * time.Second,
		MaxAttempts:     3,
		Jitter:          true,
		RetryOn:         DefaultRetryOn,
	}
}

// DefaultRetryOn is the default retry condition function.
func DefaultRetryOn(err error) bool {
	return true
}

// RunnableConfig carries per-invocation configuration into a run.
type RunnableConfig struct {
	// Configurable holds invocation-scoped values such as thread_id and user_id.
	Configurable map[string]interface{}
	// RecursionLimit overrides the compiled graph's step limit when > 0.
	RecursionLimit int
	// Tags for tracing.
	Tags []string
}

// NewRunnableConfig creates an empty RunnableConfig.
func NewRunnableConfig() *RunnableConfig {
	return &RunnableConfig{
		Configurable: make(map[string]interface{}),
	}
}

// WithThreadID sets the thread identity and returns the config for chaining.
func (rc *RunnableConfig) WithThreadID(threadID string) *RunnableConfig {
	if rc.Configurable == nil {
		rc.Configurable = make(map[string]interface{})
	}
	rc.Configurable["thread_id"] = threadID
	return rc
}

// ThreadID returns the configured thread identity, or "".
func (rc *RunnableConfig) ThreadID() string {
	if rc == nil || rc.Configurable == nil {
		return ""
	}
	if tid, ok := rc.Configurable["thread_id"].(string); ok {
		return tid
	}
	return ""
}

// StateSnapshot is a read-only view of a thread's latest persisted state.
type StateSnapshot struct {
	// Values are the checkpointed channel values.
	Values map[string]interface{}
	// Next is the name of the node the run would execute on resume.
	Next string
	// Seq is the checkpoint sequence number.
	Seq int64
	// CreatedAt is the checkpoint creation time.
	CreatedAt time.Time
}
