package graph

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/chatgraph-go/chatgraph/channels"
	"github.com/chatgraph-go/chatgraph/checkpoint"
	"github.com/chatgraph-go/chatgraph/constants"
	"github.com/chatgraph-go/chatgraph/errors"
	"github.com/chatgraph-go/chatgraph/telemetry"
	"github.com/chatgraph-go/chatgraph/types"
)

// CompiledGraph is a compiled, executable graph. Execution within one thread
// is strictly sequential; independent threads may Invoke concurrently, the
// only shared state being the checkpoint saver, which serializes per thread.
type CompiledGraph struct {
	graph          *StateGraph
	checkpointer   checkpoint.Saver
	recursionLimit int
	logger         *slog.Logger
	telemetry      *telemetry.Provider
}

// Invoke executes the graph from the entry point with the given input and
// returns the final state. If a checkpoint exists for the configured thread,
// its state is restored first so the conversation continues where it left
// off; the input is then merged through the channel reducers and a fresh
// pass over the graph begins.
func (cg *CompiledGraph) Invoke(ctx context.Context, input types.State, config ...*types.RunnableConfig) (types.State, error) {
	rc := pickConfig(config)
	threadID := cg.threadID(rc)

	registry := cg.graph.schema.Copy()
	if err := cg.restoreLatest(ctx, registry, threadID); err != nil {
		return nil, err
	}

	if len(input) > 0 {
		writes := make(map[string][]interface{}, len(input))
		for key, value := range input {
			writes[key] = []interface{}{value}
		}
		if err := registry.UpdateChannels(writes); err != nil {
			return nil, err
		}
	}

	return cg.run(ctx, registry, constants.Start, threadID, rc)
}

// Resume reconstructs an interrupted run from the latest checkpoint and
// continues from its next-node cursor without repeating committed steps.
// The in-flight node is re-executed from its last committed input state, so
// nodes must be safe to re-run.
func (cg *CompiledGraph) Resume(ctx context.Context, threadID string, config ...*types.RunnableConfig) (types.State, error) {
	if cg.checkpointer == nil {
		return nil, &errors.ConfigurationError{Message: "cannot resume without a checkpointer"}
	}

	rc := pickConfig(config)
	rc.Configurable[constants.ConfigKeyThreadID] = threadID
	rc.Configurable[constants.ConfigKeyResuming] = true

	cp, err := cg.loadLatest(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, fmt.Errorf("no checkpoint for thread %s", threadID)
	}

	registry := cg.graph.schema.Copy()
	if err := registry.RestoreFromCheckpoint(cp.State); err != nil {
		return nil, err
	}

	if cp.NextNode == constants.End {
		return registry.GetValues()
	}

	return cg.run(ctx, registry, cp.NextNode, threadID, rc)
}

// GetState returns the latest checkpointed snapshot for a thread, for
// externally inspecting an in-progress or completed run.
func (cg *CompiledGraph) GetState(ctx context.Context, threadID string) (*types.StateSnapshot, error) {
	if cg.checkpointer == nil {
		return nil, &errors.ConfigurationError{Message: "cannot get state without a checkpointer"}
	}

	cp, err := cg.loadLatest(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, nil
	}

	return &types.StateSnapshot{
		Values:    cp.State,
		Next:      cp.NextNode,
		Seq:       cp.Seq,
		CreatedAt: cp.CreatedAt,
	}, nil
}

// GetGraph returns the underlying StateGraph.
func (cg *CompiledGraph) GetGraph() *StateGraph {
	return cg.graph
}

// pickConfig returns the first non-nil config, or a fresh one.
func pickConfig(config []*types.RunnableConfig) *types.RunnableConfig {
	if len(config) > 0 && config[0] != nil {
		rc := config[0]
		if rc.Configurable == nil {
			rc.Configurable = make(map[string]interface{})
		}
		return rc
	}
	return types.NewRunnableConfig()
}

// threadID gets the configured thread identity, or generates one.
func (cg *CompiledGraph) threadID(rc *types.RunnableConfig) string {
	if tid := rc.ThreadID(); tid != "" {
		return tid
	}
	tid := uuid.New().String()
	rc.Configurable[constants.ConfigKeyThreadID] = tid
	return tid
}

// loadLatest fetches the latest checkpoint for a thread.
func (cg *CompiledGraph) loadLatest(ctx context.Context, threadID string) (*checkpoint.Checkpoint, error) {
	start := time.Now()
	cp, err := cg.checkpointer.GetLatest(ctx, threadID)
	if cg.telemetry != nil {
		cg.telemetry.RecordCheckpointLoad(ctx, threadID, start)
	}
	return cp, err
}

// restoreLatest restores channels from the latest checkpoint, if any.
func (cg *CompiledGraph) restoreLatest(ctx context.Context, registry *channels.Registry, threadID string) error {
	if cg.checkpointer == nil {
		return nil
	}
	cp, err := cg.loadLatest(ctx, threadID)
	if err != nil {
		return err
	}
	if cp == nil {
		return nil
	}
	return registry.RestoreFromCheckpoint(cp.State)
}

// run drives the engine state machine from the given cursor to the terminal
// node: Pending(n) -> Running(n) -> apply reducer-merged update -> persist a
// checkpoint tagged with the next node -> Pending(next). Routers evaluate
// strictly on post-update state.
func (cg *CompiledGraph) run(ctx context.Context, registry *channels.Registry, startAt, threadID string, rc *types.RunnableConfig) (types.State, error) {
	limit := cg.recursionLimit
	if rc.RecursionLimit > 0 {
		limit = rc.RecursionLimit
	}

	logger := cg.logger.With(slog.String("thread_id", threadID))
	logger.Debug("run starting", slog.String("start_at", startAt))

	current := startAt
	step := 0

	for current != constants.End {
		if step >= limit {
			return nil, &errors.GraphRecursionError{Limit: limit}
		}

		// Pending -> Running: Start is virtual, everything else executes.
		if current != constants.Start {
			if err := cg.executeStep(ctx, registry, current, threadID, step); err != nil {
				logger.Error("run failed",
					slog.String("node", current),
					slog.String("error", err.Error()))
				return nil, err
			}
		}

		next, err := cg.routeFrom(current, registry)
		if err != nil {
			logger.Error("run failed",
				slog.String("node", current),
				slog.String("error", err.Error()))
			return nil, err
		}

		// Checkpoint tagged with the next node, so a crash here resumes at
		// exactly the step that has not committed yet.
		if cg.checkpointer != nil {
			start := time.Now()
			if _, err := cg.checkpointer.Put(ctx, threadID, registry.CreateCheckpoint(), next); err != nil {
				return nil, err
			}
			if cg.telemetry != nil {
				cg.telemetry.RecordCheckpointSave(ctx, threadID, start)
			}
		}

		current = next
		step++
	}

	logger.Debug("run halted", slog.Int("steps", step))
	return registry.GetValues()
}

// executeStep runs a single node and merges its partial update into state.
func (cg *CompiledGraph) executeStep(ctx context.Context, registry *channels.Registry, name, threadID string, step int) error {
	node, ok := cg.graph.GetNode(name)
	if !ok {
		return &errors.NodeNotFoundError{NodeName: name}
	}

	state, err := registry.GetValues()
	if err != nil {
		return err
	}

	var span trace.Span
	nodeCtx := ctx
	start := time.Now()
	if cg.telemetry != nil {
		nodeCtx, span = cg.telemetry.StartNodeSpan(ctx, name, threadID, step)
	}

	output, err := cg.executeNodeWithRetry(nodeCtx, node, state)

	if cg.telemetry != nil {
		cg.telemetry.EndNodeSpan(ctx, span, name, start, err)
	}
	if err != nil {
		return err
	}

	if len(output) == 0 {
		return nil
	}

	writes := make(map[string][]interface{}, len(output))
	for key, value := range output {
		writes[key] = []interface{}{value}
	}
	return registry.UpdateChannels(writes)
}

// routeFrom resolves the successor of a node against post-update state.
func (cg *CompiledGraph) routeFrom(current string, registry *channels.Registry) (string, error) {
	condEdge, staticNext, ok := cg.graph.successorsOf(current)
	if !ok {
		// Validate guarantees outgoing edges, so this is unreachable for
		// compiled graphs.
		return "", &errors.ConfigurationError{Message: fmt.Sprintf("node %s has no outgoing edge", current)}
	}

	if condEdge == nil {
		return staticNext, nil
	}

	state, err := registry.GetValues()
	if err != nil {
		return "", err
	}

	label := condEdge.Router.Route(state)
	next, ok := condEdge.Mapping[label]
	if !ok {
		return "", &errors.RoutingError{NodeName: current, Label: label}
	}
	return next, nil
}

// executeNodeWithRetry executes a node under its retry policy.
func (cg *CompiledGraph) executeNodeWithRetry(ctx context.Context, node *Node, state types.State) (types.State, error) {
	if node.RetryPolicy == nil {
		output, err := node.Function(ctx, state)
		if err != nil {
			return nil, &errors.NodeExecutionError{NodeName: node.Name, Cause: err}
		}
		return output, nil
	}

	policy := *node.RetryPolicy
	wait := policy.InitialInterval
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		output, err := node.Function(ctx, state)
		if err == nil {
			return output, nil
		}
		lastErr = err

		if attempt == policy.MaxAttempts {
			break
		}
		if policy.RetryOn != nil && !policy.RetryOn(err) {
			break
		}

		sleep := wait
		if policy.Jitter {
			sleep = time.Duration(float64(sleep) * (0.5 + 0.5*rand.Float64()))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}

		wait = time.Duration(float64(wait) * policy.BackoffFactor)
		if wait > policy.MaxInterval {
			wait = policy.MaxInterval
		}
	}

	return nil, &errors.NodeExecutionError{NodeName: node.Name, Cause: lastErr}
}
