// Package chatgraph routes conversational messages through a graph of
// processing stages with durable, resumable checkpointing.
//
// A graph is a set of named nodes over a shared state, connected by static
// and data-dependent edges. Every state key is declared as a channel with an
// explicit merge rule, the engine persists a checkpoint after each step, and
// a run keyed by a stable thread identity can be resumed from the exact
// point it left off.
//
// Basic usage:
//
//	import (
//	    "context"
//
//	    "github.com/chatgraph-go/chatgraph"
//	    "github.com/chatgraph-go/chatgraph/types"
//	)
//
//	g := chatgraph.NewStateGraph()
//	g.AddChannel("query")
//	g.AddChannel("response")
//	g.AddMessagesChannel()
//
//	g.AddNode("assistant", func(ctx context.Context, state types.State) (types.State, error) {
//	    return types.State{"response": "hello"}, nil
//	})
//	g.AddEdge(chatgraph.Start, "assistant")
//	g.AddEdge("assistant", chatgraph.End)
//
//	compiled, err := g.Compile(chatgraph.WithCheckpointer(chatgraph.NewMemorySaver()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	config := types.NewRunnableConfig().WithThreadID("alice_2026-08-31")
//	result, err := compiled.Invoke(context.Background(), types.State{"query": "hi"}, config)
//
// The agent package builds the full conversational pipeline on top of this
// engine, and the archive package replays completed runs into a secondary
// index.
package chatgraph

import (
	"github.com/chatgraph-go/chatgraph/channels"
	"github.com/chatgraph-go/chatgraph/checkpoint"
	"github.com/chatgraph-go/chatgraph/constants"
	"github.com/chatgraph-go/chatgraph/errors"
	"github.com/chatgraph-go/chatgraph/graph"
	"github.com/chatgraph-go/chatgraph/types"
)

// Re-export main types for convenience.
type (
	// StateGraph is a graph whose nodes communicate by reading and writing to a shared state.
	StateGraph = graph.StateGraph

	// CompiledGraph is a compiled, executable graph.
	CompiledGraph = graph.CompiledGraph

	// Node represents a node in the graph.
	Node = graph.Node

	// Edge represents a static edge in the graph.
	Edge = graph.Edge

	// Router is a routing function with its declared label set.
	Router = graph.Router

	// Message is one entry in a conversation's message log.
	Message = graph.Message

	// Saver is the interface for checkpoint savers.
	Saver = checkpoint.Saver

	// Checkpoint is one persisted (thread, seq, state, cursor) row.
	Checkpoint = checkpoint.Checkpoint

	// MemorySaver is an in-memory checkpoint saver.
	MemorySaver = checkpoint.MemorySaver

	// SqliteSaver is a SQLite-based checkpoint saver.
	SqliteSaver = checkpoint.SqliteSaver

	// PostgresSaver is a PostgreSQL-based checkpoint saver.
	PostgresSaver = checkpoint.PostgresSaver

	// RetrySaver wraps a saver with retry and backoff.
	RetrySaver = checkpoint.RetrySaver

	// Channel is the base interface for all channels.
	Channel = channels.Channel

	// LastValue stores the last value received.
	LastValue = channels.LastValue

	// Topic accumulates values in arrival order.
	Topic = channels.Topic

	// State is the shared state threaded through every node.
	State = types.State

	// NodeFunc is the signature of a node function.
	NodeFunc = types.NodeFunc

	// RouterFunc is the signature of a routing function.
	RouterFunc = types.RouterFunc

	// RunnableConfig is the per-run configuration.
	RunnableConfig = types.RunnableConfig

	// RetryPolicy configures retrying nodes.
	RetryPolicy = types.RetryPolicy

	// StateSnapshot is the externally visible view of a checkpointed run.
	StateSnapshot = types.StateSnapshot
)

// Re-export constants.
const (
	// Start is the first (virtual) node in the graph.
	Start = constants.Start

	// End is the last (virtual) node in the graph.
	End = constants.End
)

// Re-export error types.
type (
	ConfigurationError   = errors.ConfigurationError
	NodeExecutionError   = errors.NodeExecutionError
	RoutingError         = errors.RoutingError
	PersistenceError     = errors.PersistenceError
	GraphRecursionError  = errors.GraphRecursionError
	InvalidUpdateError   = errors.InvalidUpdateError
	EmptyChannelError    = errors.EmptyChannelError
	NodeNotFoundError    = errors.NodeNotFoundError
	ChannelNotFoundError = errors.ChannelNotFoundError
)

// NewStateGraph creates a new StateGraph.
func NewStateGraph() *StateGraph {
	return graph.NewStateGraph()
}

// NewMemorySaver creates a new in-memory checkpoint saver.
func NewMemorySaver() *MemorySaver {
	return checkpoint.NewMemorySaver()
}

// NewSqliteSaver creates a new SQLite checkpoint saver.
func NewSqliteSaver(dbPath string) (*SqliteSaver, error) {
	return checkpoint.NewSqliteSaver(dbPath)
}

// NewPostgresSaver creates a new PostgreSQL checkpoint saver.
func NewPostgresSaver(connString string, poolConfig *checkpoint.PoolConfig) *PostgresSaver {
	return checkpoint.NewPostgresSaver(connString, poolConfig)
}

// Compile options.
var (
	// WithCheckpointer sets the checkpointer for the compiled graph.
	WithCheckpointer = graph.WithCheckpointer

	// WithRecursionLimit sets the recursion limit.
	WithRecursionLimit = graph.WithRecursionLimit

	// WithLogger sets the engine logger.
	WithLogger = graph.WithLogger

	// WithTelemetry enables tracing and metrics for the compiled graph.
	WithTelemetry = graph.WithTelemetry
)

// DefaultRetryPolicy returns a default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return types.DefaultRetryPolicy()
}

// NewRunnableConfig creates a new RunnableConfig.
func NewRunnableConfig() *RunnableConfig {
	return types.NewRunnableConfig()
}
