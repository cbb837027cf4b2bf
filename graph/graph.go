// Package graph provides the workflow graph definition and execution engine
// for chatgraph: named nodes over a shared channel-backed state, static and
// conditional edges, and durable checkpointing keyed by thread identity.
package graph

import (
	"fmt"
	"log/slog"

	"github.com/chatgraph-go/chatgraph/channels"
	"github.com/chatgraph-go/chatgraph/checkpoint"
	"github.com/chatgraph-go/chatgraph/constants"
	"github.com/chatgraph-go/chatgraph/errors"
	"github.com/chatgraph-go/chatgraph/telemetry"
	"github.com/chatgraph-go/chatgraph/types"
)

// Node represents a node in the graph.
type Node struct {
	Name     string
	Function types.NodeFunc
	// Retry policy for this node
	RetryPolicy *types.RetryPolicy
}

// Edge represents a static (unconditional) edge in the graph.
type Edge struct {
	From string
	To   string
}

// Router is a pure function of state plus the set of labels it may return.
// Declaring the label set lets Compile verify the edge mapping is exhaustive
// instead of discovering a hole at run time.
type Router struct {
	Labels []string
	Route  types.RouterFunc
}

// ConditionalEdge binds a router to an explicit label-to-node mapping.
type ConditionalEdge struct {
	From    string
	Router  Router
	Mapping map[string]string
}

// StateGraph is a graph whose nodes communicate by reading and writing to a
// shared state. Build it with AddNode/AddEdge/AddConditionalEdges, declare
// the state schema with the channel methods, then Compile.
type StateGraph struct {
	nodes            map[string]*Node
	edges            []*Edge
	conditionalEdges []*ConditionalEdge
	// Channel definitions for the state schema
	schema *channels.Registry
}

// NewStateGraph creates a new StateGraph.
func NewStateGraph() *StateGraph {
	return &StateGraph{
		nodes:            make(map[string]*Node),
		edges:            make([]*Edge, 0),
		conditionalEdges: make([]*ConditionalEdge, 0),
		schema:           channels.NewRegistry(),
	}
}

// AddChannel declares a state key with replace semantics (last write wins).
func (g *StateGraph) AddChannel(name string) *StateGraph {
	g.schema.Register(name, channels.NewLastValue())
	return g
}

// AddAppendChannel declares a state key with append semantics: new values
// are concatenated onto the existing sequence, order preserved.
func (g *StateGraph) AddAppendChannel(name string) *StateGraph {
	g.schema.Register(name, channels.NewTopic())
	return g
}

// AddReducerChannel declares a state key merged through a custom reducer.
func (g *StateGraph) AddReducerChannel(name string, reducer types.ReducerFunc) *StateGraph {
	g.schema.Register(name, channels.NewReducerChannel(reducer))
	return g
}

// AddMessagesChannel declares the conversation log channel with the
// identity-deduplicating append reducer.
func (g *StateGraph) AddMessagesChannel() *StateGraph {
	return g.AddReducerChannel(constants.Messages, AddMessagesReducer)
}

// AddNode adds a node to the graph.
func (g *StateGraph) AddNode(name string, fn types.NodeFunc) *Node {
	node := &Node{
		Name:     name,
		Function: fn,
	}
	g.nodes[name] = node
	return node
}

// AddNodeWithRetry adds a node with an explicit retry policy.
func (g *StateGraph) AddNodeWithRetry(name string, fn types.NodeFunc, policy types.RetryPolicy) *Node {
	node := g.AddNode(name, fn)
	node.RetryPolicy = &policy
	return node
}

// AddEdge adds a static edge between two nodes. constants.Start and
// constants.End are valid endpoints.
func (g *StateGraph) AddEdge(from, to string) error {
	if _, ok := g.nodes[from]; !ok && from != constants.Start {
		return &errors.NodeNotFoundError{NodeName: from}
	}
	if _, ok := g.nodes[to]; !ok && to != constants.End {
		return &errors.NodeNotFoundError{NodeName: to}
	}
	g.edges = append(g.edges, &Edge{From: from, To: to})
	return nil
}

// AddConditionalEdges adds a conditional edge from a node. Every label the
// router declares must appear in the mapping and every mapped target must
// exist; violations fail here or at Compile, never at run time.
func (g *StateGraph) AddConditionalEdges(from string, router Router, mapping map[string]string) error {
	if _, ok := g.nodes[from]; !ok && from != constants.Start {
		return &errors.NodeNotFoundError{NodeName: from}
	}
	if router.Route == nil {
		return &errors.ConfigurationError{Message: fmt.Sprintf("conditional edge from %s has no router function", from)}
	}
	if len(router.Labels) == 0 {
		return &errors.ConfigurationError{Message: fmt.Sprintf("router for node %s declares no labels", from)}
	}

	for _, label := range router.Labels {
		if _, ok := mapping[label]; !ok {
			return &errors.ConfigurationError{
				Message: fmt.Sprintf("router label %q from node %s has no mapping", label, from),
			}
		}
	}
	for label, target := range mapping {
		if _, ok := g.nodes[target]; !ok && target != constants.End {
			return &errors.ConfigurationError{
				Message: fmt.Sprintf("router label %q from node %s maps to unknown node %q", label, from, target),
			}
		}
	}

	g.conditionalEdges = append(g.conditionalEdges, &ConditionalEdge{
		From:    from,
		Router:  router,
		Mapping: mapping,
	})
	return nil
}

// GetNode returns a node by name.
func (g *StateGraph) GetNode(name string) (*Node, bool) {
	node, ok := g.nodes[name]
	return node, ok
}

// GetNodes returns all nodes.
func (g *StateGraph) GetNodes() map[string]*Node {
	return g.nodes
}

// GetEdges returns all static edges.
func (g *StateGraph) GetEdges() []*Edge {
	return g.edges
}

// successorsOf returns the outgoing routing for a node: the conditional edge
// if one exists, otherwise the static edge target.
func (g *StateGraph) successorsOf(name string) (*ConditionalEdge, string, bool) {
	for _, ce := range g.conditionalEdges {
		if ce.From == name {
			return ce, "", true
		}
	}
	for _, e := range g.edges {
		if e.From == name {
			return nil, e.To, true
		}
	}
	return nil, "", false
}

// Validate validates the graph structure.
func (g *StateGraph) Validate() error {
	if _, _, ok := g.successorsOf(constants.Start); !ok {
		return &errors.ConfigurationError{Message: "no entry point: add an edge from constants.Start"}
	}

	// Every node needs an outgoing edge; a node with none would strand a run.
	for name := range g.nodes {
		if _, _, ok := g.successorsOf(name); !ok {
			return &errors.ConfigurationError{
				Message: fmt.Sprintf("node %s has no outgoing edge; route it to another node or constants.End", name),
			}
		}
	}

	// Check that all nodes are reachable from Start.
	reachable := g.computeReachable()
	for name := range g.nodes {
		if !reachable[name] {
			return &errors.ConfigurationError{
				Message: fmt.Sprintf("node %s is not reachable from the entry point", name),
			}
		}
	}

	if g.schema.Len() == 0 {
		return &errors.ConfigurationError{Message: "state schema declares no channels"}
	}

	return nil
}

// computeReachable computes all reachable nodes from the entry point.
func (g *StateGraph) computeReachable() map[string]bool {
	reachable := make(map[string]bool)
	queue := []string{constants.Start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, edge := range g.edges {
			if edge.From == current && !reachable[edge.To] && edge.To != constants.End {
				reachable[edge.To] = true
				queue = append(queue, edge.To)
			}
		}

		for _, condEdge := range g.conditionalEdges {
			if condEdge.From == current {
				for _, target := range condEdge.Mapping {
					if _, ok := g.nodes[target]; ok && !reachable[target] {
						reachable[target] = true
						queue = append(queue, target)
					}
				}
			}
		}
	}

	return reachable
}

// Compile compiles the graph into an executable CompiledGraph. All
// configuration errors surface here, before any run starts.
func (g *StateGraph) Compile(opts ...CompileOption) (*CompiledGraph, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	cg := &CompiledGraph{
		graph:          g,
		recursionLimit: 25,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(cg)
	}

	return cg, nil
}

// CompileOption is an option for compiling a graph.
type CompileOption func(*CompiledGraph)

// WithCheckpointer sets the checkpoint saver for the compiled graph.
func WithCheckpointer(saver checkpoint.Saver) CompileOption {
	return func(cg *CompiledGraph) {
		cg.checkpointer = saver
	}
}

// WithRecursionLimit sets the maximum number of steps per run.
func WithRecursionLimit(limit int) CompileOption {
	return func(cg *CompiledGraph) {
		cg.recursionLimit = limit
	}
}

// WithLogger sets the structured logger used by the engine.
func WithLogger(logger *slog.Logger) CompileOption {
	return func(cg *CompiledGraph) {
		if logger != nil {
			cg.logger = logger
		}
	}
}

// WithTelemetry enables OpenTelemetry spans and metrics for the engine.
func WithTelemetry(provider *telemetry.Provider) CompileOption {
	return func(cg *CompiledGraph) {
		cg.telemetry = provider
	}
}
