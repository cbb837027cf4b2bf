package graph

import (
	"context"
	"testing"

	"github.com/chatgraph-go/chatgraph/constants"
	"github.com/chatgraph-go/chatgraph/errors"
	"github.com/chatgraph-go/chatgraph/types"
)

func noopNode(ctx context.Context, state types.State) (types.State, error) {
	return nil, nil
}

func TestCompileRequiresEntryPoint(t *testing.T) {
	g := NewStateGraph()
	g.AddChannel("value")
	g.AddNode("a", noopNode)
	if err := g.AddEdge("a", constants.End); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	_, err := g.Compile()
	if !errors.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError for missing entry point, got %v", err)
	}
}

func TestCompileRequiresOutgoingEdges(t *testing.T) {
	g := NewStateGraph()
	g.AddChannel("value")
	g.AddNode("a", noopNode)
	if err := g.AddEdge(constants.Start, "a"); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	_, err := g.Compile()
	if !errors.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError for stranded node, got %v", err)
	}
}

func TestCompileRequiresReachableNodes(t *testing.T) {
	g := NewStateGraph()
	g.AddChannel("value")
	g.AddNode("a", noopNode)
	g.AddNode("orphan", noopNode)
	if err := g.AddEdge(constants.Start, "a"); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if err := g.AddEdge("a", constants.End); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if err := g.AddEdge("orphan", constants.End); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	_, err := g.Compile()
	if !errors.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError for unreachable node, got %v", err)
	}
}

func TestAddEdgeUnknownNode(t *testing.T) {
	g := NewStateGraph()
	g.AddChannel("value")

	if err := g.AddEdge("missing", constants.End); !errors.IsNodeNotFoundError(err) {
		t.Errorf("expected NodeNotFoundError, got %v", err)
	}
}

func TestConditionalEdgeUnmappedLabelFailsAtBuildTime(t *testing.T) {
	g := NewStateGraph()
	g.AddChannel("value")
	g.AddNode("a", noopNode)
	g.AddNode("b", noopNode)

	router := Router{
		Labels: []string{"left", "right"},
		Route:  func(state types.State) string { return "left" },
	}
	err := g.AddConditionalEdges("a", router, map[string]string{
		"left": "b",
		// "right" deliberately unmapped
	})
	if !errors.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError for unmapped label, got %v", err)
	}
}

func TestConditionalEdgeUnknownTarget(t *testing.T) {
	g := NewStateGraph()
	g.AddChannel("value")
	g.AddNode("a", noopNode)

	router := Router{
		Labels: []string{"go"},
		Route:  func(state types.State) string { return "go" },
	}
	err := g.AddConditionalEdges("a", router, map[string]string{"go": "missing"})
	if !errors.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError for unknown target, got %v", err)
	}
}

func TestConditionalEdgeRequiresRouter(t *testing.T) {
	g := NewStateGraph()
	g.AddChannel("value")
	g.AddNode("a", noopNode)

	err := g.AddConditionalEdges("a", Router{}, map[string]string{})
	if !errors.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError for nil router, got %v", err)
	}
}

func TestCompileRequiresSchema(t *testing.T) {
	g := NewStateGraph()
	g.AddNode("a", noopNode)
	if err := g.AddEdge(constants.Start, "a"); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if err := g.AddEdge("a", constants.End); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	_, err := g.Compile()
	if !errors.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError for empty schema, got %v", err)
	}
}
