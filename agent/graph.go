package agent

import (
	"github.com/chatgraph-go/chatgraph/constants"
	"github.com/chatgraph-go/chatgraph/graph"
	"github.com/chatgraph-go/chatgraph/types"
)

// Node names in the pipeline graph.
const (
	NodeTranscribe    = "transcribe"
	NodeParseDocument = "parse_document"
	NodeAnalyze       = "analyze"
	NodeAssistant     = "assistant"
)

// BuildGraph assembles the conversational pipeline:
//
//	Start ──file router──> transcribe ──> analyze ──continue──> assistant ──> End
//	              │                          ▲          │
//	              ├──> parse_document ───────┘          └──> End
//	              └──> analyze
//
// audioExtensions configures the voice-message formats; empty means
// DefaultAudioExtensions. Compile options (checkpointer, recursion limit,
// logger, telemetry) pass through unchanged.
func BuildGraph(a *Agent, audioExtensions []string, opts ...graph.CompileOption) (*graph.CompiledGraph, error) {
	g := graph.NewStateGraph()

	g.AddChannel(KeyThreadID)
	g.AddChannel(KeyUserID)
	g.AddChannel(KeyQuery)
	g.AddChannel(KeyFile)
	g.AddChannel(KeyFileExtension)
	g.AddChannel(KeyIsVoiceMsg)
	g.AddChannel(KeyTranscription)
	g.AddChannel(KeyLanguage)
	g.AddChannel(KeyShouldContinue)
	g.AddChannel(KeyResponse)
	g.AddChannel(KeyResponseStatus)
	g.AddChannel(KeyDocText)
	g.AddChannel(KeyExtractionMethod)
	g.AddChannel(KeyExtractionStatus)
	g.AddChannel(KeyRetrievedDocs)
	g.AddChannel(KeyUserData)
	g.AddMessagesChannel()

	retry := types.DefaultRetryPolicy()
	g.AddNodeWithRetry(NodeTranscribe, a.TranscribeNode, retry)
	g.AddNode(NodeParseDocument, a.ParseDocumentNode)
	g.AddNode(NodeAnalyze, a.AnalyzeNode)
	g.AddNodeWithRetry(NodeAssistant, a.AssistantNode, retry)

	router := NewFileRouter(audioExtensions)
	if err := g.AddConditionalEdges(constants.Start, router.Router(), map[string]string{
		RouteTranscribe:    NodeTranscribe,
		RouteParseDocument: NodeParseDocument,
		RouteAnalyze:       NodeAnalyze,
	}); err != nil {
		return nil, err
	}

	if err := g.AddEdge(NodeTranscribe, NodeAnalyze); err != nil {
		return nil, err
	}
	if err := g.AddEdge(NodeParseDocument, NodeAnalyze); err != nil {
		return nil, err
	}

	if err := g.AddConditionalEdges(NodeAnalyze, ContinueRouterLabels(), map[string]string{
		RouteAssistant: NodeAssistant,
		RouteEnd:       constants.End,
	}); err != nil {
		return nil, err
	}

	if err := g.AddEdge(NodeAssistant, constants.End); err != nil {
		return nil, err
	}

	return g.Compile(opts...)
}
