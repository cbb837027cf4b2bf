package agent

import (
	"path/filepath"
	"strings"

	"github.com/chatgraph-go/chatgraph/graph"
	"github.com/chatgraph-go/chatgraph/types"
)

// Route labels returned by the pipeline routers.
const (
	RouteTranscribe    = "transcribe"
	RouteParseDocument = "parse_document"
	RouteAnalyze       = "analyze"
	RouteAssistant     = "assistant"
	RouteEnd           = "end"
)

// DefaultAudioExtensions are the voice-message formats.
var DefaultAudioExtensions = []string{"mp3", "wav", "ogg", "opus"}

// DefaultDocumentExtensions are the formats the document parser handles.
var DefaultDocumentExtensions = []string{"pdf", "doc", "docx", "xls", "xlsx", "jpg", "jpeg", "png", "tiff"}

// FileRouter classifies the inbound message by its attached file: audio
// formats go to transcription, everything else with a file goes to document
// parsing, no file goes straight to analysis. Pure function of state; the
// transcription and parsing nodes record the derived fields.
type FileRouter struct {
	audio map[string]bool
}

// NewFileRouter builds a router over the given audio extension set.
// Empty means DefaultAudioExtensions.
func NewFileRouter(audioExtensions []string) *FileRouter {
	if len(audioExtensions) == 0 {
		audioExtensions = DefaultAudioExtensions
	}
	audio := make(map[string]bool, len(audioExtensions))
	for _, ext := range audioExtensions {
		audio[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &FileRouter{audio: audio}
}

// Route implements types.RouterFunc.
func (r *FileRouter) Route(state types.State) string {
	file := stringField(state, KeyFile)
	if file == "" {
		return RouteAnalyze
	}
	if r.audio[FileExtension(file)] {
		return RouteTranscribe
	}
	return RouteParseDocument
}

// Router returns the declared-label form consumed by AddConditionalEdges.
func (r *FileRouter) Router() graph.Router {
	return graph.Router{
		Labels: []string{RouteTranscribe, RouteParseDocument, RouteAnalyze},
		Route:  r.Route,
	}
}

// ContinueRouter advances to the assistant only when the analyzer
// affirmatively set should_continue. An absent or non-bool field halts;
// the router never raises.
func ContinueRouter(state types.State) string {
	if cont, ok := state[KeyShouldContinue].(bool); ok && cont {
		return RouteAssistant
	}
	return RouteEnd
}

// ContinueRouterLabels is the declared-label form of ContinueRouter.
func ContinueRouterLabels() graph.Router {
	return graph.Router{
		Labels: []string{RouteAssistant, RouteEnd},
		Route:  ContinueRouter,
	}
}

// FileExtension returns the lower-case extension of a file name without the
// leading dot, or "" when the name has none.
func FileExtension(file string) string {
	ext := filepath.Ext(file)
	if ext == "" {
		return ""
	}
	return strings.ToLower(ext[1:])
}
