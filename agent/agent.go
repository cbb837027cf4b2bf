// Package agent wires the conversational pipeline: file classification,
// voice transcription, document extraction, analysis and response
// generation, built on the graph engine. External services are supplied as
// narrow collaborator interfaces so the pipeline can be exercised without
// them.
package agent

import (
	"context"
	"log/slog"

	"github.com/chatgraph-go/chatgraph/graph"
)

// Extraction is the result of extracting text from a document.
type Extraction struct {
	Text   string
	Method string
}

// Extractor extracts text from a single document format.
type Extractor interface {
	Extract(ctx context.Context, filePath string) (*Extraction, error)
}

// Transcriber converts an audio file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Document is a ranked retrieval result.
type Document struct {
	Text   string
	Source string
	Score  float64
}

// Retriever performs vector search scoped to a user.
type Retriever interface {
	Search(ctx context.Context, query, userID string, limit int) ([]Document, error)
}

// Querier runs relational queries against the business database.
type Querier interface {
	Query(ctx context.Context, query string) ([]map[string]interface{}, error)
}

// ChatModel generates a completion for a message sequence.
type ChatModel interface {
	Complete(ctx context.Context, messages []*graph.Message) (string, error)
}

// Agent holds the collaborators and configuration the pipeline nodes need.
type Agent struct {
	// Transcriber handles the voice-message path. Required when the audio
	// extension set is non-empty: a voice message with no transcriber
	// configured fails the run.
	Transcriber Transcriber

	// Extractors maps a lower-case file extension (without dot) to the
	// extractor for that format. A file whose extension has no entry is an
	// expected negative outcome, not an error.
	Extractors map[string]Extractor

	// Retriever supplies context documents to the assistant. Optional.
	Retriever Retriever

	// Querier answers relational lookups for user data. Optional.
	Querier Querier

	// UserDataQuery is the query the analyzer runs through Querier to load
	// the user profile. Empty disables the lookup.
	UserDataQuery string

	// Model generates the final response. Required.
	Model ChatModel

	// RetrievalLimit bounds how many documents the assistant pulls in.
	// Zero means DefaultRetrievalLimit.
	RetrievalLimit int

	// Logger for node-level events. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultRetrievalLimit is the number of context documents fetched per query.
const DefaultRetrievalLimit = 5

func (a *Agent) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

func (a *Agent) retrievalLimit() int {
	if a.RetrievalLimit > 0 {
		return a.RetrievalLimit
	}
	return DefaultRetrievalLimit
}

func (a *Agent) extractorFor(ext string) Extractor {
	if a.Extractors == nil {
		return nil
	}
	return a.Extractors[ext]
}
