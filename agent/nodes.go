package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chatgraph-go/chatgraph/graph"
	"github.com/chatgraph-go/chatgraph/types"
)

// FallbackResponse is returned to the user when a response cannot be
// generated. Internal error detail never reaches the response payload.
const FallbackResponse = "Sorry, I could not process your message. Please try again later."

// TranscribeNode converts the attached voice message to text. The
// transcription becomes the query when the user sent no accompanying text.
func (a *Agent) TranscribeNode(ctx context.Context, state types.State) (types.State, error) {
	file := stringField(state, KeyFile)
	if a.Transcriber == nil {
		return nil, fmt.Errorf("no transcriber configured")
	}

	text, err := a.Transcriber.Transcribe(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("transcribe %s: %w", file, err)
	}

	a.logger().Debug("voice message transcribed",
		slog.String("file", file),
		slog.Int("chars", len(text)))

	update := types.State{
		KeyFileExtension: FileExtension(file),
		KeyIsVoiceMsg:    true,
		KeyTranscription: text,
	}
	if stringField(state, KeyQuery) == "" {
		update[KeyQuery] = text
	}
	return update, nil
}

// ParseDocumentNode extracts text from the attached document. A format with
// no registered extractor, or an extractor failure, is an expected negative
// outcome recorded in extraction_status, not a run failure.
func (a *Agent) ParseDocumentNode(ctx context.Context, state types.State) (types.State, error) {
	file := stringField(state, KeyFile)
	ext := FileExtension(file)

	extractor := a.extractorFor(ext)
	if extractor == nil {
		a.logger().Warn("no extractor available", slog.String("file", file))
		return types.State{
			KeyFileExtension:    ext,
			KeyExtractionStatus: StatusFailed,
		}, nil
	}

	result, err := extractor.Extract(ctx, file)
	if err != nil {
		a.logger().Error("extraction failed",
			slog.String("file", file),
			slog.String("error", err.Error()))
		return types.State{
			KeyFileExtension:    ext,
			KeyExtractionStatus: StatusFailed,
		}, nil
	}

	a.logger().Debug("extraction completed",
		slog.String("file", file),
		slog.String("method", result.Method))

	return types.State{
		KeyFileExtension:    ext,
		KeyDocText:          result.Text,
		KeyExtractionMethod: result.Method,
		KeyExtractionStatus: StatusSuccess,
	}, nil
}

// AnalyzeNode decides whether there is anything to respond to and gathers
// supporting user data. It never advances the run implicitly: the assistant
// only runs when should_continue is affirmatively true.
func (a *Agent) AnalyzeNode(ctx context.Context, state types.State) (types.State, error) {
	update := types.State{}

	hasContent := stringField(state, KeyQuery) != "" ||
		stringField(state, KeyTranscription) != "" ||
		stringField(state, KeyDocText) != ""
	update[KeyShouldContinue] = hasContent

	if !hasContent {
		a.logger().Debug("nothing to analyze", slog.String("thread_id", stringField(state, KeyThreadID)))
		return update, nil
	}

	if a.Querier != nil && a.UserDataQuery != "" {
		rows, err := a.Querier.Query(ctx, a.UserDataQuery)
		if err != nil {
			return nil, fmt.Errorf("user data query: %w", err)
		}
		if len(rows) > 0 {
			update[KeyUserData] = rows[0]
		}
	}

	return update, nil
}

// AssistantNode generates the final response from the query, the retrieved
// context and the conversation history, and appends the exchanged pair to
// the message log.
func (a *Agent) AssistantNode(ctx context.Context, state types.State) (types.State, error) {
	query := stringField(state, KeyQuery)
	if query == "" {
		query = stringField(state, KeyTranscription)
	}
	if query == "" && stringField(state, KeyDocText) != "" {
		query = "Summarize the attached document."
	}
	if query == "" {
		return types.State{
			KeyResponse:       FallbackResponse,
			KeyResponseStatus: StatusFailed,
		}, nil
	}

	update := types.State{}

	var docs []Document
	if a.Retriever != nil {
		var err error
		docs, err = a.Retriever.Search(ctx, query, userID(state), a.retrievalLimit())
		if err != nil {
			return nil, fmt.Errorf("retrieve context: %w", err)
		}
		texts := make([]interface{}, 0, len(docs))
		for _, d := range docs {
			texts = append(texts, d.Text)
		}
		update[KeyRetrievedDocs] = texts
	}

	messages := a.buildPrompt(state, query, docs)
	response, err := a.Model.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}

	a.logger().Debug("response generated",
		slog.String("thread_id", stringField(state, KeyThreadID)),
		slog.Int("chars", len(response)))

	update[KeyResponse] = response
	update[KeyResponseStatus] = StatusSuccess
	update[KeyMessages] = []*graph.Message{
		graph.HumanMessage(query),
		graph.AIMessage(response),
	}
	return update, nil
}

// buildPrompt assembles the model input: system instructions, prior
// conversation, then the current query.
func (a *Agent) buildPrompt(state types.State, query string, docs []Document) []*graph.Message {
	var sb strings.Builder
	sb.WriteString("You are a helpful assistant.")
	if lang := stringField(state, KeyLanguage); lang != "" {
		fmt.Fprintf(&sb, " Respond in %s.", lang)
	}
	if doc := stringField(state, KeyDocText); doc != "" {
		sb.WriteString("\n\nThe user attached a document:\n")
		sb.WriteString(doc)
	}
	if len(docs) > 0 {
		sb.WriteString("\n\nRelevant prior context:")
		for _, d := range docs {
			sb.WriteString("\n- ")
			sb.WriteString(d.Text)
		}
	}

	messages := []*graph.Message{graph.SystemMessage(sb.String())}
	if history, err := graph.MessagesFromState(state); err == nil {
		messages = append(messages, history...)
	}
	messages = append(messages, graph.HumanMessage(query))
	return messages
}
