package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/chatgraph-go/chatgraph/checkpoint"
	"github.com/chatgraph-go/chatgraph/graph"
	"github.com/chatgraph-go/chatgraph/types"
)

type stubTranscriber struct {
	text  string
	err   error
	calls int
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	s.calls++
	return s.text, s.err
}

type stubExtractor struct {
	text   string
	method string
	err    error
}

func (s *stubExtractor) Extract(ctx context.Context, filePath string) (*Extraction, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &Extraction{Text: s.text, Method: s.method}, nil
}

type stubRetriever struct {
	docs []Document
}

func (s *stubRetriever) Search(ctx context.Context, query, userID string, limit int) ([]Document, error) {
	return s.docs, nil
}

type stubModel struct {
	response string
	err      error
	prompts  [][]*graph.Message
}

func (s *stubModel) Complete(ctx context.Context, messages []*graph.Message) (string, error) {
	s.prompts = append(s.prompts, messages)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

type stubQuerier struct {
	rows []map[string]interface{}
}

func (s *stubQuerier) Query(ctx context.Context, query string) ([]map[string]interface{}, error) {
	return s.rows, nil
}

func testAgent() (*Agent, *stubModel, *stubTranscriber) {
	model := &stubModel{response: "generated answer"}
	transcriber := &stubTranscriber{text: "what is my balance"}
	a := &Agent{
		Transcriber: transcriber,
		Extractors: map[string]Extractor{
			"pdf": &stubExtractor{text: "Invoice #42, total 100 EUR", method: "pdf_text"},
		},
		Model: model,
	}
	return a, model, transcriber
}

func compileTestGraph(t *testing.T, a *Agent, saver checkpoint.Saver) *graph.CompiledGraph {
	t.Helper()
	opts := []graph.CompileOption{}
	if saver != nil {
		opts = append(opts, graph.WithCheckpointer(saver))
	}
	compiled, err := BuildGraph(a, nil, opts...)
	if err != nil {
		t.Fatalf("BuildGraph failed: %v", err)
	}
	return compiled
}

func TestPipelineDocumentScenario(t *testing.T) {
	a, _, _ := testAgent()
	compiled := compileTestGraph(t, a, nil)

	result, err := compiled.Invoke(context.Background(), types.State{
		KeyUserID: "alice",
		KeyFile:   "invoice.pdf",
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	if result[KeyExtractionStatus] != StatusSuccess {
		t.Errorf("extraction_status = %v", result[KeyExtractionStatus])
	}
	if doc, _ := result[KeyDocText].(string); doc == "" {
		t.Error("doc_text should be set by the parser")
	}
	if result[KeyShouldContinue] != true {
		t.Error("analyzer should continue when a document was extracted")
	}
	if resp, _ := result[KeyResponse].(string); resp == "" {
		t.Error("final state should contain a non-empty response")
	}
	if result[KeyResponseStatus] != StatusSuccess {
		t.Errorf("response_status = %v", result[KeyResponseStatus])
	}
}

func TestPipelineVoiceScenario(t *testing.T) {
	a, model, transcriber := testAgent()
	compiled := compileTestGraph(t, a, nil)

	result, err := compiled.Invoke(context.Background(), types.State{
		KeyUserID: "alice",
		KeyFile:   "note.mp3",
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	if result[KeyIsVoiceMsg] != true {
		t.Error("is_voice_msg should be true for an audio file")
	}
	if transcriber.calls != 1 {
		t.Errorf("transcriber called %d times", transcriber.calls)
	}
	if result[KeyTranscription] != "what is my balance" {
		t.Errorf("voice_msg_transcription = %v", result[KeyTranscription])
	}

	// Transcription ran before the assistant: the prompt carries the
	// transcribed text as the query.
	if len(model.prompts) != 1 {
		t.Fatalf("model called %d times", len(model.prompts))
	}
	prompt := model.prompts[0]
	last := prompt[len(prompt)-1]
	if last.Role != graph.MessageRoleUser || last.Content != "what is my balance" {
		t.Errorf("assistant did not receive the transcription: %+v", last)
	}
}

func TestPipelineTextOnlyScenario(t *testing.T) {
	a, _, _ := testAgent()
	a.Retriever = &stubRetriever{docs: []Document{{Text: "past context", Score: 0.9}}}
	compiled := compileTestGraph(t, a, nil)

	result, err := compiled.Invoke(context.Background(), types.State{
		KeyUserID: "alice",
		KeyQuery:  "hello there",
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	if resp, _ := result[KeyResponse].(string); resp != "generated answer" {
		t.Errorf("response = %q", resp)
	}
	docs, _ := result[KeyRetrievedDocs].([]interface{})
	if len(docs) != 1 || docs[0] != "past context" {
		t.Errorf("retrieved_docs = %v", result[KeyRetrievedDocs])
	}

	msgs, err := graph.MessagesFromState(result)
	if err != nil {
		t.Fatalf("MessagesFromState failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected the human/assistant pair in the log, got %d", len(msgs))
	}
	if msgs[0].Role != graph.MessageRoleUser || msgs[1].Role != graph.MessageRoleAssistant {
		t.Errorf("unexpected roles: %s, %s", msgs[0].Role, msgs[1].Role)
	}
}

func TestPipelineEmptyInputHalts(t *testing.T) {
	a, model, _ := testAgent()
	compiled := compileTestGraph(t, a, nil)

	result, err := compiled.Invoke(context.Background(), types.State{})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	if result[KeyShouldContinue] != false {
		t.Errorf("should_continue = %v", result[KeyShouldContinue])
	}
	if _, ok := result[KeyResponse]; ok {
		t.Error("assistant should not have run")
	}
	if len(model.prompts) != 0 {
		t.Errorf("model called %d times", len(model.prompts))
	}
}

func TestPipelineUnsupportedFormatIsStateOutcome(t *testing.T) {
	a, model, _ := testAgent()
	compiled := compileTestGraph(t, a, nil)

	result, err := compiled.Invoke(context.Background(), types.State{
		KeyFile: "data.xyz",
	})
	if err != nil {
		t.Fatalf("missing extractor must not fail the run: %v", err)
	}

	if result[KeyExtractionStatus] != StatusFailed {
		t.Errorf("extraction_status = %v", result[KeyExtractionStatus])
	}
	if len(model.prompts) != 0 {
		t.Error("assistant should not run without content")
	}
}

func TestPipelineExtractorFailureIsStateOutcome(t *testing.T) {
	a, _, _ := testAgent()
	a.Extractors["pdf"] = &stubExtractor{err: fmt.Errorf("corrupt file")}
	compiled := compileTestGraph(t, a, nil)

	result, err := compiled.Invoke(context.Background(), types.State{
		KeyFile: "invoice.pdf",
	})
	if err != nil {
		t.Fatalf("extractor failure must not fail the run: %v", err)
	}
	if result[KeyExtractionStatus] != StatusFailed {
		t.Errorf("extraction_status = %v", result[KeyExtractionStatus])
	}
}

func TestPipelineUserDataLookup(t *testing.T) {
	a, _, _ := testAgent()
	a.Querier = &stubQuerier{rows: []map[string]interface{}{{"name": "Alice", "plan": "premium"}}}
	a.UserDataQuery = "SELECT name, plan FROM users WHERE id = :user"
	compiled := compileTestGraph(t, a, nil)

	result, err := compiled.Invoke(context.Background(), types.State{
		KeyUserID: "alice",
		KeyQuery:  "hello",
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	data, _ := result[KeyUserData].(map[string]interface{})
	if data["name"] != "Alice" {
		t.Errorf("user_data = %v", result[KeyUserData])
	}
}

func TestPipelineResumesSameThread(t *testing.T) {
	a, model, _ := testAgent()
	saver := checkpoint.NewMemorySaver()
	compiled := compileTestGraph(t, a, saver)

	ctx := context.Background()
	config := types.NewRunnableConfig().WithThreadID("alice_2026-08-31")

	if _, err := compiled.Invoke(ctx, types.State{KeyQuery: "first question"}, config); err != nil {
		t.Fatalf("first Invoke failed: %v", err)
	}

	model.response = "second answer"
	result, err := compiled.Invoke(ctx, types.State{KeyQuery: "second question"},
		types.NewRunnableConfig().WithThreadID("alice_2026-08-31"))
	if err != nil {
		t.Fatalf("second Invoke failed: %v", err)
	}

	msgs, err := graph.MessagesFromState(result)
	if err != nil {
		t.Fatalf("MessagesFromState failed: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages across both turns, got %d", len(msgs))
	}

	// The second prompt carries the first turn as history.
	second := model.prompts[len(model.prompts)-1]
	var sawHistory bool
	for _, m := range second {
		if m.Role == graph.MessageRoleUser && strings.Contains(m.Content, "first question") {
			sawHistory = true
		}
	}
	if !sawHistory {
		t.Error("second turn prompt is missing the first turn history")
	}
}

func TestAssistantFailureSurfacesError(t *testing.T) {
	a, model, _ := testAgent()
	model.err = fmt.Errorf("model unavailable")
	compiled := compileTestGraph(t, a, nil)

	_, err := compiled.Invoke(context.Background(), types.State{KeyQuery: "hello"})
	if err == nil {
		t.Fatal("expected run to fail when the model is unavailable")
	}
	if strings.Contains(err.Error(), FallbackResponse) {
		t.Error("internal error should not carry user-facing text")
	}
}

func TestTranscribeNodeRequiresTranscriber(t *testing.T) {
	a, _, _ := testAgent()
	a.Transcriber = nil

	_, err := a.TranscribeNode(context.Background(), types.State{KeyFile: "note.mp3"})
	if err == nil {
		t.Fatal("expected an error when no transcriber is configured")
	}
}
