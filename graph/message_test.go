package graph

import (
	"testing"
)

func TestAddMessagesReducerAppends(t *testing.T) {
	first := NewMessageWithID("1", MessageRoleUser, "hello")
	second := NewMessageWithID("2", MessageRoleAssistant, "hi there")

	merged, err := AddMessagesReducer(nil, []*Message{first})
	if err != nil {
		t.Fatalf("reduce failed: %v", err)
	}
	merged, err = AddMessagesReducer(merged, []*Message{second})
	if err != nil {
		t.Fatalf("reduce failed: %v", err)
	}

	msgs := merged.([]*Message)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ID != "1" || msgs[1].ID != "2" {
		t.Errorf("order not preserved: %s, %s", msgs[0].ID, msgs[1].ID)
	}
}

func TestAddMessagesReducerDeduplicatesByID(t *testing.T) {
	msg := NewMessageWithID("same", MessageRoleUser, "hello")

	merged, err := AddMessagesReducer(nil, []*Message{msg})
	if err != nil {
		t.Fatalf("reduce failed: %v", err)
	}
	merged, err = AddMessagesReducer(merged, []*Message{msg})
	if err != nil {
		t.Fatalf("reduce failed: %v", err)
	}

	msgs := merged.([]*Message)
	if len(msgs) != 1 {
		t.Errorf("same message delivered twice appears %d times", len(msgs))
	}
}

func TestAddMessagesReducerReplacesInPlace(t *testing.T) {
	original := NewMessageWithID("1", MessageRoleUser, "draft")
	other := NewMessageWithID("2", MessageRoleAssistant, "reply")
	revised := NewMessageWithID("1", MessageRoleUser, "final")

	merged, err := AddMessagesReducer(nil, []*Message{original, other})
	if err != nil {
		t.Fatalf("reduce failed: %v", err)
	}
	merged, err = AddMessagesReducer(merged, []*Message{revised})
	if err != nil {
		t.Fatalf("reduce failed: %v", err)
	}

	msgs := merged.([]*Message)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "final" {
		t.Errorf("same-ID update should replace in place, got %q", msgs[0].Content)
	}
	if msgs[1].ID != "2" {
		t.Errorf("unrelated message moved: %s", msgs[1].ID)
	}
}

func TestAddMessagesReducerAcceptsCheckpointForm(t *testing.T) {
	// State restored through JSON comes back as []interface{} of maps.
	existing := []interface{}{
		map[string]interface{}{"id": "1", "role": "user", "content": "hello"},
	}

	merged, err := AddMessagesReducer(existing, []*Message{
		NewMessageWithID("2", MessageRoleAssistant, "hi"),
	})
	if err != nil {
		t.Fatalf("reduce failed: %v", err)
	}

	msgs := merged.([]*Message)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ID != "1" || msgs[0].Content != "hello" {
		t.Errorf("map-form message not coerced: %+v", msgs[0])
	}
}

func TestMessagesFromState(t *testing.T) {
	msgs, err := MessagesFromState(map[string]interface{}{})
	if err != nil {
		t.Fatalf("MessagesFromState failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected no messages for empty state, got %d", len(msgs))
	}

	state := map[string]interface{}{
		"messages": []*Message{
			NewMessageWithID("1", MessageRoleUser, "q"),
			NewMessageWithID("2", MessageRoleAssistant, "a"),
		},
	}
	msgs, err = MessagesFromState(state)
	if err != nil {
		t.Fatalf("MessagesFromState failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}

	last := LastMessageByRole(msgs, MessageRoleAssistant)
	if last == nil || last.ID != "2" {
		t.Errorf("LastMessageByRole returned %+v", last)
	}
	if LastMessageByRole(msgs, "tool") != nil {
		t.Error("expected nil for absent role")
	}
}
