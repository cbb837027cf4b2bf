package graph

import (
	"fmt"

	"github.com/google/uuid"
)

// Message represents a message in the conversation log.
type Message struct {
	ID      string                 `json:"id"`      // Unique identifier for deduplication
	Role    string                 `json:"role"`    // e.g., "user", "assistant", "system"
	Content string                 `json:"content"` // The message content
	Extra   map[string]interface{} `json:"extra,omitempty"`
}

// Message role constants.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleSystem    = "system"
)

// NewMessage creates a new message with a generated ID.
func NewMessage(role, content string) *Message {
	return &Message{
		ID:      uuid.New().String(),
		Role:    role,
		Content: content,
	}
}

// NewMessageWithID creates a new message with an explicit ID.
func NewMessageWithID(id, role, content string) *Message {
	return &Message{
		ID:      id,
		Role:    role,
		Content: content,
	}
}

// HumanMessage creates a user message.
func HumanMessage(content string) *Message {
	return NewMessage(MessageRoleUser, content)
}

// AIMessage creates an assistant message.
func AIMessage(content string) *Message {
	return NewMessage(MessageRoleAssistant, content)
}

// SystemMessage creates a system message.
func SystemMessage(content string) *Message {
	return NewMessage(MessageRoleSystem, content)
}

// coerceMessage converts a single value to a *Message. Checkpoints that went
// through JSON come back as map[string]interface{}, so both forms are accepted.
func coerceMessage(v interface{}) (*Message, bool) {
	switch m := v.(type) {
	case *Message:
		return m, true
	case Message:
		return &m, true
	case map[string]interface{}:
		msg := &Message{}
		if id, ok := m["id"].(string); ok {
			msg.ID = id
		}
		if role, ok := m["role"].(string); ok {
			msg.Role = role
		}
		if content, ok := m["content"].(string); ok {
			msg.Content = content
		}
		if extra, ok := m["extra"].(map[string]interface{}); ok {
			msg.Extra = extra
		}
		return msg, true
	default:
		return nil, false
	}
}

// coerceMessages converts a value to a message slice.
func coerceMessages(v interface{}) ([]*Message, bool) {
	if v == nil {
		return nil, true
	}
	switch ms := v.(type) {
	case []*Message:
		return ms, true
	case []interface{}:
		result := make([]*Message, 0, len(ms))
		for _, raw := range ms {
			msg, ok := coerceMessage(raw)
			if !ok {
				return nil, false
			}
			result = append(result, msg)
		}
		return result, true
	default:
		if msg, ok := coerceMessage(v); ok {
			return []*Message{msg}, true
		}
		return nil, false
	}
}

// AddMessagesReducer is the reducer for the conversation log channel. New
// messages are appended in order; an update whose ID matches an existing
// message replaces it in place, so re-delivering the same logical message
// twice leaves it in the sequence exactly once.
func AddMessagesReducer(existing, update interface{}) (interface{}, error) {
	updates, ok := coerceMessages(update)
	if !ok {
		return nil, fmt.Errorf("cannot add messages of type %T", update)
	}

	existingMsgs, ok := coerceMessages(existing)
	if !ok {
		return nil, fmt.Errorf("existing messages have unexpected type %T", existing)
	}

	byID := make(map[string]int, len(existingMsgs))
	result := make([]*Message, len(existingMsgs))
	copy(result, existingMsgs)
	for i, msg := range result {
		if msg.ID != "" {
			byID[msg.ID] = i
		}
	}

	for _, msg := range updates {
		if msg.ID != "" {
			if i, seen := byID[msg.ID]; seen {
				result[i] = msg
				continue
			}
			byID[msg.ID] = len(result)
		}
		result = append(result, msg)
	}

	return result, nil
}

// MessagesFromState extracts the conversation log from a state snapshot.
// Returns an empty slice when the messages key is absent.
func MessagesFromState(state map[string]interface{}) ([]*Message, error) {
	raw, ok := state["messages"]
	if !ok {
		return []*Message{}, nil
	}
	msgs, ok := coerceMessages(raw)
	if !ok {
		return nil, fmt.Errorf("messages key has unexpected type %T", raw)
	}
	return msgs, nil
}

// LastMessageByRole returns the most recent message with the given role, or nil.
func LastMessageByRole(msgs []*Message, role string) *Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == role {
			return msgs[i]
		}
	}
	return nil
}
