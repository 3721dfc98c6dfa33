package core

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Message is a single entry of a chat-format prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PromptContent holds the body of a prompt version in one of two shapes:
// flat text, or an ordered list of chat messages. The shape is preserved
// through rendering, storage, and the JSON API, where it appears either as a
// string or as an array of {role, content} objects.
type PromptContent struct {
	Text     string
	Messages []Message
}

// TextContent builds flat-text content.
func TextContent(text string) PromptContent {
	return PromptContent{Text: text}
}

// ChatContent builds chat-format content.
func ChatContent(messages ...Message) PromptContent {
	return PromptContent{Messages: messages}
}

// IsChat reports whether the content is chat-format. Any non-empty message
// list wins over the text field.
func (c PromptContent) IsChat() bool {
	return len(c.Messages) > 0
}

// IsEmpty reports whether the content carries no text and no messages.
func (c PromptContent) IsEmpty() bool {
	if c.IsChat() {
		for _, m := range c.Messages {
			if m.Content != "" {
				return false
			}
		}
		return true
	}
	return c.Text == ""
}

// Equal compares two contents shape-sensitively: text equals text, chat
// equals chat with identical message order, roles, and bodies.
func (c PromptContent) Equal(other PromptContent) bool {
	if c.IsChat() != other.IsChat() {
		return false
	}
	if !c.IsChat() {
		return c.Text == other.Text
	}
	if len(c.Messages) != len(other.Messages) {
		return false
	}
	for i := range c.Messages {
		if c.Messages[i] != other.Messages[i] {
			return false
		}
	}
	return true
}

// MarshalJSON emits a bare string for text content and an array of messages
// for chat content.
func (c PromptContent) MarshalJSON() ([]byte, error) {
	if c.IsChat() {
		return json.Marshal(c.Messages)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts either shape.
func (c *PromptContent) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*c = PromptContent{Text: text}
		return nil
	}

	var messages []Message
	if err := json.Unmarshal(data, &messages); err == nil {
		*c = PromptContent{Messages: messages}
		return nil
	}

	return fmt.Errorf("prompt content must be a string or an array of {role, content} messages")
}

// Value implements driver.Valuer so content can be stored in a JSONB column.
func (c PromptContent) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner.
func (c *PromptContent) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = PromptContent{}
		return nil
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("cannot scan %T into PromptContent", src)
	}
}

// JSONMap is a free-form JSON object column, used for prompt metadata and
// model parameters where the schema is caller-defined.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", src)
	}
}

// VarMap is the string-to-string variable map supplied to a prompt run.
type VarMap map[string]string

func (m VarMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *VarMap) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into VarMap", src)
	}
}
