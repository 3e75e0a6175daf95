package agent

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is one conversation turn exchanged with a provider. A turn
// carries one or more parts: plain text, a binary blob, a tool call
// requested by the model, or the result of running one.
type Message struct {
	Role  Role
	Parts []*Part
}

type Part struct {
	Text         string
	Blob         *Blob
	Toolcall     *ToolCall
	ToolResponse *ToolResponse
}

type Blob struct {
	Bytes []byte
	// IANA media type
	Mime string
}

// Text joins every text part of the message.
func (m *Message) Text() string {
	texts := []string{}
	for _, p := range m.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "")
}

// ToolCall returns the first tool-call part, if any.
func (m *Message) ToolCall() (*ToolCall, bool) {
	for _, p := range m.Parts {
		if p.Toolcall != nil {
			return p.Toolcall, true
		}
	}
	return nil, false
}

func NewTextMessage(role Role, text string) *Message {
	return &Message{
		Role:  role,
		Parts: []*Part{{Text: text}},
	}
}

func NewBlobMessage(role Role, b []byte, mime string) *Message {
	return &Message{
		Role:  role,
		Parts: []*Part{{Blob: &Blob{Bytes: b, Mime: mime}}},
	}
}

// CCReq is the chat-completion request handed to a provider.
type CCReq struct {
	Messages   []*Message
	Stream     bool
	Think      bool
	Tools      []Tool
	ToolChoice string
}

// CCRes is the provider's chat-completion response.
type CCRes struct {
	ID      string    `json:"id"`
	Model   string    `json:"model"`
	Created time.Time `json:"created"`
	Choices []Choice  `json:"choices"`
	Usage   Usage
}

func (res *CCRes) IsToolCall() ([]*ToolCall, bool) {
	if len(res.Choices) > 0 && len(res.Choices[0].ToolCalls) > 0 {
		return res.Choices[0].ToolCalls, true
	}
	return nil, false
}

type Choice struct {
	Index        int `json:"index"`
	Text         string
	ToolCalls    []*ToolCall `json:"tool_calls,omitempty"`
	FinishReason string      `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int32 `json:"prompt_tokens"`
	CompletionTokens int32 `json:"completion_tokens"`
	TotalTokens      int32 `json:"total_tokens"`
}
