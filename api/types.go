package api

import (
	"net/http"
	"time"

	"github.com/minimancer/botmother/agent"
)

// Request
type ChatRequest struct {
	Content []*Message `json:"content"`
}

type Message agent.Message

// Response
type ChatResponse struct {
	Created time.Time `json:"created"`
	Text    string    `json:"text"`
}

// CreateBotRequest asks the server to deploy a new child bot.
type CreateBotRequest struct {
	Name        string `json:"name"`
	Purpose     string `json:"purpose,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Personality string `json:"personality,omitempty"`
	UserID      string `json:"user_id,omitempty"`
}

// BotView is the external shape of a deployed bot. The token never
// leaves the server.
type BotView struct {
	Name        string    `json:"name"`
	Username    string    `json:"username,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	Personality string    `json:"personality_type,omitempty"`
	Link        string    `json:"link,omitempty"`
}

type BotListResponse struct {
	Bots []BotView `json:"bots"`
}

// PoolStats reports token accounting for the server's pool.
type PoolStats struct {
	TotalTokens     int            `json:"total_tokens"`
	AvailableTokens int            `json:"available_tokens"`
	AllocatedTokens int            `json:"allocated_tokens"`
	ActiveBots      int            `json:"active_bots"`
	StatusBreakdown map[string]int `json:"status_breakdown,omitempty"`
}

// TokenRequest carries a raw bot token for pool add/remove.
type TokenRequest struct {
	Token string `json:"token"`
}

type CleanupResponse struct {
	Removed int `json:"removed"`
}

/* HELPER  */

func NewBlobMessage(role string, b []byte, mimeType string) *Message {
	if mimeType == "" {
		mimeType = http.DetectContentType(b)
	}
	return &Message{
		Role: agent.Role(role),
		Parts: []*agent.Part{
			newBlobPart(b, mimeType),
		},
	}
}

func NewTextMessage(role string, text string) *Message {
	return &Message{
		Role: agent.Role(role),
		Parts: []*agent.Part{
			NewTextPart(text),
		},
	}
}

func NewTextPart(text string) *agent.Part {
	return &agent.Part{
		Text: text,
	}
}

func newBlobPart(b []byte, mime string) *agent.Part {
	return &agent.Part{
		Blob: &agent.Blob{
			Bytes: b,
			Mime:  mime,
		},
	}
}
