package pool

import (
	"strings"
	"time"
)

// Status of a child bot over its lifetime. The spawner reports
// transitions back through Manager.UpdateBotStatus.
type Status string

const (
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusStopped  Status = "stopped"
	StatusError    Status = "error"
)

// terminal reports whether a bot in this status is done for good.
func (s Status) terminal() bool {
	return s == StatusStopped || s == StatusError
}

// BotInstance binds one token to one running child bot.
type BotInstance struct {
	Token string `json:"token"`
	Name  string `json:"name"`
	// assigned by the platform, empty until the bot authenticated.
	// These keys stay in the file even when empty; the pool file is
	// a contract other tooling reads.
	Username        string    `json:"username"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UserID          string    `json:"user_id"`
	PersonalityType string    `json:"personality_type"`
}

// ValidToken checks the structural shape of a bot token: a numeric id,
// a colon, and a secret of at least 5 characters, 10 characters minimum
// overall. It does not talk to the platform.
func ValidToken(token string) bool {
	if len(token) < 10 {
		return false
	}
	id, secret, ok := strings.Cut(token, ":")
	if !ok || id == "" || len(secret) < 5 {
		return false
	}
	// exactly one separator
	if strings.Contains(secret, ":") {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// redact shortens a token for log output.
func redact(token string) string {
	if len(token) <= 10 {
		return token
	}
	return token[:10] + "..."
}
