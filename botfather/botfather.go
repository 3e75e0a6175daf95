// Package botfather scripts the platform's official bot-registration
// chat the way a human would: send a command, wait, send the answers,
// read the replies back. It is the fallback token source when the pool
// runs dry.
package botfather

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// Session is an authenticated user-account chat with the BotFather
// contact. Implementations own transport and auth; tests fake it.
type Session interface {
	Send(ctx context.Context, text string) error
	// History returns up to n of the latest messages, newest first.
	History(ctx context.Context, n int) ([]string, error)
}

// Command is one entry for the /setcommands flow.
type Command struct {
	Command     string
	Description string
}

var tokenPattern = regexp.MustCompile(`\d+:[A-Za-z0-9_-]{35}`)

// Client drives BotFather conversations over a Session.
type Client struct {
	session Session
	wait    time.Duration
}

type Option func(*Client)

// WithStepDelay sets the pause between conversation steps. BotFather
// replies are not instant; pushing the next answer too early desyncs
// the flow.
func WithStepDelay(d time.Duration) Option {
	return func(c *Client) { c.wait = d }
}

func New(session Session, opts ...Option) *Client {
	c := &Client{
		session: session,
		wait:    2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mint registers a brand-new bot through the /newbot flow and scrapes
// the issued token out of the confirmation message.
func (c *Client) Mint(ctx context.Context, name, username string) (string, error) {
	slog.Info("minting new bot via botfather", "name", name, "username", username)

	for _, msg := range []string{"/newbot", name, username} {
		if err := c.step(ctx, msg); err != nil {
			return "", err
		}
	}

	replies, err := c.session.History(ctx, 3)
	if err != nil {
		return "", fmt.Errorf("botfather: failed reading replies: %w", err)
	}

	for _, reply := range replies {
		if token := tokenPattern.FindString(reply); token != "" {
			return token, nil
		}
		if rejected(reply) {
			return "", fmt.Errorf("botfather rejected registration: %s", firstLine(reply))
		}
	}
	return "", fmt.Errorf("botfather: no token found in replies")
}

// SetCommands runs the /setcommands flow for an existing bot.
func (c *Client) SetCommands(ctx context.Context, botUsername string, commands []Command) error {
	var list strings.Builder
	for _, cmd := range commands {
		fmt.Fprintf(&list, "%s - %s\n", cmd.Command, cmd.Description)
	}
	return c.configure(ctx, "/setcommands", botUsername, strings.TrimSpace(list.String()))
}

// SetDescription runs the /setdescription flow.
func (c *Client) SetDescription(ctx context.Context, botUsername, description string) error {
	return c.configure(ctx, "/setdescription", botUsername, description)
}

// SetAboutText runs the /setabouttext flow (the profile short text).
func (c *Client) SetAboutText(ctx context.Context, botUsername, about string) error {
	return c.configure(ctx, "/setabouttext", botUsername, about)
}

// configure is the shared command → @username → payload conversation.
func (c *Client) configure(ctx context.Context, command, botUsername, payload string) error {
	if !strings.HasPrefix(botUsername, "@") {
		botUsername = "@" + botUsername
	}

	for _, msg := range []string{command, botUsername, payload} {
		if err := c.step(ctx, msg); err != nil {
			return err
		}
	}

	replies, err := c.session.History(ctx, 3)
	if err != nil {
		return fmt.Errorf("botfather: failed reading replies: %w", err)
	}
	for _, reply := range replies {
		if accepted(reply) {
			return nil
		}
		if rejected(reply) {
			return fmt.Errorf("botfather rejected %s: %s", command, firstLine(reply))
		}
	}
	// BotFather does not always confirm explicitly
	return nil
}

func (c *Client) step(ctx context.Context, text string) error {
	if err := c.session.Send(ctx, text); err != nil {
		return fmt.Errorf("botfather: send failed: %w", err)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.wait):
		return nil
	}
}

func accepted(reply string) bool {
	return containsAny(reply, "success", "updated", "done")
}

func rejected(reply string) bool {
	return containsAny(reply, "sorry", "invalid", "taken", "wrong", "error")
}

func containsAny(s string, words ...string) bool {
	s = strings.ToLower(s)
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
