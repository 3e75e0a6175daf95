package spawner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/minimancer/botmother/agent"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

// ChildBot is the slice of telebot a child runner needs.
type ChildBot interface {
	Handle(endpoint any, h tele.HandlerFunc, m ...tele.MiddlewareFunc)
	Start()
	Stop()
	Username() string
}

// NewBotFunc builds a child bot from a token.
type NewBotFunc func(token string) (ChildBot, error)

// teleChild wraps *tele.Bot to expose the authenticated username.
type teleChild struct {
	*tele.Bot
}

func (tc *teleChild) Username() string {
	if tc.Me == nil {
		return ""
	}
	return tc.Me.Username
}

func newTelebot(token string) (ChildBot, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	return &teleChild{Bot: bot}, nil
}

// per-chat message budget. Telegram throttles bots that flood a
// chat, so the child drops excess updates before they cost an API
// call.
const (
	chatRate  = rate.Limit(1)
	chatBurst = 3
)

type chatLimiter struct {
	mu sync.Mutex
	m  map[int64]*rate.Limiter
}

func newChatLimiter() *chatLimiter {
	return &chatLimiter{m: map[int64]*rate.Limiter{}}
}

func (cl *chatLimiter) allow(id int64) bool {
	cl.mu.Lock()
	l, ok := cl.m[id]
	if !ok {
		l = rate.NewLimiter(chatRate, chatBurst)
		cl.m[id] = l
	}
	cl.mu.Unlock()
	return l.Allow()
}

// throttle silently drops updates from chats over their budget.
func throttle(cl *chatLimiter) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if chat := c.Chat(); chat != nil && !cl.allow(chat.ID) {
				slog.Debug("rate limited chat", "chat", chat.ID)
				return nil
			}
			return next(c)
		}
	}
}

// registerEcho wires the simplest child: it repeats text back.
func registerEcho(bot ChildBot) {
	bot.Handle("/start", func(c tele.Context) error {
		return c.Send("hi.. I echo whatever you say")
	})
	bot.Handle(tele.OnText, func(c tele.Context) error {
		return c.Send(c.Text())
	}, throttle(newChatLimiter()))
}

// registerPersonality wires a child that answers through the agent
// with a personality-flavored system prompt.
func registerPersonality(ctx context.Context, bot ChildBot, ai Completer, req SpawnRequest) {
	sys := agent.NewTextMessage(agent.RoleSystem, personalityPrompt(req))

	bot.Handle("/start", func(c tele.Context) error {
		return c.Send(fmt.Sprintf("hi.. I'm %s. %s", req.Name, req.Purpose))
	})
	bot.Handle(tele.OnText, func(c tele.Context) error {
		res, err := ai.Completion(ctx, []*agent.Message{
			sys,
			agent.NewTextMessage(agent.RoleUser, c.Text()),
		})
		if err != nil {
			slog.Error("child bot completion failed", "bot", req.Name, "error", err)
			return c.Send("service unavailable")
		}
		return c.Send(res.Text())
	}, throttle(newChatLimiter()))
}

// personality traits a created bot can carry.
var personalityTraits = map[string]string{
	"helpful":      "You are warm, patient, and always look for the most useful answer.",
	"professional": "You are precise and formal, like a seasoned consultant.",
	"casual":       "You are laid-back and conversational, a friend texting back.",
	"enthusiastic": "You are energetic and encouraging about everything the user brings up.",
	"witty":        "You are quick with wordplay and light sarcasm, never mean.",
	"calm":         "You are measured and soothing, keeping every exchange low-stress.",
	"playful":      "You joke around and keep the conversation fun.",
}

func personalityPrompt(req SpawnRequest) string {
	trait, ok := personalityTraits[strings.ToLower(req.Personality)]
	if !ok {
		trait = personalityTraits["helpful"]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a Telegram bot.\n", req.Name)
	if req.Purpose != "" {
		fmt.Fprintf(&b, "Purpose: %s\n", req.Purpose)
	}
	b.WriteString(trait)
	b.WriteString("\nKeep replies short enough for a chat window.")
	return b.String()
}
