// Package spawner runs child bots on tokens allocated from the pool.
// It owns the process-side lifecycle (start, stop, reap) and reports
// every status transition back to the pool manager.
package spawner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/minimancer/botmother/agent"
	"github.com/minimancer/botmother/pool"
)

// Kind selects the child bot behavior.
type Kind string

const (
	KindEcho        Kind = "echo"
	KindPersonality Kind = "personality"
)

// Completer produces replies for personality bots. The agent
// satisfies it.
type Completer interface {
	Completion(ctx context.Context, msgs []*agent.Message) (*agent.Message, error)
}

// Minter acquires a brand-new token when the pool is exhausted.
type Minter interface {
	Mint(ctx context.Context, name, username string) (string, error)
}

// ErrPoolExhausted is returned when no token is available and no
// minter is configured to create one.
var ErrPoolExhausted = fmt.Errorf("no bot tokens available")

type SpawnRequest struct {
	Name        string
	Purpose     string
	Personality string
	Kind        Kind
	UserID      string
	// Token, when set, bypasses the pool entirely (fresh-mint path).
	Token string
}

func (r *SpawnRequest) validate() error {
	if len(r.Name) < 2 {
		return fmt.Errorf("bot name must be at least 2 characters")
	}
	if r.Kind == "" {
		r.Kind = KindEcho
	}
	if r.Kind != KindEcho && r.Kind != KindPersonality {
		return fmt.Errorf("unknown bot kind: %s", r.Kind)
	}
	if r.Kind == KindPersonality && r.Personality == "" {
		r.Personality = "helpful"
	}
	return nil
}

// Spawner starts and stops child bot processes. One child per token.
type Spawner struct {
	mu      sync.Mutex
	pool    *pool.Manager
	ai      Completer
	minter  Minter
	newBot  NewBotFunc
	running map[string]*child
}

type child struct {
	bot    ChildBot
	kind   Kind
	cancel context.CancelFunc
}

type Option func(*Spawner)

// WithCompleter enables personality bots backed by ai.
func WithCompleter(ai Completer) Option {
	return func(s *Spawner) { s.ai = ai }
}

// WithMinter enables the fresh-token fallback on pool exhaustion.
func WithMinter(m Minter) Option {
	return func(s *Spawner) { s.minter = m }
}

// WithNewBotFunc overrides the child bot constructor. Tests use it to
// avoid talking to the platform.
func WithNewBotFunc(fn NewBotFunc) Option {
	return func(s *Spawner) { s.newBot = fn }
}

func New(p *pool.Manager, opts ...Option) *Spawner {
	s := &Spawner{
		pool:    p,
		newBot:  newTelebot,
		running: map[string]*child{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Spawn allocates a token, starts the child bot on it, and returns the
// active instance. On startup failure the instance is marked error and
// deallocated so the failure leaves no orphan allocation behind.
func (s *Spawner) Spawn(ctx context.Context, req SpawnRequest) (*pool.BotInstance, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.Kind == KindPersonality && s.ai == nil {
		return nil, fmt.Errorf("personality bots need a completion backend")
	}

	token := req.Token
	if token == "" {
		var ok bool
		token, ok = s.pool.GetAvailableToken()
		if !ok {
			if s.minter == nil {
				return nil, ErrPoolExhausted
			}
			var err error
			token, err = s.minter.Mint(ctx, req.Name, botUsername(req.Name))
			if err != nil {
				return nil, fmt.Errorf("pool exhausted and minting failed: %w", err)
			}
			slog.Info("minted fresh token", "bot", req.Name)
		}
	}

	instance, err := s.pool.AllocateToken(token, req.Name,
		pool.WithUserID(req.UserID),
		pool.WithPersonality(req.Personality),
	)
	if err != nil {
		return nil, err
	}

	bot, err := s.newBot(token)
	if err != nil {
		s.pool.UpdateBotStatus(token, pool.StatusError, "")
		s.pool.DeallocateToken(token)
		return nil, fmt.Errorf("failed to start child bot %q: %w", req.Name, err)
	}

	// handlers outlive the spawn request, so they must not capture
	// ctx; the child owns its own context until Stop cancels it
	runCtx, cancel := context.WithCancel(context.Background())

	switch req.Kind {
	case KindEcho:
		registerEcho(bot)
	case KindPersonality:
		registerPersonality(runCtx, bot, s.ai, req)
	}

	go bot.Start()

	s.mu.Lock()
	s.running[token] = &child{bot: bot, kind: req.Kind, cancel: cancel}
	s.mu.Unlock()

	s.pool.UpdateBotStatus(token, pool.StatusRunning, bot.Username())
	slog.Info("spawned child bot",
		"bot", req.Name,
		"kind", req.Kind,
		"username", bot.Username(),
	)

	updated, _ := s.pool.BotByName(req.Name)
	if updated != nil {
		return updated, nil
	}
	return instance, nil
}

// Stop halts the named child bot and marks it stopped. Unknown names
// report false, so duplicate stop requests stay harmless.
func (s *Spawner) Stop(name string) bool {
	instance, found := s.pool.BotByName(name)
	if !found {
		return false
	}
	if instance.Status == pool.StatusStopped || instance.Status == pool.StatusError {
		return false
	}

	s.mu.Lock()
	c, ok := s.running[instance.Token]
	delete(s.running, instance.Token)
	s.mu.Unlock()

	s.pool.UpdateBotStatus(instance.Token, pool.StatusStopping, "")
	if ok {
		c.cancel()
		c.bot.Stop()
	}
	s.pool.UpdateBotStatus(instance.Token, pool.StatusStopped, "")

	slog.Info("stopped child bot", "bot", instance.Name)
	return true
}

// StopAll halts every running child.
func (s *Spawner) StopAll() {
	s.pool.StopAllBots()

	s.mu.Lock()
	children := s.running
	s.running = map[string]*child{}
	s.mu.Unlock()

	for token, c := range children {
		c.cancel()
		c.bot.Stop()
		s.pool.UpdateBotStatus(token, pool.StatusStopped, "")
	}
	slog.Info("stopped all child bots", "count", len(children))
}

// Reap deallocates every instance left in a terminal status and
// returns the count, reclaiming tokens of bots that stopped or died.
func (s *Spawner) Reap() int {
	return s.pool.CleanupStoppedBots()
}

// botUsername derives a platform handle suggestion from the bot name.
func botUsername(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r == ' ', r == '-':
			out = append(out, '_')
		}
	}
	return string(out) + "_bot"
}
