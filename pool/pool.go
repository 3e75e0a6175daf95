package pool

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// Manager is the sole owner of the token pool and the active-bot
// registry. It persists itself to the pool file after every mutating
// operation, so the file is the source of truth across restarts.
//
// A single Manager per process is assumed to be the only writer of its
// pool file. Methods are safe for concurrent use within one process.
type Manager struct {
	mu   sync.Mutex
	path string
	opts Options

	available []string
	active    map[string]*BotInstance
	allocated map[string]struct{}
}

type Options struct {
	// RecycleOnCleanup returns tokens of cleaned-up bots to the
	// available pool instead of retiring them permanently.
	RecycleOnCleanup bool
}

// NewManager loads the pool from path, or seeds it from the environment
// when the file is missing or unreadable. A corrupt file never fails
// construction; the condition is logged and the empty/seeded pool wins.
func NewManager(path string, opts Options) *Manager {
	m := &Manager{
		path:      path,
		opts:      opts,
		active:    map[string]*BotInstance{},
		allocated: map[string]struct{}{},
	}
	m.load()
	return m
}

// GetAvailableToken reserves the first free token and returns it. The
// reservation is in-memory only: it is not written to the pool file, so
// a crash before AllocateToken returns the token to the pool. The
// second return is false when the pool is exhausted, which is the
// caller's cue to mint a fresh token instead.
func (m *Manager) GetAvailableToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, token := range m.available {
		if _, taken := m.allocated[token]; taken {
			continue
		}
		if _, active := m.active[token]; active {
			// should be unreachable, the invariant keeps the
			// sets disjoint
			continue
		}
		m.available = slices.Delete(m.available, i, i+1)
		m.allocated[token] = struct{}{}
		slog.Info("reserved pool token", "token", redact(token))
		return token, true
	}

	slog.Warn("no available tokens in pool")
	return "", false
}

// AllocateOption sets optional provenance metadata on a new instance.
type AllocateOption func(*BotInstance)

func WithUserID(id string) AllocateOption {
	return func(b *BotInstance) { b.UserID = id }
}

func WithPersonality(p string) AllocateOption {
	return func(b *BotInstance) { b.PersonalityType = p }
}

// AllocateToken binds token to a new BotInstance in status "starting".
// The token does not have to come from GetAvailableToken: freshly
// minted tokens are allocated directly through this path. Allocating a
// token that already has an owner fails without mutating anything.
func (m *Manager) AllocateToken(token, botName string, opts ...AllocateOption) (*BotInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if owner, ok := m.active[token]; ok {
		return nil, fmt.Errorf("token already allocated to bot: %s", owner.Name)
	}

	bot := &BotInstance{
		Token:     token,
		Name:      botName,
		Status:    StatusStarting,
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(bot)
	}

	// defensive: a directly-allocated token may still sit in the
	// available list
	if i := slices.Index(m.available, token); i >= 0 {
		m.available = slices.Delete(m.available, i, i+1)
	}
	m.active[token] = bot
	m.allocated[token] = struct{}{}
	m.save()

	slog.Info("allocated token", "bot", botName, "user_id", bot.UserID, "token", redact(token))
	return bot, nil
}

// DeallocateToken removes the bot instance owning token. It reports
// false for an unknown token so duplicate stop requests stay harmless.
// The token is not returned to the available pool.
func (m *Manager) DeallocateToken(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deallocate(token)
}

func (m *Manager) deallocate(token string) bool {
	bot, ok := m.active[token]
	if !ok {
		slog.Warn("token not found in active bots", "token", redact(token))
		return false
	}

	delete(m.active, token)
	delete(m.allocated, token)
	m.save()

	slog.Info("deallocated token", "bot", bot.Name, "token", redact(token))
	return true
}

// UpdateBotStatus records a lifecycle transition reported by the child
// bot runtime, optionally setting the platform-assigned username.
func (m *Manager) UpdateBotStatus(token string, status Status, username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	bot, ok := m.active[token]
	if !ok {
		slog.Warn("cannot update status for unknown token", "token", redact(token))
		return false
	}

	bot.Status = status
	if username != "" {
		bot.Username = username
	}
	m.save()

	slog.Debug("updated bot status", "bot", bot.Name, "status", status)
	return true
}

// ActiveBots returns copies of every active instance.
func (m *Manager) ActiveBots() []*BotInstance {
	m.mu.Lock()
	defer m.mu.Unlock()

	bots := make([]*BotInstance, 0, len(m.active))
	for _, bot := range m.active {
		b := *bot
		bots = append(bots, &b)
	}
	return bots
}

// RunningBots returns copies of instances currently in status running.
func (m *Manager) RunningBots() []*BotInstance {
	m.mu.Lock()
	defer m.mu.Unlock()

	bots := []*BotInstance{}
	for _, bot := range m.active {
		if bot.Status == StatusRunning {
			b := *bot
			bots = append(bots, &b)
		}
	}
	return bots
}

// BotByName finds an active instance by case-insensitive name. Name
// uniqueness is a convention, not enforced; the first match wins.
func (m *Manager) BotByName(name string) (*BotInstance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, bot := range m.active {
		if strings.EqualFold(bot.Name, name) {
			b := *bot
			return &b, true
		}
	}
	return nil, false
}

// Stats describes the pool at a point in time.
type Stats struct {
	TotalTokens     int            `json:"total_tokens"`
	AvailableTokens int            `json:"available_tokens"`
	AllocatedTokens int            `json:"allocated_tokens"`
	ActiveBots      int            `json:"active_bots"`
	StatusBreakdown map[Status]int `json:"status_breakdown"`
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		TotalTokens:     len(m.available) + len(m.allocated),
		AvailableTokens: len(m.available),
		AllocatedTokens: len(m.allocated),
		ActiveBots:      len(m.active),
		StatusBreakdown: map[Status]int{},
	}
	for _, bot := range m.active {
		s.StatusBreakdown[bot.Status]++
	}
	return s
}

// CleanupStoppedBots deallocates every instance in a terminal status
// and returns how many were removed. By default the tokens are retired
// from the pool for good; Options.RecycleOnCleanup puts them back in
// the available list instead.
func (m *Manager) CleanupStoppedBots() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	stopped := []string{}
	for token, bot := range m.active {
		if bot.Status.terminal() {
			stopped = append(stopped, token)
		}
	}

	for _, token := range stopped {
		m.deallocate(token)
		if m.opts.RecycleOnCleanup {
			m.available = append(m.available, token)
			m.save()
		}
	}

	slog.Info("cleaned up stopped bots", "count", len(stopped))
	return len(stopped)
}

// StopAllBots marks every running instance as stopping with a single
// persist at the end. Stopping the underlying processes is the
// runtime's job; it observes the status flag.
func (m *Manager) StopAllBots() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, bot := range m.active {
		if bot.Status == StatusRunning {
			bot.Status = StatusStopping
		}
	}
	m.save()
	slog.Info("marked bots as stopping", "count", len(m.active))
}

// AddToken appends a structurally valid, unseen token to the pool.
func (m *Manager) AddToken(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !ValidToken(token) {
		slog.Error("invalid token format", "token", redact(token))
		return false
	}
	if slices.Contains(m.available, token) {
		slog.Warn("token already in pool", "token", redact(token))
		return false
	}
	if _, taken := m.allocated[token]; taken {
		slog.Warn("token already allocated", "token", redact(token))
		return false
	}

	m.available = append(m.available, token)
	m.save()

	slog.Info("added token to pool", "token", redact(token))
	return true
}

// RemoveToken takes a token out of the available pool. Allocated
// tokens must be deallocated first.
func (m *Manager) RemoveToken(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.allocated[token]; taken {
		slog.Error("cannot remove allocated token", "token", redact(token))
		return false
	}

	if i := slices.Index(m.available, token); i >= 0 {
		m.available = slices.Delete(m.available, i, i+1)
		m.save()
		slog.Info("removed token from pool", "token", redact(token))
		return true
	}

	slog.Warn("token not found in pool", "token", redact(token))
	return false
}
