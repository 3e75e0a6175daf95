package pool

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// on-disk schema, the durable contract other tooling may read.
type poolFile struct {
	AvailableTokens []string                `json:"available_tokens"`
	ActiveBots      map[string]*BotInstance `json:"active_bots"`
}

// load reads the pool file. A missing file means a fresh pool and a
// corrupt one must not crash the process; both fall back to seeding
// from the environment.
func (m *Manager) load() {
	b, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("no token pool file found, initializing empty pool", "path", m.path)
		} else {
			slog.Error("failed to read token pool file", "path", m.path, "error", err)
		}
		m.seedFromEnv()
		return
	}

	var data poolFile
	if err := json.Unmarshal(b, &data); err != nil {
		slog.Error("failed to decode token pool file", "path", m.path, "error", err)
		m.seedFromEnv()
		return
	}

	m.available = data.AvailableTokens
	for token, bot := range data.ActiveBots {
		m.active[token] = bot
		// every persisted active bot holds its token
		m.allocated[token] = struct{}{}
	}
	// a token must never be both available and allocated
	m.available = filterAllocated(m.available, m.allocated)

	slog.Info("loaded token pool",
		"available", len(m.available),
		"active_bots", len(m.active),
	)
}

func filterAllocated(tokens []string, allocated map[string]struct{}) []string {
	out := tokens[:0]
	for _, t := range tokens {
		if _, taken := allocated[t]; !taken {
			out = append(out, t)
		}
	}
	return out
}

// seedFromEnv initializes the available pool from the environment:
// BOT_TOKEN_POOL as a JSON array first, else numbered BOT_TOKEN_1,
// BOT_TOKEN_2, ... scanned until the sequence breaks. Neither being
// set leaves a valid empty pool.
func (m *Manager) seedFromEnv() {
	if raw := os.Getenv("BOT_TOKEN_POOL"); raw != "" {
		var tokens []string
		if err := json.Unmarshal([]byte(raw), &tokens); err == nil {
			m.available = tokens
			slog.Info("seeded tokens from BOT_TOKEN_POOL", "count", len(tokens))
			return
		}
		slog.Warn("BOT_TOKEN_POOL is not valid JSON, falling back to numbered tokens")
	}

	for i := 1; ; i++ {
		token := os.Getenv(fmt.Sprintf("BOT_TOKEN_%d", i))
		if token == "" {
			break
		}
		m.available = append(m.available, token)
	}
	slog.Info("seeded tokens from numbered variables", "count", len(m.available))
}

// save rewrites the whole pool file. A write failure is logged but the
// in-memory mutation stands; the next successful save reconverges the
// file. Caller holds the lock.
func (m *Manager) save() {
	data := poolFile{
		AvailableTokens: m.available,
		ActiveBots:      m.active,
	}
	if data.AvailableTokens == nil {
		data.AvailableTokens = []string{}
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("failed to encode token pool", "error", err)
		return
	}

	// full rewrite through a temp file so readers never observe a
	// partial pool
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		slog.Error("failed to save token pool", "path", m.path, "error", err)
		return
	}
	if err := os.Rename(tmp, m.path); err != nil {
		slog.Error("failed to replace token pool file", "path", m.path, "error", err)
		return
	}
	slog.Debug("saved token pool", "path", filepath.Clean(m.path))
}
