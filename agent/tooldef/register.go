// Package tooldef manages tool provider life cycle: registration at
// init time and config-driven construction at startup.
package tooldef

import (
	"context"
	"log/slog"
	"sync"

	"github.com/minimancer/botmother/agent"
)

// Config describes one tool entry of the server configuration.
type Config struct {
	// name a provider registered itself under
	Name string `yaml:"name"`
	// connection string for an external call
	Endpoint string `yaml:"endpoint"`
	ApiKey   string `yaml:"apikey"`
	// skip the build-time reachability check
	DisablePing bool `yaml:"disableping"`
}

type ProviderConstructFunc func(cfg Config) agent.ToolProvider

var (
	dmutex    sync.RWMutex
	providers = make(map[string]ProviderConstructFunc)
)

// Register makes a tool provider constructor available under name.
// It panics on a nil constructor or a duplicate name, like a database
// driver registration would.
func Register(name string, p ProviderConstructFunc) {
	dmutex.Lock()
	defer dmutex.Unlock()
	if p == nil {
		panic("tooldef: Register provider is nil")
	}
	if _, dup := providers[name]; dup {
		panic("tooldef: Register called twice for provider " + name)
	}
	providers[name] = p
}

// Build constructs every configured tool whose provider is registered,
// dropping the ones that fail their ping.
func Build(ctx context.Context, cfgs []Config) ([]agent.ToolProvider, error) {
	type candidate struct {
		provider agent.ToolProvider
		config   Config
	}
	toBuild := []candidate{}

	dmutex.RLock()
	for _, cfg := range cfgs {
		fn, ok := providers[cfg.Name]
		if !ok {
			slog.Warn("tool configured but not registered", "name", cfg.Name)
			continue
		}
		toBuild = append(toBuild, candidate{provider: fn(cfg), config: cfg})
	}
	dmutex.RUnlock()

	tools := []agent.ToolProvider{}
	for _, item := range toBuild {
		if !item.config.DisablePing {
			if err := item.provider.Ping(ctx); err != nil {
				slog.Warn("skip tool that does not respond to ping",
					"name", item.config.Name,
					"endpoint", item.config.Endpoint,
					"error", err,
				)
				continue
			}
		}
		tools = append(tools, item.provider)
		slog.Debug("tool initiated", "name", item.config.Name, "endpoint", item.config.Endpoint)
	}
	return tools, nil
}

// RegisteredTools lists the names of all registered providers.
func RegisteredTools() []string {
	dmutex.RLock()
	defer dmutex.RUnlock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	return names
}
