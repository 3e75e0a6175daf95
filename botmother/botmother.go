package botmother

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/minimancer/botmother/agent"
	"github.com/minimancer/botmother/agent/driver"
	"github.com/minimancer/botmother/agent/tooldef"
	"github.com/minimancer/botmother/agent/toolprovider/botops"
	"github.com/minimancer/botmother/pool"
	"github.com/minimancer/botmother/spawner"
)

// systemPrompt shapes the mother agent. Child bots get their own
// prompt from the spawner.
const systemPrompt = `You are BotMother, an assistant that creates and manages Telegram bots through conversation.
You can deploy simple echo bots and AI personality bots, stop them, list them, and report on the token pool.
Use the bot tools for any create/stop/list/stats request. Ask for a bot name when the user did not give one.
Keep answers short and practical; never mention tokens or credentials to the user.`

// Agent is the completion surface the rest of the system consumes.
type Agent interface {
	Completion(ctx context.Context, msgs []*agent.Message) (*agent.Message, error)
}

// BotMother wires the pool, the spawner, and the agent together.
type BotMother struct {
	Agent   Agent
	Pool    *pool.Manager
	Spawner *spawner.Spawner
}

type Option func(*buildOptions)

type buildOptions struct {
	minter spawner.Minter
}

// WithMinter plugs a token source for the pool-exhausted fallback,
// typically a botfather.Client over an authenticated user session.
func WithMinter(m spawner.Minter) Option {
	return func(o *buildOptions) { o.minter = m }
}

func New(ctx context.Context, cfg *Config, opts ...Option) (*BotMother, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Server.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
		slog.Debug("configuration", "config", cfg)
	}

	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}

	// llm provider
	if cfg.Provider.Endpoint != "" {
		cfg.Provider.Options.Endpoint = cfg.Provider.Endpoint
	}
	var provider agent.Provider
	var err error
	switch cfg.Provider.Name {
	case "ollama":
		provider, err = driver.NewOllamaAdapter(cfg.Provider.Model, cfg.Provider.ApiKey, &cfg.Provider.Options)
	case "genai":
		provider, err = driver.NewGeminiAdapter(ctx, cfg.Provider.Model, cfg.Provider.ApiKey, &cfg.Provider.Options)
	default:
		err = fmt.Errorf("unknown provider specified in config: %s", cfg.Provider.Name)
	}
	if err != nil {
		slog.Error("botmother init provider", "error", err)
		return nil, err
	}

	// token pool
	p := pool.NewManager(cfg.Pool.File, pool.Options{RecycleOnCleanup: cfg.Pool.Recycle})

	// child bots answer with plain completions, no tools
	childAgent := agent.New(provider)

	spawnOpts := []spawner.Option{spawner.WithCompleter(childAgent)}
	if bo.minter != nil {
		spawnOpts = append(spawnOpts, spawner.WithMinter(bo.minter))
	}
	sp := spawner.New(p, spawnOpts...)

	// external tools from config plus the bot-operation tools
	tools, err := tooldef.Build(ctx, cfg.Tools)
	if err != nil {
		slog.Error("botmother init tools", "error", err)
		return nil, err
	}
	tools = append(tools, botops.Tools(p, sp)...)
	if cfg.Server.Debug {
		slog.Debug("tools", "registered", tooldef.RegisteredTools())
	}

	mother := agent.New(provider,
		agent.WithTool(tools...),
		agent.WithSystemPrompt(systemPrompt),
	)

	return &BotMother{
		Agent:   mother,
		Pool:    p,
		Spawner: sp,
	}, nil
}

// Shutdown stops every child bot and leaves the pool persisted.
func (bm *BotMother) Shutdown() {
	bm.Spawner.StopAll()
}
