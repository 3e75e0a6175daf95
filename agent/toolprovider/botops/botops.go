// Package botops exposes bot creation and lifecycle operations as
// agent tools, so the conversational front end can drive the spawner
// and the token pool through natural language.
package botops

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/minimancer/botmother/agent"
	"github.com/minimancer/botmother/pool"
	"github.com/minimancer/botmother/spawner"
)

// Tools builds the full set of bot-operation tools bound to p and s.
// Unlike external tools these carry process state, so they are
// constructed directly instead of going through the tooldef registry.
func Tools(p *pool.Manager, s *spawner.Spawner) []agent.ToolProvider {
	return []agent.ToolProvider{
		&createBot{spawner: s},
		&stopBot{spawner: s},
		&listBots{pool: p},
		&poolStats{pool: p},
	}
}

var _ agent.ToolProvider = (*createBot)(nil)

type createBot struct {
	spawner *spawner.Spawner
}

func (c *createBot) Ping(ctx context.Context) error { return nil }

func (c *createBot) Def() agent.Tool {
	return agent.Tool{
		Type: "function",
		Function: agent.Function{
			Name:        "create_bot",
			Description: "create and deploy a new Telegram bot. kind 'echo' repeats messages back, kind 'personality' chats with the given personality",
			Parameters: agent.ParameterSchema{
				Type: agent.ParameterTypeObject,
				Properties: map[string]agent.ParameterDefinition{
					"name": {
						Type:        "string",
						Description: "human-readable bot name, at least 2 characters",
					},
					"purpose": {
						Type:        "string",
						Description: "what the bot is for",
					},
					"kind": {
						Type: "string",
						Enum: []string{"echo", "personality"},
					},
					"personality": {
						Type: "string",
						Enum: []string{"helpful", "professional", "casual", "enthusiastic", "witty", "calm", "playful"},
					},
				},
				Required: []string{"name"},
			},
		},
	}
}

func (c *createBot) Call(ctx context.Context, fc agent.FunctionCall) (*agent.ToolResponse, error) {
	var args struct {
		Name        string `json:"name"`
		Purpose     string `json:"purpose"`
		Kind        string `json:"kind"`
		Personality string `json:"personality"`
		UserID      string `json:"user_id"`
	}
	if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
		return nil, fmt.Errorf("create_bot: bad arguments: %w", err)
	}

	instance, err := c.spawner.Spawn(ctx, spawner.SpawnRequest{
		Name:        args.Name,
		Purpose:     args.Purpose,
		Kind:        spawner.Kind(args.Kind),
		Personality: args.Personality,
		UserID:      args.UserID,
	})
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"name":   instance.Name,
		"status": string(instance.Status),
	}
	if instance.Username != "" {
		out["username"] = instance.Username
		out["link"] = "https://t.me/" + instance.Username
	}
	return &agent.ToolResponse{Name: "create_bot", Output: out}, nil
}

var _ agent.ToolProvider = (*stopBot)(nil)

type stopBot struct {
	spawner *spawner.Spawner
}

func (s *stopBot) Ping(ctx context.Context) error { return nil }

func (s *stopBot) Def() agent.Tool {
	return agent.Tool{
		Type: "function",
		Function: agent.Function{
			Name:        "stop_bot",
			Description: "stop a deployed bot by its name",
			Parameters: agent.ParameterSchema{
				Type: agent.ParameterTypeObject,
				Properties: map[string]agent.ParameterDefinition{
					"name": {Type: "string", Description: "name of the bot to stop"},
				},
				Required: []string{"name"},
			},
		},
	}
}

func (s *stopBot) Call(ctx context.Context, fc agent.FunctionCall) (*agent.ToolResponse, error) {
	var args struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
		return nil, fmt.Errorf("stop_bot: bad arguments: %w", err)
	}

	stopped := s.spawner.Stop(args.Name)
	return &agent.ToolResponse{
		Name: "stop_bot",
		Output: map[string]any{
			"name":    args.Name,
			"stopped": stopped,
		},
	}, nil
}

var _ agent.ToolProvider = (*listBots)(nil)

type listBots struct {
	pool *pool.Manager
}

func (l *listBots) Ping(ctx context.Context) error { return nil }

func (l *listBots) Def() agent.Tool {
	return agent.Tool{
		Type: "function",
		Function: agent.Function{
			Name:        "list_bots",
			Description: "list every deployed bot with its status",
			Parameters: agent.ParameterSchema{
				Type:       agent.ParameterTypeObject,
				Properties: map[string]agent.ParameterDefinition{},
			},
		},
	}
}

func (l *listBots) Call(ctx context.Context, fc agent.FunctionCall) (*agent.ToolResponse, error) {
	bots := []map[string]any{}
	for _, bot := range l.pool.ActiveBots() {
		bots = append(bots, map[string]any{
			"name":     bot.Name,
			"username": bot.Username,
			"status":   string(bot.Status),
			"created":  bot.CreatedAt,
		})
	}
	return &agent.ToolResponse{
		Name:   "list_bots",
		Output: map[string]any{"bots": bots, "count": len(bots)},
	}, nil
}

var _ agent.ToolProvider = (*poolStats)(nil)

type poolStats struct {
	pool *pool.Manager
}

func (p *poolStats) Ping(ctx context.Context) error { return nil }

func (p *poolStats) Def() agent.Tool {
	return agent.Tool{
		Type: "function",
		Function: agent.Function{
			Name:        "pool_stats",
			Description: "report how many bot tokens are available, allocated, and in which status",
			Parameters: agent.ParameterSchema{
				Type:       agent.ParameterTypeObject,
				Properties: map[string]agent.ParameterDefinition{},
			},
		},
	}
}

func (p *poolStats) Call(ctx context.Context, fc agent.FunctionCall) (*agent.ToolResponse, error) {
	stats := p.pool.Stats()
	breakdown := map[string]any{}
	for status, n := range stats.StatusBreakdown {
		breakdown[string(status)] = n
	}
	return &agent.ToolResponse{
		Name: "pool_stats",
		Output: map[string]any{
			"total_tokens":     stats.TotalTokens,
			"available_tokens": stats.AvailableTokens,
			"allocated_tokens": stats.AllocatedTokens,
			"active_bots":      stats.ActiveBots,
			"status_breakdown": breakdown,
		},
	}, nil
}
