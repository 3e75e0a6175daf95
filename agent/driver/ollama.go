package driver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/minimancer/botmother/agent"
	ollama "github.com/ollama/ollama/api"
)

const defaultOllamaEndpoint = "http://127.0.0.1:11434"

var _ agent.Provider = (*OllamaAPI)(nil)

// OllamaAPI adapts a local ollama server to the agent.Provider
// interface.
type OllamaAPI struct {
	model string
	c     *ollama.Client
	conf  *Config
}

func NewOllamaAdapter(model string, _ string, config *Config) (*OllamaAPI, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama_adapter model cannot be empty")
	}
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = defaultOllamaEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}

	return &OllamaAPI{
		model: model,
		c:     ollama.NewClient(u, http.DefaultClient),
		conf:  config,
	}, nil
}

// Chat implements agent.Provider.
func (oapi *OllamaAPI) Chat(ctx context.Context, req agent.CCReq) (*agent.CCRes, error) {
	msgs := make([]ollama.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		msgs = append(msgs, ollama.Message{
			Role:    string(msg.Role),
			Content: msg.Text(),
		})
	}

	tools := make([]ollama.Tool, 0, len(req.Tools))
	for _, tool := range req.Tools {
		var t ollama.Tool
		transformTool(tool, &t)
		tools = append(tools, t)
	}

	oReq := &ollama.ChatRequest{
		Model:    oapi.model,
		Messages: msgs,
		Stream:   &req.Stream,
		Think:    &req.Think,
		Options: map[string]any{
			"temperature": oapi.conf.Temperature,
			"top_p":       oapi.conf.TopP,
			"top_k":       oapi.conf.TopK,
			"min_p":       oapi.conf.MinP,
		},
		Tools: tools,
	}

	var resp *agent.CCRes
	err := oapi.c.Chat(ctx, oReq, func(cr ollama.ChatResponse) error {
		tcs := []*agent.ToolCall{}
		for _, tc := range cr.Message.ToolCalls {
			tcs = append(tcs, &agent.ToolCall{
				Type: "function",
				Function: agent.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments.String(),
				},
			})
		}

		resp = &agent.CCRes{
			Model:   cr.Model,
			Created: cr.CreatedAt,
			Choices: []agent.Choice{
				{
					Text:         cr.Message.Content,
					FinishReason: cr.DoneReason,
					ToolCalls:    tcs,
				},
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// transformTool maps the agent tool schema onto ollama's.
func transformTool(src agent.Tool, dst *ollama.Tool) {
	dst.Type = src.Type
	dst.Function.Name = src.Function.Name
	dst.Function.Description = src.Function.Description
	dst.Function.Parameters.Type = src.Function.Parameters.Type
	dst.Function.Parameters.Required = src.Function.Parameters.Required

	dst.Function.Parameters.Properties = make(
		map[string]struct {
			Type        ollama.PropertyType `json:"type"`
			Items       any                 `json:"items,omitempty"`
			Description string              `json:"description"`
			Enum        []any               `json:"enum,omitempty"`
		},
	)

	for name, prop := range src.Function.Parameters.Properties {
		var enumAny []any
		for _, e := range prop.Enum {
			enumAny = append(enumAny, e)
		}
		dst.Function.Parameters.Properties[name] = struct {
			Type        ollama.PropertyType `json:"type"`
			Items       any                 `json:"items,omitempty"`
			Description string              `json:"description"`
			Enum        []any               `json:"enum,omitempty"`
		}{
			Type:        ollama.PropertyType{prop.Type},
			Description: prop.Description,
			Enum:        enumAny,
		}
	}
}
