package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/minimancer/botmother/agent"
	"google.golang.org/genai"
)

var _ agent.Provider = (*GeminiAdapter)(nil)

// GeminiAdapter adapts the Gemini API to the agent.Provider interface.
type GeminiAdapter struct {
	model string
	cli   *genai.Client
	conf  *Config
}

func NewGeminiAdapter(ctx context.Context, model, key string, config *Config) (*GeminiAdapter, error) {
	if model == "" {
		return nil, fmt.Errorf("gemini_adapter model cannot be empty")
	}

	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed start gemini_adapter: %w", err)
	}

	return &GeminiAdapter{
		model: model,
		cli:   cli,
		conf:  config,
	}, nil
}

// Chat implements agent.Provider.
func (g *GeminiAdapter) Chat(ctx context.Context, req agent.CCReq) (*agent.CCRes, error) {
	var sys *genai.Content
	contents := []*genai.Content{}

	for _, msg := range req.Messages {
		content := &genai.Content{}
		switch msg.Role {
		case agent.RoleAssistant:
			content.Role = genai.RoleModel
		case agent.RoleTool, agent.RoleUser:
			content.Role = genai.RoleUser
		case agent.RoleSystem:
		default:
			return nil, fmt.Errorf("gemini_adapter unknown message role: %v", msg.Role)
		}

		if err := messageToContent(msg, content); err != nil {
			return nil, fmt.Errorf("gemini_adapter failed convert message: %w", err)
		}

		if msg.Role == agent.RoleSystem {
			sys = content
			continue
		}
		contents = append(contents, content)
	}

	if len(contents) == 0 {
		return nil, fmt.Errorf("gemini_adapter content is empty")
	}

	config := genai.GenerateContentConfig{
		SystemInstruction: sys,
		Tools:             toolEncoding(req.Tools),
		Temperature:       g.conf.Temperature,
		TopP:              g.conf.TopP,
		TopK:              g.conf.TopK,
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.model, contents, &config)
	if err != nil {
		return nil, fmt.Errorf("gemini_adapter failed generating content: %w", err)
	}

	toolCalls := []*agent.ToolCall{}
	for _, fc := range resp.FunctionCalls() {
		tc, err := toToolCall(fc)
		if err != nil {
			return nil, fmt.Errorf("gemini_adapter failed function call conversion: %w", err)
		}
		toolCalls = append(toolCalls, tc)
	}

	candidate := resp.Candidates[0]
	return &agent.CCRes{
		ID:      resp.ResponseID,
		Model:   resp.ModelVersion,
		Created: resp.CreateTime,
		Choices: []agent.Choice{
			{
				Text:         resp.Text(),
				ToolCalls:    toolCalls,
				FinishReason: string(candidate.FinishReason),
			},
		},
		Usage: agent.Usage{
			CompletionTokens: candidate.TokenCount,
		},
	}, nil
}

func messageToContent(src *agent.Message, dst *genai.Content) error {
	for _, p := range src.Parts {
		part := &genai.Part{}
		var err error
		switch {
		case p.Text != "":
			part = genai.NewPartFromText(p.Text)
		case p.Blob != nil:
			part = genai.NewPartFromBytes(p.Blob.Bytes, p.Blob.Mime)
		case p.Toolcall != nil:
			part.FunctionCall, err = fromToolCall(p.Toolcall)
		case p.ToolResponse != nil:
			part = genai.NewPartFromFunctionResponse(p.ToolResponse.Name, p.ToolResponse.Output)
		}
		if err != nil {
			return err
		}
		dst.Parts = append(dst.Parts, part)
	}
	return nil
}

func toolEncoding(src []agent.Tool) []*genai.Tool {
	tools := []*genai.Tool{}
	for i := range src {
		tools = append(tools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{toFunctionDeclaration(&src[i])},
		})
	}
	return tools
}

func toFunctionDeclaration(t *agent.Tool) *genai.FunctionDeclaration {
	mapType := func(input string) genai.Type {
		switch strings.ToLower(input) {
		case "string":
			return genai.TypeString
		case "number", "float", "double":
			return genai.TypeNumber
		case "integer", "int":
			return genai.TypeInteger
		case "boolean", "bool":
			return genai.TypeBoolean
		case "object":
			return genai.TypeObject
		case "array":
			return genai.TypeArray
		default:
			return genai.Type(strings.ToUpper(input))
		}
	}

	params := &genai.Schema{
		Type:       mapType(t.Function.Parameters.Type),
		Properties: make(map[string]*genai.Schema),
		Required:   t.Function.Parameters.Required,
	}
	for name, prop := range t.Function.Parameters.Properties {
		params.Properties[name] = &genai.Schema{
			Type:        mapType(prop.Type),
			Description: prop.Description,
			Enum:        prop.Enum,
		}
	}

	return &genai.FunctionDeclaration{
		Name:        t.Function.Name,
		Description: t.Function.Description,
		Parameters:  params,
	}
}

// toToolCall marshals the genai arguments map into the raw json string
// the agent layer carries.
func toToolCall(fc *genai.FunctionCall) (*agent.ToolCall, error) {
	if fc == nil {
		return nil, nil
	}
	args, err := json.Marshal(fc.Args)
	if err != nil {
		return nil, fmt.Errorf("gemini_adapter failed marshal arguments: %w", err)
	}
	return &agent.ToolCall{
		ID:   fc.ID,
		Type: "function",
		Function: agent.FunctionCall{
			Name:      fc.Name,
			Arguments: string(args),
		},
	}, nil
}

func fromToolCall(tc *agent.ToolCall) (*genai.FunctionCall, error) {
	if tc == nil {
		return nil, nil
	}
	args := map[string]any{}
	if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tool call arguments: %w", err)
	}
	return &genai.FunctionCall{
		ID:   tc.ID,
		Name: tc.Function.Name,
		Args: args,
	}, nil
}
