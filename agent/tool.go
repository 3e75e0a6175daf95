package agent

import (
	"context"
	"fmt"
)

const ParameterTypeObject = "object"

// Tools holds the providers bound to an agent.
type Tools []ToolProvider

type ToolProvider interface {
	ToolDefinition
	XTool
}

type ToolDefinition interface {
	Def() Tool
}

type XTool interface {
	// invoke the tool call
	Call(ctx context.Context, fn FunctionCall) (*ToolResponse, error)
	// a tool failing Ping at build time is not registered
	Ping(ctx context.Context) error
}

func (t Tools) Invoke(ctx context.Context, fc FunctionCall) (*ToolResponse, error) {
	for _, tp := range t {
		if tp.Def().Function.Name == fc.Name {
			return tp.Call(ctx, fc)
		}
	}
	return nil, fmt.Errorf("tool not found: %s", fc.Name)
}

func (t Tools) Def() []Tool {
	defs := make([]Tool, len(t))
	for i := range t {
		defs[i] = t[i].Def()
	}
	return defs
}

// Tool wraps a single tool entry. It marshals into json before it is
// sent to the agent provider.
type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

type Function struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

// ParameterSchema holds a minimal json-schema for the function inputs.
type ParameterSchema struct {
	Type       string                         `json:"type"`
	Properties map[string]ParameterDefinition `json:"properties"`
	Required   []string                       `json:"required,omitempty"`
}

type ParameterDefinition struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// ToolCall is one entry of the model's tool_calls array.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall holds the function name and its raw json arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResponse is the tool result entry fed back to the model.
type ToolResponse struct {
	Name   string
	Output map[string]any
}
