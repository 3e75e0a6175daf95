package agent

import (
	"context"
	"fmt"
	"log/slog"
)

// State is exchanged between nodes.
type State struct {
	Message []*Message
}

// Node is the unit of execution in the graph.
type Node interface {
	// process the state and produce the next node's name; an empty
	// name (or "end") finishes the run.
	Execute(ctx context.Context, state State) (next string, newState State, err error)
	Name() string
}

// Graph holds nodes and manages the execution flow.
type Graph struct {
	nodes map[string]Node
}

func NewGraph() *Graph {
	return &Graph{nodes: map[string]Node{}}
}

func (g *Graph) AddNode(node Node) {
	g.nodes[node.Name()] = node
}

func (g *Graph) Run(ctx context.Context, entrypoint string, initState State) (*Message, error) {
	current, ok := g.nodes[entrypoint]
	if !ok {
		return nil, fmt.Errorf("entrypoint node '%s' not found", entrypoint)
	}

	state := initState
	for {
		next, newState, err := current.Execute(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("failed executing node '%s': %w", current.Name(), err)
		}
		state = newState

		if next == "" || next == "end" {
			return state.Message[len(state.Message)-1], nil
		}

		current, ok = g.nodes[next]
		if !ok {
			return nil, fmt.Errorf("next node '%s' not found", next)
		}
	}
}

// ToolNode runs a single tool and routes back to the agent node.
type ToolNode struct {
	tp ToolProvider
}

func NewToolNode(tool ToolProvider) *ToolNode {
	return &ToolNode{tp: tool}
}

func (tn *ToolNode) Name() string {
	return tn.tp.Def().Function.Name
}

func (tn *ToolNode) Execute(ctx context.Context, state State) (string, State, error) {
	last := state.Message[len(state.Message)-1]

	tc, ok := last.ToolCall()
	if !ok {
		return "", state, fmt.Errorf("expected a tool call in the last message")
	}
	if tc.Function.Name != tn.Name() {
		return "", state, fmt.Errorf("routing error, expected tool call for '%s', got '%s'", tn.Name(), tc.Function.Name)
	}

	resp, err := tn.tp.Call(ctx, tc.Function)
	if err != nil {
		// feed the failure back to the model instead of aborting
		resp = &ToolResponse{
			Name:   tn.Name(),
			Output: map[string]any{"error": err.Error()},
		}
	}
	slog.Debug("graph_tool_call", "tool", tn.Name(), "error", err)

	state.Message = append(state.Message, &Message{
		Role:  RoleTool,
		Parts: []*Part{{ToolResponse: resp}},
	})
	return "agent", state, nil
}

// AgentNode calls the provider and routes to a tool node when the
// model asks for one.
type AgentNode struct {
	provider Provider
	tools    []Tool
}

func (an *AgentNode) Name() string {
	return "agent"
}

func (an *AgentNode) Execute(ctx context.Context, state State) (string, State, error) {
	resp, err := an.provider.Chat(ctx, CCReq{
		Messages: state.Message,
		Tools:    an.tools,
	})
	if err != nil {
		return "", state, err
	}
	if len(resp.Choices) == 0 {
		return "", state, fmt.Errorf("provider returned no choices")
	}

	msg := Message{
		Role:  RoleAssistant,
		Parts: []*Part{{Text: resp.Choices[0].Text}},
	}

	toolCalls, hasToolCall := resp.IsToolCall()
	if hasToolCall {
		msg.Parts = []*Part{}
		for _, tc := range toolCalls {
			msg.Parts = append(msg.Parts, &Part{Toolcall: tc})
		}
	}
	state.Message = append(state.Message, &msg)

	if hasToolCall {
		return toolCalls[0].Function.Name, state, nil
	}
	return "end", state, nil
}
