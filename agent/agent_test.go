package agent_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/minimancer/botmother/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ agent.Provider = (*mockProvider)(nil)

type mockProvider struct {
	ChatFunc func(ctx context.Context, req agent.CCReq) (*agent.CCRes, error)
}

func (mp *mockProvider) Chat(ctx context.Context, req agent.CCReq) (*agent.CCRes, error) {
	if mp.ChatFunc != nil {
		return mp.ChatFunc(ctx, req)
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("message cannot be nil")
	}
	query := req.Messages[len(req.Messages)-1]
	return &agent.CCRes{
		Choices: []agent.Choice{{Text: query.Text()}},
	}, nil
}

var _ agent.ToolProvider = (*echoTool)(nil)

// echoTool reflects its arguments back, enough to test routing.
type echoTool struct {
	calls int
}

func (e *echoTool) Ping(ctx context.Context) error { return nil }

func (e *echoTool) Def() agent.Tool {
	return agent.Tool{
		Type: "function",
		Function: agent.Function{
			Name:        "echo",
			Description: "repeat the input",
			Parameters: agent.ParameterSchema{
				Type:       agent.ParameterTypeObject,
				Properties: map[string]agent.ParameterDefinition{"input": {Type: "string"}},
			},
		},
	}
}

func (e *echoTool) Call(ctx context.Context, fc agent.FunctionCall) (*agent.ToolResponse, error) {
	e.calls++
	return &agent.ToolResponse{
		Name:   "echo",
		Output: map[string]any{"echo": fc.Arguments},
	}, nil
}

func TestAgent_Completion(t *testing.T) {
	testCases := []struct {
		name          string
		provider      agent.Provider
		tools         []agent.ToolProvider
		input         string
		expectedText  string
		expectedError string
	}{
		{
			name:         "plain completion without tool call",
			provider:     &mockProvider{},
			input:        "hello",
			expectedText: "hello",
		},
		{
			name: "provider error propagates",
			provider: &mockProvider{
				ChatFunc: func(ctx context.Context, req agent.CCReq) (*agent.CCRes, error) {
					return nil, fmt.Errorf("backend down")
				},
			},
			input:         "hello",
			expectedError: "backend down",
		},
		{
			name: "tool call routed and answered",
			provider: &mockProvider{
				ChatFunc: func(ctx context.Context, req agent.CCReq) (*agent.CCRes, error) {
					last := req.Messages[len(req.Messages)-1]
					if last.Role == agent.RoleTool {
						// second round: summarize the tool output
						return &agent.CCRes{
							Choices: []agent.Choice{{Text: "tool said ok"}},
						}, nil
					}
					return &agent.CCRes{
						Choices: []agent.Choice{{
							ToolCalls: []*agent.ToolCall{{
								Type:     "function",
								Function: agent.FunctionCall{Name: "echo", Arguments: `{"input":"hi"}`},
							}},
						}},
					}, nil
				},
			},
			tools:        []agent.ToolProvider{&echoTool{}},
			input:        "use the echo tool",
			expectedText: "tool said ok",
		},
		{
			name: "unknown tool fails the run",
			provider: &mockProvider{
				ChatFunc: func(ctx context.Context, req agent.CCReq) (*agent.CCRes, error) {
					return &agent.CCRes{
						Choices: []agent.Choice{{
							ToolCalls: []*agent.ToolCall{{
								Function: agent.FunctionCall{Name: "missing"},
							}},
						}},
					}, nil
				},
			},
			input:         "hello",
			expectedError: "not found",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := agent.New(tc.provider, agent.WithTool(tc.tools...))
			res, err := a.Completion(t.Context(), []*agent.Message{
				agent.NewTextMessage(agent.RoleUser, tc.input),
			})

			if tc.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedText, res.Text())
		})
	}
}

func TestAgent_SystemPrompt(t *testing.T) {
	var seen []*agent.Message
	provider := &mockProvider{
		ChatFunc: func(ctx context.Context, req agent.CCReq) (*agent.CCRes, error) {
			seen = req.Messages
			return &agent.CCRes{Choices: []agent.Choice{{Text: "ok"}}}, nil
		},
	}

	a := agent.New(provider, agent.WithSystemPrompt("you are BotMother"))
	_, err := a.Completion(t.Context(), []*agent.Message{
		agent.NewTextMessage(agent.RoleUser, "hi"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, seen)
	assert.Equal(t, agent.RoleSystem, seen[0].Role)
	assert.True(t, strings.Contains(seen[0].Text(), "BotMother"))

	// a caller-provided system message wins
	_, err = a.Completion(t.Context(), []*agent.Message{
		agent.NewTextMessage(agent.RoleSystem, "custom"),
		agent.NewTextMessage(agent.RoleUser, "hi"),
	})
	require.NoError(t, err)
	assert.Equal(t, "custom", seen[0].Text())
}

func TestMessage_Text(t *testing.T) {
	m := &agent.Message{
		Role: agent.RoleAssistant,
		Parts: []*agent.Part{
			{Text: "a"},
			{Blob: &agent.Blob{Bytes: []byte{1}, Mime: "image/png"}},
			{Text: "b"},
		},
	}
	assert.Equal(t, "ab", m.Text())
}
