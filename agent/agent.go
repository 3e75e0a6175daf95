package agent

import (
	"context"
)

// Agent orchestrates the completion flow: it keeps handing the
// conversation to the provider and routing tool calls through the
// graph until the model produces a final message.
type Agent struct {
	provider Provider
	tools    Tools
	system   *Message
}

type options struct {
	tools  Tools
	system string
}

type OptionFunc func(o *options)

// WithTool binds tools into the model.
func WithTool(tools ...ToolProvider) OptionFunc {
	return func(o *options) {
		o.tools = append(o.tools, tools...)
	}
}

// WithSystemPrompt prepends a system message to every completion that
// does not already carry one.
func WithSystemPrompt(prompt string) OptionFunc {
	return func(o *options) {
		o.system = prompt
	}
}

func New(provider Provider, opts ...OptionFunc) *Agent {
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.tools == nil {
		o.tools = Tools{}
	}

	a := &Agent{
		provider: provider,
		tools:    o.tools,
	}
	if o.system != "" {
		a.system = NewTextMessage(RoleSystem, o.system)
	}
	return a
}

func (a *Agent) Completion(ctx context.Context, msgs []*Message) (*Message, error) {
	graph := NewGraph()
	graph.AddNode(&AgentNode{
		provider: a.provider,
		tools:    a.tools.Def(),
	})
	for _, tool := range a.tools {
		graph.AddNode(NewToolNode(tool))
	}

	init := State{}
	if a.system != nil && !hasSystem(msgs) {
		init.Message = append(init.Message, a.system)
	}
	init.Message = append(init.Message, msgs...)

	return graph.Run(ctx, "agent", init)
}

func hasSystem(msgs []*Message) bool {
	for _, m := range msgs {
		if m.Role == RoleSystem {
			return true
		}
	}
	return false
}
