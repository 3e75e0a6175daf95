package agent

import "context"

// Provider is a remote llm backend serving a model.
type Provider interface {
	Chat(ctx context.Context, req CCReq) (*CCRes, error)
}
