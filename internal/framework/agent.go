// Package framework ties agents to the message router and activity monitor.
package framework

import (
	"context"
	"fmt"

	"github.com/astc-project/astc-backend/internal/framework/messaging"
)

// Agent is a message-handling unit with an identity and a capability list.
type Agent interface {
	ID() string
	Name() string
	Capabilities() []string
	Handle(ctx context.Context, msg *messaging.Message) (messaging.Payload, error)
}

// HandlerFunc processes one payload kind and returns the response payload.
type HandlerFunc func(ctx context.Context, msg *messaging.Message) (messaging.Payload, error)

// BaseAgent implements dispatch-table routing of payload kinds to handlers.
// Concrete agents embed it and register handlers with On.
type BaseAgent struct {
	id           string
	name         string
	capabilities []string
	handlers     map[string]HandlerFunc
}

func NewBaseAgent(id, name string, capabilities []string) *BaseAgent {
	return &BaseAgent{
		id:           id,
		name:         name,
		capabilities: capabilities,
		handlers:     make(map[string]HandlerFunc),
	}
}

func (a *BaseAgent) ID() string             { return a.id }
func (a *BaseAgent) Name() string           { return a.name }
func (a *BaseAgent) Capabilities() []string { return a.capabilities }

// On registers the handler for a payload kind. The dispatch table replaces
// type-switch chains so agents stay open for extension.
func (a *BaseAgent) On(kind string, fn HandlerFunc) {
	a.handlers[kind] = fn
}

// Handle dispatches the message by payload kind. Unknown kinds yield an error
// payload rather than a failure so callers always get a structured response.
func (a *BaseAgent) Handle(ctx context.Context, msg *messaging.Message) (messaging.Payload, error) {
	fn, ok := a.handlers[msg.Payload.Kind]
	if !ok {
		return ErrorPayload(a.id, fmt.Sprintf("unknown message type: %s", msg.Payload.Kind)), nil
	}
	return fn(ctx, msg)
}

// ErrorPayload builds the standard structured error response body.
func ErrorPayload(agentID, errorMessage string) messaging.Payload {
	p, err := messaging.NewPayload("error", map[string]any{
		"success": false,
		"error":   errorMessage,
		"agent":   agentID,
	})
	if err != nil {
		return messaging.Payload{Kind: "error"}
	}
	return p
}
