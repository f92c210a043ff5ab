package chat

import (
	"context"

	"CrossChat/logger"
)

// Handler processes one inbound event kind.
type Handler interface {
	Type() string
	Handle(ctx *ChatContext, f *Frame, c *Client) error
}

// ChatContext carries per-dispatch dependencies into handlers.
type ChatContext struct {
	S   *Server
	Ctx context.Context
}

// Dispatcher routes inbound frames to handlers by event type.
// Unknown event kinds are logged and ignored, never fatal.
type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Type()] = h }

func (d *Dispatcher) Dispatch(ctx *ChatContext, f *Frame, c *Client) error {
	h, ok := d.handlers[f.Type]
	if !ok {
		logger.Debug("no handler for event type: " + f.Type)
		return nil
	}
	return h.Handle(ctx, f, c)
}
