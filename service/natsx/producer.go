package natsx

import (
	"context"
	"fmt"
)

// NatsxProducer publishes by biz route.
type NatsxProducer struct{ c *NatsxClient }

func NewNatsxProducer(c *NatsxClient) *NatsxProducer { return &NatsxProducer{c: c} }

func (p *NatsxProducer) Publish(_ context.Context, biz string, data []byte, hdr map[string]string) error {
	r, ok := p.c.route(biz)
	if !ok {
		return fmt.Errorf("route not found: %s", biz)
	}
	switch r.Mode {
	case Core:
		return p.c.sendCore(r.Subject, data, hdr)
	case JetStream:
		return p.c.sendJS(r.Subject, data, hdr)
	default:
		return fmt.Errorf("unsupported mode")
	}
}
