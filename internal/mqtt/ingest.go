package mqtt

import (
	"context"

	"OfficeSLAMonitor/internal/models"
)

// IngestHandler consumes the JSON bodies published on the ingest topics.
type IngestHandler interface {
	HandleStateChangeMessage(ctx context.Context, payload []byte) error
	HandleTickMessage(ctx context.Context, payload []byte) error
}

// SubscribeIngest routes the state-change and tick topics to h.
func (c *Client) SubscribeIngest(h IngestHandler) error {
	if err := c.Subscribe(c.cfg.StateChangeTopic, func(ctx context.Context, _ string, payload []byte) error {
		return h.HandleStateChangeMessage(ctx, payload)
	}); err != nil {
		return err
	}

	return c.Subscribe(c.cfg.TickTopic, func(ctx context.Context, _ string, payload []byte) error {
		return h.HandleTickMessage(ctx, payload)
	})
}

func (c *Client) PublishStateChange(ev models.StateChangeEvent) error {
	return c.PublishJSON(c.cfg.StateChangeTopic, ev)
}

func (c *Client) PublishTick(batch []models.TickSample) error {
	return c.PublishJSON(c.cfg.TickTopic, batch)
}
