package valkey

import (
	"context"

	valkeylib "github.com/valkey-io/valkey-go"
)

func (c *Client) Publish(ctx context.Context, channel, payload string) error {
	cmd := c.inner.B().Publish().Channel(c.Key(channel)).Message(payload).Build()
	return c.inner.Do(ctx, cmd).Error()
}

// Subscribe blocks until ctx is cancelled or the connection fails.
func (c *Client) Subscribe(ctx context.Context, channel string, fn func(payload string)) error {
	cmd := c.inner.B().Subscribe().Channel(c.Key(channel)).Build()
	return c.inner.Receive(ctx, cmd, func(msg valkeylib.PubSubMessage) {
		fn(msg.Message)
	})
}
