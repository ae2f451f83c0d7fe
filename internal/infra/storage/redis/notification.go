package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/gabapcia/nemwatch/internal/notify"

	"github.com/redis/go-redis/v9"
)

// notificationStreamKey returns the stream notifications of network are appended to.
//
// Format: "nemwatch:notifications:{network}"
func notificationStreamKey(network string) string {
	return fmt.Sprintf("%s:notifications:%s", keyPrefix, network)
}

// notificationClaimKey returns the key claiming one notification.
//
// Format: "nemwatch:claim:{network}:{key}"
func notificationClaimKey(network, key string) string {
	return fmt.Sprintf("%s:claim:%s:%s", keyPrefix, network, key)
}

// Publish appends n to the network's stream with XADD. The stream id is
// assigned by Redis; the notification id travels as a field.
func (c *client) Publish(ctx context.Context, n notify.Notification) error {
	args := &redis.XAddArgs{
		Stream: notificationStreamKey(n.Network),
		Values: map[string]any{
			"id":         n.ID,
			"channel":    n.Channel,
			"address":    n.Address,
			"hash":       n.Hash,
			"payload":    string(n.Payload),
			"receivedAt": n.ReceivedAt.Format(time.RFC3339Nano),
		},
	}
	if c.streamMaxLen > 0 {
		args.MaxLen = c.streamMaxLen
		args.Approx = true
	}

	return c.conn.XAdd(ctx, args).Err()
}

// ClaimNotification sets the claim key with SET NX and ttl. It returns
// notify.ErrAlreadyPublished when the key already exists.
func (c *client) ClaimNotification(ctx context.Context, network, key string, ttl time.Duration) error {
	ok, err := c.conn.SetNX(ctx, notificationClaimKey(network, key), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return err
	}

	if !ok {
		return notify.ErrAlreadyPublished
	}
	return nil
}

var (
	_ notify.Publisher    = new(client)
	_ notify.Deduplicator = new(client)
)
