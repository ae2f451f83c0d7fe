package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gabapcia/nemwatch/internal/monitor"
	"github.com/gabapcia/nemwatch/internal/pkg/logger"
	"github.com/gabapcia/nemwatch/internal/pkg/resilience/retry"

	"github.com/google/uuid"
)

// decodeJSON keeps the payload as raw JSON after checking it is well formed.
func decodeJSON(payload []byte) (any, error) {
	if !json.Valid(payload) {
		return nil, ErrInvalidPayload
	}
	return json.RawMessage(payload), nil
}

type logHandler struct {
	channel string
}

var _ monitor.Handler = logHandler{}

// LogHandler returns a handler that logs every notification of channel at
// info level.
func LogHandler(channel string) monitor.Handler {
	return logHandler{channel: channel}
}

func (h logHandler) Decode(payload []byte) (any, error) {
	return decodeJSON(payload)
}

func (h logHandler) HandleMessage(ctx context.Context, address string, msg any) error {
	payload, _ := msg.(json.RawMessage)

	kv := []any{"channel", h.channel, "address", address}
	if hash := transactionHash(payload); hash != "" {
		kv = append(kv, "tx.hash", hash)
	}
	kv = append(kv, "payload", string(payload))

	logger.Info(ctx, "notification received", kv...)
	return nil
}

type publishConfig struct {
	retry    retry.Retry
	dedup    Deduplicator
	dedupTTL time.Duration
	now      func() time.Time
}

// PublishOption configures PublishHandler.
type PublishOption func(*publishConfig)

// WithPublishRetry retries failed publications with r.
func WithPublishRetry(r retry.Retry) PublishOption {
	return func(c *publishConfig) {
		c.retry = r
	}
}

// WithDeduplicator skips notifications whose transaction was already
// published on the same channel for the same address within ttl. This lets
// several monitors watch the same addresses without duplicating events.
func WithDeduplicator(d Deduplicator, ttl time.Duration) PublishOption {
	return func(c *publishConfig) {
		c.dedup = d
		c.dedupTTL = ttl
	}
}

type publishHandler struct {
	network   string
	channel   string
	publisher Publisher
	cfg       publishConfig
}

var _ monitor.Handler = (*publishHandler)(nil)

// PublishHandler returns a handler that forwards every notification of
// channel on network to publisher.
func PublishHandler(network, channel string, publisher Publisher, opts ...PublishOption) monitor.Handler {
	cfg := publishConfig{
		dedupTTL: 24 * time.Hour,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &publishHandler{
		network:   network,
		channel:   channel,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (h *publishHandler) Decode(payload []byte) (any, error) {
	return decodeJSON(payload)
}

func (h *publishHandler) HandleMessage(ctx context.Context, address string, msg any) error {
	payload, ok := msg.(json.RawMessage)
	if !ok {
		return fmt.Errorf("%w: unexpected message type %T", monitor.ErrDecode, msg)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return err
	}

	n := Notification{
		ID:         id.String(),
		Network:    h.network,
		Channel:    h.channel,
		Address:    address,
		Hash:       transactionHash(payload),
		Payload:    payload,
		ReceivedAt: h.cfg.now().UTC(),
	}

	if h.cfg.dedup != nil && n.Hash != "" {
		key := h.channel + ":" + address + ":" + n.Hash
		err := h.cfg.dedup.ClaimNotification(ctx, h.network, key, h.cfg.dedupTTL)
		if errors.Is(err, ErrAlreadyPublished) {
			logger.Debug(ctx, "skipping duplicate notification", "tx.hash", n.Hash, "channel", h.channel)
			return nil
		}
		if err != nil {
			return err
		}
	}

	publish := func() error { return h.publisher.Publish(ctx, n) }
	if h.cfg.retry != nil {
		return h.cfg.retry.Execute(ctx, publish)
	}
	return publish()
}
