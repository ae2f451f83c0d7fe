// Package redis stores nemwatch state in Redis. Watchlists are sets and
// published notifications are appended to one stream per network.
package redis

import (
	"context"

	redis "github.com/redis/go-redis/v9"
)

// keyPrefix namespaces every key written by nemwatch.
const keyPrefix = "nemwatch"

type client struct {
	conn         redis.UniversalClient
	streamMaxLen int64
}

func (c *client) Close() error {
	return c.conn.Close()
}

// Option configures NewClient.
type Option func(*client)

// WithStreamMaxLen caps notification streams to about n entries. Zero keeps
// every entry. Default: 10000.
func WithStreamMaxLen(n int64) Option {
	return func(c *client) {
		c.streamMaxLen = n
	}
}

// NewClient connects to addr and pings it.
func NewClient(ctx context.Context, addr, username, password string, db int, opts ...Option) (*client, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       db,
	})

	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return newClient(conn, opts...), nil
}

func newClient(conn redis.UniversalClient, opts ...Option) *client {
	c := &client{
		conn:         conn,
		streamMaxLen: 10000,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
