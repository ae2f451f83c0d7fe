package redis

import (
	"context"
	"fmt"

	"github.com/gabapcia/nemwatch/internal/watchlist"
)

// watchlistKey returns the key of the set holding the addresses watched on network.
//
// Format: "nemwatch:watchlist:{network}"
func watchlistKey(network string) string {
	return fmt.Sprintf("%s:watchlist:%s", keyPrefix, network)
}

// AddWatchedAddress adds the entry's address to its network set with SADD.
func (c *client) AddWatchedAddress(ctx context.Context, entry watchlist.Entry) error {
	added, err := c.conn.SAdd(ctx, watchlistKey(entry.Network), entry.Address).Result()
	if err != nil {
		return err
	}

	if added == 0 {
		return watchlist.ErrAlreadyWatched
	}
	return nil
}

// RemoveWatchedAddress removes the entry's address from its network set with SREM.
func (c *client) RemoveWatchedAddress(ctx context.Context, entry watchlist.Entry) error {
	removed, err := c.conn.SRem(ctx, watchlistKey(entry.Network), entry.Address).Result()
	if err != nil {
		return err
	}

	if removed == 0 {
		return watchlist.ErrNotWatched
	}
	return nil
}

// WatchedAddresses returns the members of the network set.
func (c *client) WatchedAddresses(ctx context.Context, network string) ([]string, error) {
	return c.conn.SMembers(ctx, watchlistKey(network)).Result()
}

var _ watchlist.Storage = new(client)
