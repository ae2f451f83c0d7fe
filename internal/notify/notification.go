// Package notify provides the monitor handlers shipped with nemwatch: one
// that logs every notification and one that forwards them to a Publisher.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrInvalidPayload is returned when a notification payload is not JSON.
	ErrInvalidPayload = errors.New("notification payload is not valid JSON")

	// ErrAlreadyPublished is returned by a Deduplicator for a notification
	// that was already claimed.
	ErrAlreadyPublished = errors.New("notification already published")
)

// Notification is a node notification enriched with where it came from.
type Notification struct {
	ID         string          `json:"id"` // UUIDv7, ordered by reception time
	Network    string          `json:"network"`
	Channel    string          `json:"channel"`
	Address    string          `json:"address"`
	Hash       string          `json:"hash,omitempty"` // transaction hash, when the payload carries one
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"receivedAt"`
}

// Publisher forwards notifications to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// Deduplicator claims a notification key for ttl. Claim returns
// ErrAlreadyPublished when the key was already claimed.
type Deduplicator interface {
	ClaimNotification(ctx context.Context, network, key string, ttl time.Duration) error
}

// envelope is the part of a NIS transaction notification used to identify it.
type envelope struct {
	Meta struct {
		Hash struct {
			Data string `json:"data"`
		} `json:"hash"`
	} `json:"meta"`
}

// transactionHash returns the hash of the transaction carried by payload, or
// "" when there is none.
func transactionHash(payload json.RawMessage) string {
	var e envelope
	if err := json.Unmarshal(payload, &e); err != nil {
		return ""
	}
	return e.Meta.Hash.Data
}
