// Package watchlist keeps, per network, the addresses a monitor should watch
// when none are given explicitly.
package watchlist

import "context"

// Service registers and lists watched addresses.
//
// Addresses are normalized (upper case, no dashes) before they are validated
// and stored, so "talice-..." and "TALICE..." are the same entry.
type Service interface {
	// Watch adds address to the watchlist of network. It fails with
	// ErrAlreadyWatched when the address is already there.
	Watch(ctx context.Context, network, address string) error

	// Unwatch removes address from the watchlist of network. It fails with
	// ErrNotWatched when the address is not there.
	Unwatch(ctx context.Context, network, address string) error

	// List returns every address watched on network, sorted.
	List(ctx context.Context, network string) ([]string, error)
}

type service struct {
	storage Storage
}

var _ Service = (*service)(nil)

// New creates a watchlist backed by storage.
func New(storage Storage) *service {
	return &service{
		storage: storage,
	}
}
