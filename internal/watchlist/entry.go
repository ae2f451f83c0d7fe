package watchlist

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/gabapcia/nemwatch/internal/network"
	"github.com/gabapcia/nemwatch/internal/pkg/validator"
)

var (
	// ErrAlreadyWatched is returned by Watch for an address already in the watchlist.
	ErrAlreadyWatched = errors.New("address already watched")

	// ErrNotWatched is returned by Unwatch for an address missing from the watchlist.
	ErrNotWatched = errors.New("address not watched")
)

// Entry is one watched address.
type Entry struct {
	Network string `validate:"required"`
	Address string `validate:"required,nemaddress"`
}

// Storage persists watchlist entries.
type Storage interface {
	// AddWatchedAddress stores entry. It returns ErrAlreadyWatched when the
	// entry already exists.
	AddWatchedAddress(ctx context.Context, entry Entry) error

	// RemoveWatchedAddress deletes entry. It returns ErrNotWatched when the
	// entry does not exist.
	RemoveWatchedAddress(ctx context.Context, entry Entry) error

	// WatchedAddresses returns the addresses stored for network, in any order.
	WatchedAddresses(ctx context.Context, network string) ([]string, error)
}

// buildEntry normalizes and validates an entry. The network must be known.
func buildEntry(networkName, address string) (Entry, error) {
	params, err := network.Lookup(networkName)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{
		Network: params.Name,
		Address: network.NormalizeAddress(address),
	}
	if err := validator.Validate(entry); err != nil {
		return Entry{}, err
	}

	if entry.Address[0] != params.AddressPrefix {
		return Entry{}, fmt.Errorf("%w: address %s does not belong to %s", validator.ErrValidationFailed, entry.Address, params.Name)
	}

	return entry, nil
}

func (s *service) Watch(ctx context.Context, network, address string) error {
	entry, err := buildEntry(network, address)
	if err != nil {
		return err
	}

	return s.storage.AddWatchedAddress(ctx, entry)
}

func (s *service) Unwatch(ctx context.Context, network, address string) error {
	entry, err := buildEntry(network, address)
	if err != nil {
		return err
	}

	return s.storage.RemoveWatchedAddress(ctx, entry)
}

func (s *service) List(ctx context.Context, networkName string) ([]string, error) {
	params, err := network.Lookup(networkName)
	if err != nil {
		return nil, err
	}

	addresses, err := s.storage.WatchedAddresses(ctx, params.Name)
	if err != nil {
		return nil, err
	}

	slices.Sort(addresses)
	return addresses, nil
}
