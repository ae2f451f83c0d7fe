package watchlist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
)

// StorageMock is a testify mock of Storage.
type StorageMock struct {
	mock.Mock
}

var _ Storage = (*StorageMock)(nil)

// NewStorageMock creates a StorageMock whose expectations are asserted when t ends.
func NewStorageMock(t *testing.T) *StorageMock {
	m := new(StorageMock)
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *StorageMock) AddWatchedAddress(ctx context.Context, entry Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *StorageMock) RemoveWatchedAddress(ctx context.Context, entry Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *StorageMock) WatchedAddresses(ctx context.Context, network string) ([]string, error) {
	args := m.Called(ctx, network)
	addresses, _ := args.Get(0).([]string)
	return addresses, args.Error(1)
}
