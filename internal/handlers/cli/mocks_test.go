package cli

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gabapcia/nemwatch/internal/monitor"
	"github.com/gabapcia/nemwatch/internal/network"
	"github.com/gabapcia/nemwatch/internal/notify"
	"github.com/gabapcia/nemwatch/internal/pkg/logger"
	"github.com/gabapcia/nemwatch/internal/watchlist"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	_ = logger.Init("error")
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type WatchlistMock struct {
	mock.Mock
}

var _ watchlist.Service = (*WatchlistMock)(nil)

func NewWatchlistMock(t *testing.T) *WatchlistMock {
	m := new(WatchlistMock)
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *WatchlistMock) Watch(ctx context.Context, network, address string) error {
	return m.Called(ctx, network, address).Error(0)
}

func (m *WatchlistMock) Unwatch(ctx context.Context, network, address string) error {
	return m.Called(ctx, network, address).Error(0)
}

func (m *WatchlistMock) List(ctx context.Context, network string) ([]string, error) {
	args := m.Called(ctx, network)
	addresses, _ := args.Get(0).([]string)
	return addresses, args.Error(1)
}

type NodeMock struct {
	mock.Mock
}

var _ NodeClient = (*NodeMock)(nil)

func NewNodeMock(t *testing.T) *NodeMock {
	m := new(NodeMock)
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *NodeMock) Probe(ctx context.Context, params network.Params, endpoint monitor.Endpoint) error {
	return m.Called(ctx, params, endpoint).Error(0)
}

func (m *NodeMock) ChainHeight(ctx context.Context, params network.Params, endpoint monitor.Endpoint) (uint64, error) {
	args := m.Called(ctx, params, endpoint)
	height, _ := args.Get(0).(uint64)
	return height, args.Error(1)
}

// publisherRecorder keeps every published notification.
type publisherRecorder struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (p *publisherRecorder) Publish(_ context.Context, n notify.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
	return nil
}

func (p *publisherRecorder) published() []notify.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notify.Notification(nil), p.sent...)
}

// fakeTransport opens in-memory sessions and remembers their subscriptions.
type fakeTransport struct {
	mu       sync.Mutex
	uris     []string
	sessions []*fakeSession
}

func (t *fakeTransport) Connect(_ context.Context, uri string, _ monitor.FrameFunc) (monitor.Session, error) {
	s := &fakeSession{subs: make(map[string]monitor.FrameFunc), done: make(chan struct{})}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.uris = append(t.uris, uri)
	t.sessions = append(t.sessions, s)
	return s, nil
}

// destinations returns every destination subscribed so far.
func (t *fakeTransport) destinations() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []string
	for _, s := range t.sessions {
		s.mu.Lock()
		for d := range s.subs {
			out = append(out, d)
		}
		s.mu.Unlock()
	}
	return out
}

// waitSubscribed blocks until destination has been subscribed on some session.
func (t *fakeTransport) waitSubscribed(tb testing.TB, destination string) *fakeSession {
	tb.Helper()

	var found *fakeSession
	require.Eventually(tb, func() bool {
		t.mu.Lock()
		defer t.mu.Unlock()
		for _, s := range t.sessions {
			s.mu.Lock()
			_, ok := s.subs[destination]
			s.mu.Unlock()
			if ok {
				found = s
				return true
			}
		}
		return false
	}, waitFor, tick)
	return found
}

type fakeSession struct {
	mu     sync.Mutex
	subs   map[string]monitor.FrameFunc
	done   chan struct{}
	closed sync.Once
}

func (s *fakeSession) Subscribe(_ context.Context, destination string, onFrame monitor.FrameFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[destination] = onFrame
	return nil
}

func (s *fakeSession) deliver(destination, payload string) {
	s.mu.Lock()
	fn := s.subs[destination]
	s.mu.Unlock()

	fn(monitor.Frame{Destination: destination, Payload: []byte(payload)})
}

func (s *fakeSession) Done() <-chan struct{} { return s.done }
func (s *fakeSession) Err() error            { return nil }

func (s *fakeSession) Close() error {
	s.closed.Do(func() { close(s.done) })
	return nil
}
