package monitor

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gabapcia/nemwatch/internal/network"
	"github.com/gabapcia/nemwatch/internal/pkg/logger"

	"github.com/stretchr/testify/require"
)

func init() {
	// Initialize logger for tests to prevent nil pointer dereference
	_ = logger.Init("error")
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// fakeTransport records every session it opens. connectFunc, when set,
// decides the outcome of each Connect call.
type fakeTransport struct {
	mu           sync.Mutex
	sessions     []*fakeSession
	connectCalls atomic.Int32
	uris         []string

	connectFunc   func(ctx context.Context, call int32) error
	subscribeFunc func(ctx context.Context, destination string) error
}

func (t *fakeTransport) Connect(ctx context.Context, uri string, onUnrouted FrameFunc) (Session, error) {
	call := t.connectCalls.Add(1)
	if t.connectFunc != nil {
		if err := t.connectFunc(ctx, call); err != nil {
			return nil, err
		}
	}

	s := &fakeSession{
		subs:          make(map[string][]FrameFunc),
		onUnrouted:    onUnrouted,
		subscribeFunc: t.subscribeFunc,
		done:          make(chan struct{}),
	}

	t.mu.Lock()
	t.sessions = append(t.sessions, s)
	t.uris = append(t.uris, uri)
	t.mu.Unlock()

	return s, nil
}

func (t *fakeTransport) allSessions() []*fakeSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*fakeSession(nil), t.sessions...)
}

// sessionFor returns the session that subscribed at least one destination of address.
func (t *fakeTransport) sessionFor(address string) *fakeSession {
	for _, s := range t.allSessions() {
		for _, d := range s.destinations() {
			if strings.HasSuffix(d, "/"+address) {
				return s
			}
		}
	}
	return nil
}

// waitSession waits until address has a session with want subscriptions.
func (t *fakeTransport) waitSession(tb testing.TB, address string, want int) *fakeSession {
	tb.Helper()

	var s *fakeSession
	require.Eventually(tb, func() bool {
		s = t.sessionFor(address)
		return s != nil && len(s.destinations()) == want
	}, waitFor, tick, "session for %s never subscribed %d destinations", address, want)
	return s
}

type fakeSession struct {
	mu         sync.Mutex
	subs       map[string][]FrameFunc
	subscribed []string
	onUnrouted FrameFunc

	subscribeFunc func(ctx context.Context, destination string) error

	done      chan struct{}
	err       error
	endOnce   sync.Once
	closed    atomic.Bool
	closeCall atomic.Int32
}

func (s *fakeSession) Subscribe(ctx context.Context, destination string, onFrame FrameFunc) error {
	if s.subscribeFunc != nil {
		if err := s.subscribeFunc(ctx, destination); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[destination] = append(s.subs[destination], onFrame)
	s.subscribed = append(s.subscribed, destination)
	return nil
}

func (s *fakeSession) Done() <-chan struct{} { return s.done }

func (s *fakeSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeSession) Close() error {
	s.closeCall.Add(1)
	s.closed.Store(true)
	s.end(nil)
	return nil
}

// end terminates the session as the peer would.
func (s *fakeSession) end(err error) {
	s.endOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
	})
}

func (s *fakeSession) destinations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.subscribed...)
}

// deliver hands frame to every subscription of its destination, or to the
// unrouted callback when there is none, like a single read loop would.
func (s *fakeSession) deliver(frame Frame) {
	s.mu.Lock()
	fns := append([]FrameFunc(nil), s.subs[frame.Destination]...)
	s.mu.Unlock()

	if len(fns) == 0 {
		s.onUnrouted(frame)
		return
	}
	for _, fn := range fns {
		fn(frame)
	}
}

// deliverVia hands frame to the subscriptions of destination regardless of
// the frame's own destination.
func (s *fakeSession) deliverVia(destination string, frame Frame) {
	s.mu.Lock()
	fns := append([]FrameFunc(nil), s.subs[destination]...)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(frame)
	}
}

// received is one recorded handler invocation.
type received struct {
	Address string
	Msg     string
}

// recordingHandler records every message and every address binding.
type recordingHandler struct {
	mu        sync.Mutex
	bound     []string
	lastBound string
	messages  []received
	err       error
	panics    bool
}

func (h *recordingHandler) BindAddress(address string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bound = append(h.bound, address)
	h.lastBound = address
}

func (h *recordingHandler) Decode(payload []byte) (any, error) {
	return string(payload), nil
}

func (h *recordingHandler) HandleMessage(ctx context.Context, address string, msg any) error {
	if h.panics {
		panic("handler exploded")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, received{Address: address, Msg: msg.(string)})
	return h.err
}

func (h *recordingHandler) got() []received {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]received(nil), h.messages...)
}

func (h *recordingHandler) bindings() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.bound...)
}

// failureRecorder collects reported connection failures.
type failureRecorder struct {
	mu       sync.Mutex
	failures []ConnectionFailure
}

func (r *failureRecorder) handle(ctx context.Context, f ConnectionFailure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
}

func (r *failureRecorder) all() []ConnectionFailure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ConnectionFailure(nil), r.failures...)
}

func testPlan(t *testing.T, addresses []string, subscribe func(ChannelStage)) Plan {
	t.Helper()

	stage := NetworkName("testnet").
		Host("127.0.0.1").
		Port("7890").
		WSPort("7778").
		AddressesToMonitor(addresses...)
	if subscribe != nil {
		subscribe(stage)
	}

	plan, err := stage.Plan()
	require.NoError(t, err)
	return plan
}

func frame(channel, address, payload string) Frame {
	return Frame{Destination: network.Destination(channel, address), Payload: []byte(payload)}
}

func statusOf(svc Service, address string) Status {
	for _, c := range svc.Connections() {
		if c.Address == address {
			return c.Status
		}
	}
	return StatusIdle
}
