// Package stomp is a STOMP 1.2 client that runs over a WebSocket, one frame
// per WebSocket message, the way SockJS-compatible brokers expect it.
//
// A Session owns a single connection and a single read goroutine. Messages
// are handed to subscription callbacks on that goroutine, in arrival order.
package stomp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	// ErrHandshake is returned when the broker does not answer CONNECT with CONNECTED.
	ErrHandshake = errors.New("stomp handshake failed")

	// ErrBroker is the error of a session ended by an ERROR frame.
	ErrBroker = errors.New("stomp broker error")

	// ErrSessionClosed is returned by operations on a session that has ended.
	ErrSessionClosed = errors.New("stomp session closed")
)

// Message is a MESSAGE frame delivered to a subscription.
type Message struct {
	Destination  string
	Subscription string
	Body         []byte
	Frame        Frame
}

// MessageFunc receives the messages of one subscription.
type MessageFunc func(msg Message)

type config struct {
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	receipts         bool
	header           http.Header
	dialer           *websocket.Dialer
}

// Option configures Dial.
type Option func(*config)

// WithHandshakeTimeout bounds the WebSocket upgrade plus the CONNECT/CONNECTED
// exchange. The dial context still applies. Default: 10 seconds.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *config) {
		c.handshakeTimeout = d
	}
}

// WithWriteTimeout bounds every frame write. Default: 10 seconds.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *config) {
		c.writeTimeout = d
	}
}

// WithReceipts makes Subscribe wait for the broker's RECEIPT. Without it a
// subscription is confirmed once the SUBSCRIBE frame is written.
func WithReceipts(enabled bool) Option {
	return func(c *config) {
		c.receipts = enabled
	}
}

// WithHeader adds HTTP headers to the WebSocket upgrade request.
func WithHeader(h http.Header) Option {
	return func(c *config) {
		c.header = h.Clone()
	}
}

// WithDialer replaces the default WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *config) {
		c.dialer = d
	}
}

type subscription struct {
	destination string
	fn          MessageFunc
}

// Session is an established STOMP session.
type Session struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	receipts     bool
	version      string

	writeMu sync.Mutex

	mu            sync.Mutex
	subscriptions map[string]subscription
	pending       map[string]chan struct{}
	unrouted      MessageFunc

	closing   atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	err       error
}

// Dial opens a WebSocket to uri and completes the STOMP handshake. Messages
// whose subscription is unknown are passed to unrouted, which may be nil.
func Dial(ctx context.Context, uri string, unrouted MessageFunc, opts ...Option) (*Session, error) {
	cfg := config{
		handshakeTimeout: 10 * time.Second,
		writeTimeout:     10 * time.Second,
		dialer:           websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	if cfg.handshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.handshakeTimeout)
		defer cancel()
	}

	conn, _, err := cfg.dialer.DialContext(ctx, uri, cfg.header)
	if err != nil {
		return nil, err
	}

	s := &Session{
		conn:          conn,
		writeTimeout:  cfg.writeTimeout,
		receipts:      cfg.receipts,
		subscriptions: make(map[string]subscription),
		pending:       make(map[string]chan struct{}),
		unrouted:      unrouted,
		done:          make(chan struct{}),
	}

	if err := s.handshake(ctx, u.Hostname()); err != nil {
		_ = conn.Close()
		return nil, err
	}

	go s.readLoop()

	return s, nil
}

// handshake sends CONNECT and waits for CONNECTED, giving up when ctx is done.
func (s *Session) handshake(ctx context.Context, host string) error {
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	connect := NewFrame(CommandConnect,
		HeaderAcceptVersion, "1.2",
		HeaderHost, host,
		HeaderHeartBeat, "0,0",
	)
	if err := s.write(connect); err != nil {
		return fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %w", ErrHandshake, ctx.Err())
			}
			return fmt.Errorf("%w: %w", ErrHandshake, err)
		}
		if isHeartBeat(data) {
			continue
		}

		f, err := Unmarshal(data)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrHandshake, err)
		}

		switch f.Command {
		case CommandConnected:
			if !stop() {
				return fmt.Errorf("%w: %w", ErrHandshake, ctx.Err())
			}
			s.version = f.Value(HeaderVersion)
			return s.conn.SetReadDeadline(time.Time{})
		case CommandError:
			return fmt.Errorf("%w: %w", ErrHandshake, brokerError(f))
		default:
			return fmt.Errorf("%w: unexpected %s frame", ErrHandshake, f.Command)
		}
	}
}

// Version is the protocol version agreed on by the broker.
func (s *Session) Version() string {
	return s.version
}

// Subscribe subscribes fn to destination. With receipts enabled it waits for
// the broker's RECEIPT, ctx, or the end of the session, whichever comes first.
// It returns the subscription id.
func (s *Session) Subscribe(ctx context.Context, destination string, fn MessageFunc) (string, error) {
	id := uuid.NewString()

	s.mu.Lock()
	if s.isDone() {
		s.mu.Unlock()
		return "", s.closedErr()
	}
	s.subscriptions[id] = subscription{destination: destination, fn: fn}

	var receipt chan struct{}
	if s.receipts {
		receipt = make(chan struct{})
		s.pending[id] = receipt
	}
	s.mu.Unlock()

	frame := NewFrame(CommandSubscribe,
		HeaderID, id,
		HeaderDestination, destination,
		HeaderAck, "auto",
	)
	if s.receipts {
		frame.Headers = append(frame.Headers, Header{Key: HeaderReceipt, Value: id})
	}

	if err := s.write(frame); err != nil {
		s.forget(id)
		return "", err
	}

	if receipt == nil {
		return id, nil
	}

	select {
	case <-receipt:
		return id, nil
	case <-ctx.Done():
		s.forget(id)
		return "", ctx.Err()
	case <-s.done:
		s.forget(id)
		return "", s.closedErr()
	}
}

func (s *Session) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, id)
	delete(s.pending, id)
}

// Done is closed when the session has ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err is the reason the session ended. It is nil while the session runs and
// after a clean shutdown by either side.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close sends DISCONNECT, closes the connection and waits for the read
// goroutine to stop. It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		if s.isDone() {
			return
		}

		_ = s.write(NewFrame(CommandDisconnect))

		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.writeMu.Unlock()

		if err = s.conn.Close(); errors.Is(err, net.ErrClosed) {
			err = nil
		}
		<-s.done
	})
	return err
}

func (s *Session) write(f Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	return s.conn.WriteMessage(websocket.TextMessage, f.Marshal())
}

func (s *Session) isDone() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) closedErr() error {
	if err := s.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrSessionClosed, err)
	}
	return ErrSessionClosed
}

// readLoop is the only reader of the connection. It runs until the
// connection fails, the broker sends ERROR, or Close is called.
func (s *Session) readLoop() {
	var err error
	defer func() { s.finish(err) }()

	for {
		var data []byte
		if _, data, err = s.conn.ReadMessage(); err != nil {
			return
		}
		if isHeartBeat(data) {
			continue
		}

		var f Frame
		if f, err = Unmarshal(data); err != nil {
			return
		}

		switch f.Command {
		case CommandMessage:
			s.dispatch(f)
		case CommandReceipt:
			s.acknowledge(f.Value(HeaderReceiptID))
		case CommandError:
			err = brokerError(f)
			return
		}
	}
}

func (s *Session) dispatch(f Frame) {
	msg := Message{
		Destination:  f.Value(HeaderDestination),
		Subscription: f.Value(HeaderSubscription),
		Body:         f.Body,
		Frame:        f,
	}

	s.mu.Lock()
	sub, ok := s.subscriptions[msg.Subscription]
	s.mu.Unlock()

	switch {
	case ok:
		sub.fn(msg)
	case s.unrouted != nil:
		s.unrouted(msg)
	}
}

func (s *Session) acknowledge(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.pending[id]; ok {
		close(ch)
		delete(s.pending, id)
	}
}

// finish records why the session ended and closes Done.
func (s *Session) finish(err error) {
	if s.closing.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		err = nil
	}

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()

	_ = s.conn.Close()
	close(s.done)
}

func brokerError(f Frame) error {
	if len(f.Body) > 0 {
		return fmt.Errorf("%w: %s: %s", ErrBroker, f.Value(HeaderMessage), f.Body)
	}
	return fmt.Errorf("%w: %s", ErrBroker, f.Value(HeaderMessage))
}
