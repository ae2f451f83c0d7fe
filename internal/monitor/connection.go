package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Status is the lifecycle stage of one address's connection.
type Status int32

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusSubscribing
	StatusActive
	StatusClosed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusSubscribing:
		return "subscribing"
	case StatusActive:
		return "active"
	case StatusClosed:
		return "closed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// ConnectionState is a snapshot of one address's connection.
type ConnectionState struct {
	Address       string
	Status        Status
	Subscriptions int // handles bound to the address
}

// connection owns the session of a single address.
type connection struct {
	address string
	uri     string
	plan    Plan
	handles []ChannelHandle
	router  *router

	status atomic.Int32

	mu      sync.Mutex
	session Session
}

func newConnection(plan Plan, address string, m *metrics) *connection {
	return &connection{
		address: address,
		uri:     plan.Network.WebSocketURI(plan.Endpoint.Host, plan.Endpoint.WSPort),
		plan:    plan,
		handles: plan.handlesFor(address),
		router:  newRouter(m),
	}
}

func (c *connection) setStatus(s Status) {
	c.status.Store(int32(s))
}

func (c *connection) getStatus() Status {
	return Status(c.status.Load())
}

func (c *connection) state() ConnectionState {
	return ConnectionState{
		Address:       c.address,
		Status:        c.getStatus(),
		Subscriptions: len(c.handles),
	}
}

func (c *connection) setSession(s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

func (c *connection) currentSession() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// establish takes the connection from idle to active: optional probe, session
// handshake, then one subscription handshake per handle, in plan order.
//
// On error the session, if one was opened, is left for the caller to close.
func (c *connection) establish(ctx context.Context, transport Transport, probe NodeProbe) error {
	c.setStatus(StatusConnecting)

	if probe != nil {
		if err := probe.Probe(ctx, c.plan.Network, c.plan.Endpoint); err != nil {
			return fmt.Errorf("%w: probe %s: %w", ErrConnection, c.plan.Endpoint.Host, err)
		}
	}

	session, err := transport.Connect(ctx, c.uri, c.router.unrouted(ctx))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnection, c.uri, err)
	}
	c.setSession(session)

	c.setStatus(StatusSubscribing)
	for _, h := range c.handles {
		if err := session.Subscribe(ctx, h.Destination, c.router.forHandle(ctx, h)); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrSubscription, h.Destination, err)
		}
	}

	c.setStatus(StatusActive)
	return nil
}

// close releases the session, if any. It is safe to call more than once.
func (c *connection) close() error {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	if session == nil {
		return nil
	}
	return session.Close()
}
