package monitor

import (
	"context"

	"github.com/gabapcia/nemwatch/internal/network"
)

// Frame is one inbound message delivered over a session.
type Frame struct {
	Destination string // destination the node published the message on
	Payload     []byte // raw message body
}

// FrameFunc receives frames from a session. A session calls its FrameFuncs
// sequentially, in arrival order.
type FrameFunc func(frame Frame)

// Transport opens persistent sessions to a node.
type Transport interface {
	// Connect opens a session to uri. Frames that the session cannot attribute
	// to any of its subscriptions are passed to onUnrouted.
	//
	// ctx bounds the connection handshake only; the session stays open until
	// Close is called or the peer ends it.
	Connect(ctx context.Context, uri string, onUnrouted FrameFunc) (Session, error)
}

// Session is a live connection returned by Transport.Connect.
type Session interface {
	// Subscribe performs the subscription handshake for destination and
	// delivers every frame received for it to onFrame. It returns once the
	// transport considers the subscription acknowledged.
	Subscribe(ctx context.Context, destination string, onFrame FrameFunc) error

	// Done is closed when the session ends, for any reason.
	Done() <-chan struct{}

	// Err returns the error that ended the session, or nil for a graceful
	// close. It is only meaningful after Done is closed.
	Err() error

	// Close ends the session and releases its resources. It is safe to call
	// more than once.
	Close() error
}

// NodeProbe checks that a node is reachable before a session is opened.
type NodeProbe interface {
	Probe(ctx context.Context, params network.Params, endpoint Endpoint) error
}
