// Package nis connects the monitor to NEM Infrastructure Server nodes: the
// STOMP-over-WebSocket stream of account notifications and the REST calls
// used to check a node's health before dialing it.
package nis

import (
	"context"

	"github.com/gabapcia/nemwatch/internal/monitor"
	"github.com/gabapcia/nemwatch/internal/pkg/logger"
	"github.com/gabapcia/nemwatch/internal/pkg/transport/stomp"
)

// streamClient opens one STOMP session per monitor connection.
type streamClient struct {
	opts []stomp.Option
}

var _ monitor.Transport = (*streamClient)(nil)

// NewStreamClient returns a monitor.Transport backed by the stomp package.
func NewStreamClient(opts ...stomp.Option) *streamClient {
	return &streamClient{
		opts: opts,
	}
}

func (c *streamClient) Connect(ctx context.Context, uri string, onUnrouted monitor.FrameFunc) (monitor.Session, error) {
	s, err := stomp.Dial(ctx, uri, func(msg stomp.Message) { onUnrouted(toFrame(msg)) }, c.opts...)
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "stomp session established", "stomp.version", s.Version())
	return &session{conn: s}, nil
}

// session adapts a stomp.Session to monitor.Session.
type session struct {
	conn *stomp.Session
}

var _ monitor.Session = (*session)(nil)

func (s *session) Subscribe(ctx context.Context, destination string, onFrame monitor.FrameFunc) error {
	id, err := s.conn.Subscribe(ctx, destination, func(msg stomp.Message) { onFrame(toFrame(msg)) })
	if err != nil {
		return err
	}

	logger.Debug(ctx, "subscribed", "stomp.destination", destination, "stomp.subscription", id)
	return nil
}

func (s *session) Done() <-chan struct{} { return s.conn.Done() }
func (s *session) Err() error            { return s.conn.Err() }
func (s *session) Close() error          { return s.conn.Close() }

func toFrame(msg stomp.Message) monitor.Frame {
	return monitor.Frame{
		Destination: msg.Destination,
		Payload:     msg.Body,
	}
}
