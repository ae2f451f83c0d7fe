package monitor

import (
	"context"
	"fmt"

	"github.com/gabapcia/nemwatch/internal/pkg/logger"
)

// Reasons recorded when a frame, or one of its deliveries, is dropped.
const (
	dropReasonRouting = "routing"
	dropReasonDecode  = "decode"
	dropReasonHandler = "handler"
)

// router delivers the frames of one connection to the handles bound to it.
// All its methods run on the session's delivery goroutine, so frames are
// handled strictly in arrival order.
type router struct {
	metrics *metrics
}

func newRouter(m *metrics) *router {
	return &router{metrics: m}
}

// forHandle returns the FrameFunc registered for h's subscription.
func (r *router) forHandle(ctx context.Context, h ChannelHandle) FrameFunc {
	return func(frame Frame) {
		if frame.Destination != h.Destination {
			r.drop(ctx, frame, fmt.Errorf("%w: expected %q", ErrRouting, h.Destination))
			return
		}
		r.deliver(ctx, h, frame)
	}
}

// unrouted handles frames the session could not attribute to a subscription.
func (r *router) unrouted(ctx context.Context) FrameFunc {
	return func(frame Frame) {
		r.drop(ctx, frame, ErrRouting)
	}
}

func (r *router) drop(ctx context.Context, frame Frame, err error) {
	r.metrics.frameDropped(ctx, dropReasonRouting)
	logger.Warn(ctx, "dropping unroutable frame",
		"frame.destination", frame.Destination,
		"error", err,
	)
}

// deliver decodes frame for h and invokes its handler. Every failure is
// logged and confined to this delivery.
func (r *router) deliver(ctx context.Context, h ChannelHandle, frame Frame) {
	msg, err := h.Handler.Decode(frame.Payload)
	if err != nil {
		r.metrics.frameDropped(ctx, dropReasonDecode)
		logger.Warn(ctx, "dropping undecodable frame",
			"frame.destination", frame.Destination,
			"channel", h.Channel,
			"error", fmt.Errorf("%w: %w", ErrDecode, err),
		)
		return
	}

	if err := r.invoke(ctx, h, msg); err != nil {
		r.metrics.frameDropped(ctx, dropReasonHandler)
		logger.Error(ctx, "handler failed",
			"frame.destination", frame.Destination,
			"channel", h.Channel,
			"error", err,
		)
		return
	}

	r.metrics.frameRouted(ctx, h.Channel)
}

func (r *router) invoke(ctx context.Context, h ChannelHandle, msg any) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panicked: %v", p)
		}
	}()

	return h.Handler.HandleMessage(ctx, h.Address, msg)
}
