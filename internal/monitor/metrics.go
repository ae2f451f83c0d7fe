package monitor

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationScope = "github.com/gabapcia/nemwatch/internal/monitor"

type metrics struct {
	framesRouted       metric.Int64Counter
	framesDropped      metric.Int64Counter
	connectionFailures metric.Int64Counter
	activeConnections  metric.Int64UpDownCounter
}

// newMetrics creates the instruments on the global MeterProvider. Instruments
// that cannot be created fall back to no-ops.
func newMetrics() *metrics {
	meter := otel.Meter(instrumentationScope)

	m := &metrics{
		framesRouted:       noop.Int64Counter{},
		framesDropped:      noop.Int64Counter{},
		connectionFailures: noop.Int64Counter{},
		activeConnections:  noop.Int64UpDownCounter{},
	}

	if c, err := meter.Int64Counter("nemwatch.frames.routed",
		metric.WithDescription("Frames delivered to a handler."),
	); err == nil {
		m.framesRouted = c
	}
	if c, err := meter.Int64Counter("nemwatch.frames.dropped",
		metric.WithDescription("Frames, or frame deliveries, dropped by reason."),
	); err == nil {
		m.framesDropped = c
	}
	if c, err := meter.Int64Counter("nemwatch.connections.failed",
		metric.WithDescription("Connections that failed to open or were lost."),
	); err == nil {
		m.connectionFailures = c
	}
	if c, err := meter.Int64UpDownCounter("nemwatch.connections.active",
		metric.WithDescription("Connections with every subscription in place."),
	); err == nil {
		m.activeConnections = c
	}

	return m
}

func (m *metrics) frameRouted(ctx context.Context, channel string) {
	m.framesRouted.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", channel)))
}

func (m *metrics) frameDropped(ctx context.Context, reason string) {
	m.framesDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *metrics) connectionFailed(ctx context.Context, status Status) {
	m.connectionFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status.String())))
}

func (m *metrics) connectionActive(ctx context.Context, delta int64) {
	m.activeConnections.Add(ctx, delta)
}
