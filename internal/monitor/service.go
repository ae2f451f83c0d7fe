package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gabapcia/nemwatch/internal/pkg/logger"
	"github.com/gabapcia/nemwatch/internal/pkg/resilience/retry"
	"github.com/gabapcia/nemwatch/internal/pkg/x/chflow"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

const (
	connectionFailureChannelBufferSize = 5
	defaultMaxConcurrentDials          = 16
)

// Service supervises one connection per address of a plan.
type Service interface {
	// Start validates the plan and opens every connection. The first address
	// is established on the calling goroutine, every other address on its
	// own goroutine. Start only fails for configuration errors; connection
	// failures are reported through the failure handler.
	Start(ctx context.Context) error

	// Close stops every connection and waits until each opened session has
	// been released, including sessions still being established.
	Close()

	// Connections returns a snapshot of every connection, in plan order.
	Connections() []ConnectionState
}

type closeFunc func()
type failureHandler func(ctx context.Context, failure ConnectionFailure)

type service struct {
	mu        sync.Mutex
	isStarted bool
	closeFunc closeFunc

	plan        Plan
	connections []*connection

	transport      Transport
	probe          NodeProbe
	retry          retry.Retry
	failureHandler failureHandler
	dials          *semaphore.Weighted
	metrics        *metrics
	tracer         trace.Tracer
}

var _ Service = (*service)(nil)

func (s *service) Start(ctx context.Context) error {
	if err := s.checkConfig(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.isStarted {
		s.mu.Unlock()
		return ErrServiceAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	ctx = logger.Derive(ctx, "network", s.plan.Network.Name, "node", s.plan.Endpoint.Host)

	var (
		wg        sync.WaitGroup
		failureCh = make(chan ConnectionFailure, connectionFailureChannelBufferSize)
	)

	s.connections = make([]*connection, 0, len(s.plan.Addresses))
	for _, address := range s.plan.Addresses {
		s.connections = append(s.connections, newConnection(s.plan, address, s.metrics))
	}

	s.closeFunc = func() {
		cancel()
		wg.Wait()
		close(failureCh)
	}
	s.isStarted = true

	go s.handleConnectionFailures(ctx, failureCh)

	// Every unit is registered before any of them runs so that Close can
	// wait for all of them, even when it races with Start.
	wg.Add(len(s.connections))
	s.mu.Unlock()

	for _, conn := range s.connections[1:] {
		conn := conn
		go func() {
			defer wg.Done()
			s.runConnection(ctx, conn, failureCh)
		}()
	}

	first := s.connections[0]
	firstCtx := logger.Derive(ctx, "address", first.address)
	if err := s.open(firstCtx, first); err != nil {
		s.fail(firstCtx, first, err, failureCh)
		wg.Done()
		return nil
	}

	go func() {
		defer wg.Done()
		s.serve(firstCtx, first, failureCh)
	}()

	return nil
}

func (s *service) checkConfig() error {
	if s.transport == nil {
		return fmt.Errorf("%w: transport is not configured", ErrConfiguration)
	}
	return s.plan.Validate()
}

func (s *service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closeFunc != nil {
		s.closeFunc()
	}
	s.isStarted = false
	s.closeFunc = nil
}

func (s *service) Connections() []ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := make([]ConnectionState, 0, len(s.connections))
	for _, c := range s.connections {
		states = append(states, c.state())
	}
	return states
}

// runConnection is the whole lifetime of one address's connection.
func (s *service) runConnection(ctx context.Context, c *connection, failureCh chan<- ConnectionFailure) {
	ctx = logger.Derive(ctx, "address", c.address)

	if err := s.open(ctx, c); err != nil {
		s.fail(ctx, c, err, failureCh)
		return
	}

	s.serve(ctx, c, failureCh)
}

// open establishes c, retrying the whole establishment when a retry policy is
// configured. The number of dials in flight is bounded by s.dials.
func (s *service) open(ctx context.Context, c *connection) error {
	if err := s.dials.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.dials.Release(1)

	ctx, span := s.tracer.Start(ctx, "monitor.connect", trace.WithAttributes(
		attribute.String("nem.address", c.address),
		attribute.String("nem.uri", c.uri),
		attribute.Int("nem.subscriptions", len(c.handles)),
	))
	defer span.End()

	attempt := func() error {
		err := c.establish(ctx, s.transport, s.probe)
		if err != nil {
			_ = c.close()
		}
		return err
	}

	var err error
	if s.retry != nil {
		err = s.retry.Execute(ctx, attempt)
	} else {
		err = attempt()
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "connection failed")
		return err
	}

	s.metrics.connectionActive(ctx, 1)
	logger.Info(ctx, "connection active", "subscriptions", len(c.handles))
	return nil
}

// serve waits until the session ends or ctx is cancelled, then releases it.
func (s *service) serve(ctx context.Context, c *connection, failureCh chan<- ConnectionFailure) {
	defer s.metrics.connectionActive(context.WithoutCancel(ctx), -1)

	session := c.currentSession()

	select {
	case <-ctx.Done():
		_ = c.close()
		c.setStatus(StatusClosed)
		return
	case <-session.Done():
	}

	sessionErr := session.Err()
	_ = c.close()

	if sessionErr == nil {
		c.setStatus(StatusClosed)
		logger.Info(ctx, "session closed by peer")
		return
	}

	s.fail(ctx, c, fmt.Errorf("%w: session lost: %w", ErrConnection, sessionErr), failureCh)
}

// fail marks c as failed and reports err, unless the failure is only the
// consequence of a shutdown, in which case c is marked closed.
func (s *service) fail(ctx context.Context, c *connection, err error, failureCh chan<- ConnectionFailure) {
	_ = c.close()

	if ctx.Err() != nil {
		c.setStatus(StatusClosed)
		return
	}

	status := c.getStatus()
	c.setStatus(StatusFailed)
	s.metrics.connectionFailed(ctx, status)

	failure := ConnectionFailure{
		Address: c.address,
		Status:  status,
		Errors:  unwrapJoined(err),
	}
	_ = chflow.Send(ctx, failureCh, failure)
}

// unwrapJoined splits the error of a retried establishment into one entry per
// attempt. Any other error is kept whole.
func unwrapJoined(err error) []error {
	var attempts interface{ WrappedErrors() []error }
	if errors.As(err, &attempts) {
		return attempts.WrappedErrors()
	}
	return []error{err}
}

// handleConnectionFailures passes every reported failure to the failure
// handler until failureCh is closed or ctx is cancelled.
func (s *service) handleConnectionFailures(ctx context.Context, failureCh <-chan ConnectionFailure) {
	chflow.Drain(ctx, failureCh, func(failure ConnectionFailure) {
		if s.failureHandler != nil {
			s.failureHandler(ctx, failure)
		}
	})
}

type config struct {
	transport          Transport
	probe              NodeProbe
	retry              retry.Retry
	failureHandler     failureHandler
	maxConcurrentDials int64
}

// Option configures a Service.
type Option func(*config)

// New creates a Service for plan. The plan is copied; it is validated by Start.
func New(plan Plan, opts ...Option) *service {
	cfg := config{
		failureHandler:     defaultOnConnectionFailure,
		maxConcurrentDials: defaultMaxConcurrentDials,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.maxConcurrentDials < 1 {
		cfg.maxConcurrentDials = 1
	}

	return &service{
		plan:           plan.clone(),
		transport:      cfg.transport,
		probe:          cfg.probe,
		retry:          cfg.retry,
		failureHandler: cfg.failureHandler,
		dials:          semaphore.NewWeighted(cfg.maxConcurrentDials),
		metrics:        newMetrics(),
		tracer:         otel.Tracer(instrumentationScope),
	}
}

func defaultOnConnectionFailure(ctx context.Context, failure ConnectionFailure) {
	logger.Error(ctx, "connection failure",
		"connection.address", failure.Address,
		"connection.status", failure.Status.String(),
		"connection.errors", errors.Join(failure.Errors...),
	)
}

// WithTransport sets the transport used to open sessions. It is required.
func WithTransport(t Transport) Option {
	return func(c *config) {
		c.transport = t
	}
}

// WithNodeProbe sets a probe run before every dial.
func WithNodeProbe(p NodeProbe) Option {
	return func(c *config) {
		c.probe = p
	}
}

// WithRetry retries the establishment of a connection (probe, dial and
// subscriptions) with r. Lost sessions are never re-established. By default
// nothing is retried.
func WithRetry(r retry.Retry) Option {
	return func(c *config) {
		c.retry = r
	}
}

// WithFailureHandler replaces the default handler, which logs every failure.
func WithFailureHandler(f func(ctx context.Context, failure ConnectionFailure)) Option {
	return func(c *config) {
		c.failureHandler = f
	}
}

// WithMaxConcurrentDials bounds how many connections are being established at
// the same time. Established connections are not bounded. Default: 16.
func WithMaxConcurrentDials(n int64) Option {
	return func(c *config) {
		c.maxConcurrentDials = n
	}
}
