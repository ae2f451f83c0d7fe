package monitor

import "errors"

var (
	// ErrConfiguration is returned synchronously when a plan is incomplete or
	// invalid. Nothing is started when it is returned.
	ErrConfiguration = errors.New("invalid monitor configuration")

	// ErrConnection marks a transport session that could not be established or was lost.
	ErrConnection = errors.New("connection failed")

	// ErrSubscription marks a channel handshake that failed after the session was established.
	ErrSubscription = errors.New("subscription failed")

	// ErrRouting marks an inbound frame whose destination matches no bound handler.
	ErrRouting = errors.New("no handler bound to frame destination")

	// ErrDecode marks an inbound payload that could not be converted to the handler's input type.
	ErrDecode = errors.New("frame payload could not be decoded")

	// ErrServiceAlreadyStarted is returned by Start on a running service.
	ErrServiceAlreadyStarted = errors.New("service already started")
)

// ConnectionFailure describes why one address's connection failed. Failures
// are local to their address and never affect sibling connections.
//
// Errors holds every error collected while opening or serving the connection,
// including the ones returned by retry attempts; use errors.Join(f.Errors...)
// for a single combined error.
type ConnectionFailure struct {
	Address string  // monitored address
	Status  Status  // lifecycle stage reached when the failure happened
	Errors  []error // wraps ErrConnection or ErrSubscription
}
