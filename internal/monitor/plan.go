package monitor

import (
	"fmt"
	"slices"

	"github.com/gabapcia/nemwatch/internal/network"
	"github.com/gabapcia/nemwatch/internal/pkg/validator"
)

// Endpoint is the node a plan connects to.
type Endpoint struct {
	Host   string `validate:"required"`
	Port   string `validate:"required"` // REST port, used by node probes
	WSPort string `validate:"required"` // WebSocket port
}

// ChannelHandle binds one handler to one channel of one address. A handler
// subscribed for N addresses yields N handles.
type ChannelHandle struct {
	Channel     string  `validate:"required"`
	Address     string  `validate:"required"`
	Destination string  `validate:"required"`
	Handler     Handler `validate:"-"`
}

// Plan is the complete description of what to monitor. Plans returned by the
// builder are detached from it: later builder calls never change them.
type Plan struct {
	Network   network.Params
	Endpoint  Endpoint
	Addresses []string        `validate:"min=1,unique,dive,required"`
	Handles   []ChannelHandle `validate:"dive"`
}

// Validate reports every problem that would keep the plan from running.
// The returned error matches ErrConfiguration.
func (p Plan) Validate() error {
	if err := validator.Validate(p); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	for _, h := range p.Handles {
		if h.Handler == nil {
			return fmt.Errorf("%w: nil handler for channel %q", ErrConfiguration, h.Channel)
		}
		if !slices.Contains(p.Addresses, h.Address) {
			return fmt.Errorf("%w: handle for channel %q is bound to unknown address %q", ErrConfiguration, h.Channel, h.Address)
		}
	}

	return nil
}

// handlesFor returns the handles bound to address, in subscription order.
func (p Plan) handlesFor(address string) []ChannelHandle {
	var handles []ChannelHandle
	for _, h := range p.Handles {
		if h.Address == address {
			handles = append(handles, h)
		}
	}
	return handles
}

// clone returns a copy of p that shares no slices with it.
func (p Plan) clone() Plan {
	p.Addresses = slices.Clone(p.Addresses)
	p.Handles = slices.Clone(p.Handles)
	return p
}
