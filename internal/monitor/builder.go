package monitor

import (
	"context"
	"fmt"

	"github.com/gabapcia/nemwatch/internal/network"
)

// HostStage is the first step of the builder: it only accepts the node host.
type HostStage interface {
	Host(host string) PortStage
}

// PortStage accepts the node's REST port.
type PortStage interface {
	Port(port string) WSPortStage
}

// WSPortStage accepts the node's WebSocket port.
type WSPortStage interface {
	WSPort(port string) AddressStage
}

// AddressStage accepts the address or addresses to monitor.
type AddressStage interface {
	AddressToMonitor(address string) ChannelStage
	AddressesToMonitor(addresses ...string) ChannelStage
}

// ChannelStage accepts subscriptions and finishes the configuration.
type ChannelStage interface {
	// Subscribe binds h to channel for every configured address.
	Subscribe(channel string, h Handler) ChannelStage

	// Plan validates the configuration and returns a detached plan.
	Plan() (Plan, error)

	// Monitor runs the plan until ctx is cancelled. See Run.
	Monitor(ctx context.Context) error
}

type builder struct {
	opts       []Option
	networkErr error
	plan       Plan
}

var (
	_ HostStage    = (*builder)(nil)
	_ PortStage    = (*builder)(nil)
	_ WSPortStage  = (*builder)(nil)
	_ AddressStage = (*builder)(nil)
	_ ChannelStage = (*builder)(nil)
)

// Init starts a configuration for the mainnet defaults. opts are passed to
// the service created by Monitor.
func Init(opts ...Option) HostStage {
	return &builder{
		opts: opts,
		plan: Plan{Network: network.Mainnet},
	}
}

// NetworkName starts a configuration for the named network. An unknown name
// is reported as ErrConfiguration by Plan and Monitor.
func NetworkName(name string, opts ...Option) HostStage {
	params, err := network.Lookup(name)
	return &builder{
		opts:       opts,
		networkErr: err,
		plan:       Plan{Network: params},
	}
}

func (b *builder) Host(host string) PortStage {
	b.plan.Endpoint.Host = host
	return b
}

func (b *builder) Port(port string) WSPortStage {
	b.plan.Endpoint.Port = port
	return b
}

func (b *builder) WSPort(port string) AddressStage {
	b.plan.Endpoint.WSPort = port
	return b
}

func (b *builder) AddressToMonitor(address string) ChannelStage {
	return b.AddressesToMonitor(address)
}

func (b *builder) AddressesToMonitor(addresses ...string) ChannelStage {
	b.plan.Addresses = make([]string, 0, len(addresses))
	for _, address := range addresses {
		b.plan.Addresses = append(b.plan.Addresses, network.NormalizeAddress(address))
	}
	return b
}

func (b *builder) Subscribe(channel string, h Handler) ChannelStage {
	binder, _ := h.(AddressBinder)
	for _, address := range b.plan.Addresses {
		if binder != nil {
			binder.BindAddress(address)
		}

		b.plan.Handles = append(b.plan.Handles, ChannelHandle{
			Channel:     channel,
			Address:     address,
			Destination: network.Destination(channel, address),
			Handler:     h,
		})
	}
	return b
}

func (b *builder) Plan() (Plan, error) {
	if b.networkErr != nil {
		return Plan{}, fmt.Errorf("%w: %w", ErrConfiguration, b.networkErr)
	}

	plan := b.plan.clone()
	if err := plan.Validate(); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

func (b *builder) Monitor(ctx context.Context) error {
	plan, err := b.Plan()
	if err != nil {
		return err
	}
	return Run(ctx, plan, b.opts...)
}

// Run starts a service for plan and blocks until ctx is cancelled, then
// closes every connection before returning.
//
// Configuration errors are returned before anything is started. Connection
// errors never make Run return early: they are reported per address through
// the failure handler.
func Run(ctx context.Context, plan Plan, opts ...Option) error {
	svc := New(plan, opts...)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Close()

	<-ctx.Done()
	return nil
}
