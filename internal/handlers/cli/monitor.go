package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/gabapcia/nemwatch/internal/config"
	"github.com/gabapcia/nemwatch/internal/monitor"
	"github.com/gabapcia/nemwatch/internal/network"
	"github.com/gabapcia/nemwatch/internal/notify"
	"github.com/gabapcia/nemwatch/internal/pkg/logger"
	"github.com/gabapcia/nemwatch/internal/pkg/resilience/retry"
	"github.com/gabapcia/nemwatch/internal/pkg/shutdown"
	"github.com/gabapcia/nemwatch/internal/watchlist"

	"github.com/urfave/cli/v3"
)

const (
	publishAttempts = 3
	publishDelay    = 200 * time.Millisecond
)

// monitorCommand returns a CLI command that streams the notifications of one
// or more accounts until the process is interrupted.
//
// Usage example:
//
//	nemwatch monitor --network testnet --host 127.0.0.1 --address TALICE... --channel unconfirmed
//
// Without --address the stored watchlist of the network is monitored.
func monitorCommand(deps Dependencies) *cli.Command {
	defaults := deps.Config.Monitor

	return &cli.Command{
		Name:        "monitor",
		Description: "Open one WebSocket connection per address and print or publish every notification received.",
		Usage:       "Monitors accounts until Ctrl+C, a termination signal or, with --interactive, the stop word.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "network", Usage: "NEM network name (mainnet, testnet, mijinnet)", Value: defaults.Network},
			&cli.StringFlag{Name: "host", Usage: "Node host", Value: defaults.Host},
			&cli.StringFlag{Name: "port", Usage: "Node REST port (network default when empty)", Value: defaults.Port},
			&cli.StringFlag{Name: "ws-port", Usage: "Node WebSocket port (network default when empty)", Value: defaults.WSPort},
			&cli.StringSliceFlag{Name: "address", Usage: "Address to monitor, repeatable", Value: defaults.Addresses},
			&cli.StringSliceFlag{Name: "channel", Usage: "Channel to subscribe to, repeatable", Value: defaults.Channels},
			&cli.BoolFlag{Name: "publish", Usage: "Publish notifications to Redis instead of logging them"},
			&cli.BoolFlag{Name: "probe", Usage: "Check the node heartbeat before every connection", Value: defaults.Probe},
			&cli.UintFlag{Name: "retry-attempts", Usage: "Attempts to establish each connection (default from NEMWATCH_RETRY_ATTEMPTS)"},
			&cli.BoolFlag{Name: "interactive", Usage: "Also stop when the stop word is typed on stdin"},
			&cli.StringFlag{Name: "stop-word", Usage: "Console input that stops the monitor", Value: shutdown.DefaultWord},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			settings := defaults
			settings.Network = c.String("network")
			settings.Host = c.String("host")
			settings.Port = c.String("port")
			settings.WSPort = c.String("ws-port")
			settings.Channels = c.StringSlice("channel")
			settings.Probe = c.Bool("probe")
			if c.IsSet("retry-attempts") {
				settings.RetryAttempts = uint(c.Uint("retry-attempts"))
			}

			params, err := network.Lookup(settings.Network)
			if err != nil {
				return fmt.Errorf("%w: %w", monitor.ErrConfiguration, err)
			}

			addresses, err := addressesToMonitor(ctx, deps.Watchlist, params.Name, c.StringSlice("address"))
			if err != nil {
				return err
			}

			handlers, err := channelHandlers(deps, params.Name, settings.Channels, c.Bool("publish"))
			if err != nil {
				return err
			}

			ctx, stop := shutdown.OnSignal(ctx)
			defer stop()

			if c.Bool("interactive") {
				var cancel context.CancelFunc
				ctx, cancel = shutdown.OnConsoleInput(ctx, deps.Stdin, c.String("stop-word"))
				defer cancel()

				fmt.Fprintf(deps.Stdout, "type %q to stop\n", c.String("stop-word"))
			}

			host, port, wsPort := settings.Endpoint()
			stage := monitor.NetworkName(params.Name, monitorOptions(deps, settings)...).
				Host(host).
				Port(port).
				WSPort(wsPort).
				AddressesToMonitor(addresses...)
			for _, h := range handlers {
				stage = stage.Subscribe(h.channel, h.handler)
			}

			logger.Info(ctx, "monitor starting",
				"network", params.Name,
				"node", host,
				"addresses", len(addresses),
				"channels", settings.Channels,
			)

			return stage.Monitor(ctx)
		},
	}
}

// addressesToMonitor returns the addresses given on the command line, or the
// watchlist of network when there are none.
func addressesToMonitor(ctx context.Context, wl watchlist.Service, networkName string, flagged []string) ([]string, error) {
	if len(flagged) > 0 || wl == nil {
		return flagged, nil
	}

	addresses, err := wl.List(ctx, networkName)
	if err != nil {
		return nil, fmt.Errorf("failed to load the watchlist: %w", err)
	}
	return addresses, nil
}

type channelHandler struct {
	channel string
	handler monitor.Handler
}

func channelHandlers(deps Dependencies, networkName string, channels []string, publish bool) ([]channelHandler, error) {
	if publish && deps.Publisher == nil {
		return nil, ErrStorageDisabled
	}

	var opts []notify.PublishOption
	if publish {
		opts = append(opts, notify.WithPublishRetry(retry.New(
			retry.WithAttempts(publishAttempts),
			retry.WithDelay(publishDelay),
		)))
		if deps.Deduplicator != nil {
			opts = append(opts, notify.WithDeduplicator(deps.Deduplicator, deps.Config.Redis.DedupTTL))
		}
	}

	handlers := make([]channelHandler, 0, len(channels))
	for _, channel := range channels {
		h := channelHandler{channel: channel, handler: notify.LogHandler(channel)}
		if publish {
			h.handler = notify.PublishHandler(networkName, channel, deps.Publisher, opts...)
		}
		handlers = append(handlers, h)
	}
	return handlers, nil
}

func monitorOptions(deps Dependencies, settings config.Monitor) []monitor.Option {
	opts := append([]monitor.Option{}, deps.MonitorOptions...)
	opts = append(opts, monitor.WithMaxConcurrentDials(settings.MaxDials))

	if settings.Probe && deps.Node != nil {
		opts = append(opts, monitor.WithNodeProbe(deps.Node))
	}

	if settings.RetryAttempts > 1 {
		opts = append(opts, monitor.WithRetry(retry.New(
			retry.WithAttempts(settings.RetryAttempts),
			retry.WithDelay(settings.RetryDelay),
		)))
	}

	return opts
}
