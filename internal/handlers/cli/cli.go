package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/gabapcia/nemwatch/internal/config"
	"github.com/gabapcia/nemwatch/internal/monitor"
	"github.com/gabapcia/nemwatch/internal/network"
	"github.com/gabapcia/nemwatch/internal/notify"
	"github.com/gabapcia/nemwatch/internal/watchlist"

	"github.com/urfave/cli/v3"
)

// ErrStorageDisabled is returned by commands that need Redis when no Redis
// address was configured.
var ErrStorageDisabled = errors.New("storage is disabled: set NEMWATCH_REDIS_ADDR")

// NodeClient is the part of the node REST client used by the CLI.
type NodeClient interface {
	monitor.NodeProbe
	ChainHeight(ctx context.Context, params network.Params, endpoint monitor.Endpoint) (uint64, error)
}

// Dependencies are the services the commands run against. Watchlist,
// Publisher and Deduplicator are nil when storage is disabled.
type Dependencies struct {
	Config       config.Config
	Watchlist    watchlist.Service
	Publisher    notify.Publisher
	Deduplicator notify.Deduplicator
	Node         NodeClient

	// MonitorOptions are passed to every monitor started by the CLI. They
	// must include a transport.
	MonitorOptions []monitor.Option

	Stdin  io.Reader
	Stdout io.Writer
}

// Run initializes and executes the nemwatch CLI application with args,
// which include the program name as os.Args does.
//
// It registers all available commands:
//
//   - `monitor`: Streams account notifications until interrupted.
//   - `watch` / `unwatch` / `watchlist`: Manage the stored watchlist.
//   - `heartbeat`: Checks that a node is up.
//   - `networks`: Lists the known networks and their default ports.
func Run(ctx context.Context, deps Dependencies, args []string) error {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}

	app := &cli.Command{
		EnableShellCompletion: true,
		Name:                  "nemwatch",
		Description:           "Monitors NEM accounts through the WebSocket notifications of a NIS node.",
		Usage:                 "nemwatch [command] [flags]",
		Reader:                deps.Stdin,
		Writer:                deps.Stdout,
		Commands: []*cli.Command{
			monitorCommand(deps),
			startWatchingAddressCommand(deps.Watchlist, deps.Config.Monitor.Network),
			stopWatchingAddressCommand(deps.Watchlist, deps.Config.Monitor.Network),
			listWatchedAddressesCommand(deps.Watchlist, deps.Config.Monitor.Network, deps.Stdout),
			heartbeatCommand(deps),
			networksCommand(deps.Stdout),
		},
	}

	return app.Run(ctx, args)
}
