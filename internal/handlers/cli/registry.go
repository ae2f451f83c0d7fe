package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/gabapcia/nemwatch/internal/watchlist"

	"github.com/urfave/cli/v3"
)

func watchlistFlags(network, addressUsage string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "network",
			Usage: "NEM network name (mainnet, testnet, mijinnet)",
			Value: network,
		},
		&cli.StringFlag{
			Name:     "address",
			Usage:    addressUsage,
			Required: true,
		},
	}
}

// startWatchingAddressCommand returns a CLI command that adds an address to
// the watchlist used by `monitor` when no address is given.
//
// Usage example:
//
//	nemwatch watch --network testnet --address TALICE...
func startWatchingAddressCommand(wl watchlist.Service, defaultNetwork string) *cli.Command {
	return &cli.Command{
		Name:        "watch",
		Description: "Add an address to the stored watchlist of a network.",
		Usage:       "Registers an address for monitoring. Requires Redis.",
		Flags:       watchlistFlags(defaultNetwork, "Account address to start watching"),
		Action: func(ctx context.Context, c *cli.Command) error {
			if wl == nil {
				return ErrStorageDisabled
			}

			return wl.Watch(ctx, c.String("network"), c.String("address"))
		},
	}
}

// stopWatchingAddressCommand returns a CLI command that removes an address
// from the watchlist.
//
// Usage example:
//
//	nemwatch unwatch --network testnet --address TALICE...
func stopWatchingAddressCommand(wl watchlist.Service, defaultNetwork string) *cli.Command {
	return &cli.Command{
		Name:        "unwatch",
		Description: "Remove an address from the stored watchlist of a network.",
		Usage:       "Stops watching an address. Requires Redis.",
		Flags:       watchlistFlags(defaultNetwork, "Account address to stop watching"),
		Action: func(ctx context.Context, c *cli.Command) error {
			if wl == nil {
				return ErrStorageDisabled
			}

			return wl.Unwatch(ctx, c.String("network"), c.String("address"))
		},
	}
}

// listWatchedAddressesCommand prints the watchlist of a network, one address per line.
func listWatchedAddressesCommand(wl watchlist.Service, defaultNetwork string, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:        "watchlist",
		Description: "Print the stored watchlist of a network.",
		Usage:       "Lists watched addresses. Requires Redis.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "network",
				Usage: "NEM network name (mainnet, testnet, mijinnet)",
				Value: defaultNetwork,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if wl == nil {
				return ErrStorageDisabled
			}

			addresses, err := wl.List(ctx, c.String("network"))
			if err != nil {
				return err
			}

			for _, address := range addresses {
				if _, err := fmt.Fprintln(out, address); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
