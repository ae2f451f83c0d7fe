package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/gabapcia/nemwatch/internal/monitor"
	"github.com/gabapcia/nemwatch/internal/network"

	"github.com/urfave/cli/v3"
)

// heartbeatCommand returns a CLI command that checks that a node answers its
// heartbeat and prints its chain height.
//
// Usage example:
//
//	nemwatch heartbeat --network testnet --host 127.0.0.1
func heartbeatCommand(deps Dependencies) *cli.Command {
	defaults := deps.Config.Monitor

	return &cli.Command{
		Name:        "heartbeat",
		Description: "Check that a NIS node is up and print its chain height.",
		Usage:       "Probes a node through its REST API.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "network", Usage: "NEM network name (mainnet, testnet, mijinnet)", Value: defaults.Network},
			&cli.StringFlag{Name: "host", Usage: "Node host", Value: defaults.Host},
			&cli.StringFlag{Name: "port", Usage: "Node REST port (network default when empty)", Value: defaults.Port},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			params, err := network.Lookup(c.String("network"))
			if err != nil {
				return err
			}

			endpoint := monitor.Endpoint{Host: c.String("host"), Port: c.String("port")}
			if endpoint.Port == "" {
				endpoint.Port = params.Port
			}

			if err := deps.Node.Probe(ctx, params, endpoint); err != nil {
				return err
			}

			height, err := deps.Node.ChainHeight(ctx, params, endpoint)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(deps.Stdout, "%s is up on %s, chain height %d\n",
				params.HTTPURL(endpoint.Host, endpoint.Port), params.Name, height)
			return err
		},
	}
}

// networksCommand prints the known networks and their default ports.
func networksCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:        "networks",
		Description: "List the known NEM networks with their address prefix and default ports.",
		Usage:       "Lists networks.",
		Action: func(ctx context.Context, c *cli.Command) error {
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPREFIX\tPORT\tWS PORT")
			for _, name := range network.Names() {
				params, _ := network.Lookup(name)
				fmt.Fprintf(w, "%s\t%c\t%s\t%s\n", params.Name, params.AddressPrefix, params.Port, params.WSPort)
			}
			return w.Flush()
		},
	}
}
