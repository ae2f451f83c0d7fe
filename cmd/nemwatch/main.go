// Command nemwatch monitors NEM accounts through the WebSocket notifications
// of a NIS node.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gabapcia/nemwatch/internal/config"
	"github.com/gabapcia/nemwatch/internal/handlers/cli"
	"github.com/gabapcia/nemwatch/internal/infra/node/nis"
	"github.com/gabapcia/nemwatch/internal/infra/storage/redis"
	"github.com/gabapcia/nemwatch/internal/monitor"
	"github.com/gabapcia/nemwatch/internal/pkg/logger"
	"github.com/gabapcia/nemwatch/internal/pkg/telemetry"
	"github.com/gabapcia/nemwatch/internal/pkg/transport/http"
	"github.com/gabapcia/nemwatch/internal/pkg/transport/stomp"
	"github.com/gabapcia/nemwatch/internal/watchlist"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Telemetry {
		shutdownTelemetry, err := telemetry.Init(ctx, cfg.ServiceName)
		if err != nil {
			return fmt.Errorf("failed to start telemetry: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if shutdownErr := shutdownTelemetry(ctx); shutdownErr != nil && err == nil {
				err = shutdownErr
			}
		}()
	}

	// The logger must be initialized after telemetry to tee into OpenTelemetry.
	if err := logger.Init(cfg.LogLevel); err != nil {
		return err
	}
	defer logger.Sync()

	httpClient := http.NewClient(
		http.WithTimeout(cfg.Node.Timeout),
		http.WithRetryMax(cfg.Node.RetryMax),
		http.WithRetryWaitMin(cfg.Node.RetryWaitMin),
		http.WithRetryWaitMax(cfg.Node.RetryWaitMax),
		http.WithUserAgent(cfg.ServiceName),
	)

	deps := cli.Dependencies{
		Config: cfg,
		Node:   nis.NewNodeClient(httpClient.StandardClient()),
		MonitorOptions: []monitor.Option{
			monitor.WithTransport(nis.NewStreamClient(
				stomp.WithHandshakeTimeout(cfg.Monitor.HandshakeTimeout),
				stomp.WithReceipts(cfg.Monitor.Receipts),
			)),
		},
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}

	if cfg.Redis.Addr != "" {
		storage, err := redis.NewClient(ctx,
			cfg.Redis.Addr,
			cfg.Redis.Username,
			cfg.Redis.Password,
			cfg.Redis.DB,
			redis.WithStreamMaxLen(cfg.Redis.StreamMaxLen),
		)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer storage.Close()

		deps.Watchlist = watchlist.New(storage)
		deps.Publisher = storage
		deps.Deduplicator = storage
	}

	return cli.Run(ctx, deps, os.Args)
}
