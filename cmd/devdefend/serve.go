package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zero-day-ai/devdefend"
	"github.com/zero-day-ai/devdefend/health"
	"github.com/zero-day-ai/devdefend/progress"
	"github.com/zero-day-ai/devdefend/serve"
)

func newServeCmd() *cobra.Command {
	var (
		certFile string
		keyFile  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health checks and live scan progress",
		Long: `Serve listens for progress WebSocket subscribers on the HTTP address and
exposes the grpc.health.v1 service on the gRPC port.

When redis_url is configured, progress published by any replica is
relayed through Redis to whichever replica holds the subscriber.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := []devdefend.Option{
				devdefend.WithConfig(cfg),
				devdefend.WithLogger(logger),
			}

			var relay *progress.Relay
			if cfg.RedisURL != "" {
				relay, err = progress.NewRelay(progress.RelayOptions{URL: cfg.RedisURL, Logger: logger})
				if err != nil {
					return err
				}
				defer devdefend.CloseWithLog(relay, logger, "redis relay")
				opts = append(opts, devdefend.WithNotifier(relay))
			}

			engine, err := devdefend.New(opts...)
			if err != nil {
				return err
			}
			if relay != nil {
				engine.RegisterHealthCheck("redis", func(ctx context.Context) health.Status {
					return health.RedisCheck(ctx, relay)
				})
			}
			if cfg.IsRemediationEnabled() && cfg.ExternalBackendCredential != "" {
				engine.RegisterHealthCheck("remediation_backend", func(ctx context.Context) health.Status {
					return health.BackendCheck(ctx, cfg.BackendURL)
				})
			}

			srv, err := serve.NewServer(engine, engine.Registry(),
				serve.WithPort(cfg.GetGRPCPort()),
				serve.WithListenAddr(cfg.GetListenAddr()),
				serve.WithTLS(certFile, keyFile),
				serve.WithLogger(logger),
			)
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				defer stop()
				return srv.Serve(gctx)
			})
			if relay != nil {
				g.Go(func() error {
					err := relay.Forward(gctx, engine.Registry(), nil)
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				})
			}
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&certFile, "tls-cert", "", "TLS certificate for the gRPC listener")
	cmd.Flags().StringVar(&keyFile, "tls-key", "", "TLS private key for the gRPC listener")

	return cmd
}
