package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/blob-encryption-service/cmd/flags"
	"github.com/ruteri/blob-encryption-service/encryption"
	"github.com/ruteri/blob-encryption-service/httpserver"
	"github.com/ruteri/blob-encryption-service/metrics"
)

func main() {
	app := &cli.App{
		Name:  "encryption-server",
		Usage: "Encrypt stored files for a PGP recipient on HTTP request",
		Flags: append(append(append([]cli.Flag{}, flags.ServerFlags...), flags.BackendFlags...), flags.LogFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			ctx := context.Background()

			stores, err := flags.BlobStores(ctx, cCtx, logger)
			if err != nil {
				logger.Error("Failed to configure blob stores", "err", err)
				return err
			}

			router, err := flags.SecretRouter(ctx, cCtx, logger)
			if err != nil {
				logger.Error("Failed to configure secret backends", "err", err)
				return err
			}

			cfg := flags.ConfigureServer(cCtx, logger)

			metricsSrv, err := metrics.New(cfg.MetricsAddr)
			if err != nil {
				logger.Error("Failed to create metrics server", "err", err)
				return err
			}

			orchestrator, err := flags.Orchestrator(cCtx, stores, router, encryption.NewPGPEngine(logger), metricsSrv.Pipeline, logger)
			if err != nil {
				logger.Error("Failed to configure pipeline", "err", err)
				return err
			}

			server, err := httpserver.New(cfg, httpserver.NewHandler(orchestrator, logger), metricsSrv)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
