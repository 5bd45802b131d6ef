package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/blob-encryption-service/cmd/flags"
	"github.com/ruteri/blob-encryption-service/encryption"
	"github.com/ruteri/blob-encryption-service/pipeline"
)

var confPathFlag = &cli.StringFlag{
	Name:     "conf-path",
	Required: true,
	Usage:    "configuration object, <scheme>://<container>/<key>",
	EnvVars:  []string{"CONF_PATH"},
}

func main() {
	app := &cli.App{
		Name:  "encrypt-once",
		Usage: "Run a single encryption pipeline invocation and print its outcome",
		Flags: append(append([]cli.Flag{confPathFlag}, flags.BackendFlags...), flags.LogFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			ctx := cCtx.Context

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

			orchestrator, err := flags.Orchestrator(cCtx, stores, router, encryption.NewPGPEngine(logger), nil, logger)
			if err != nil {
				logger.Error("Failed to configure pipeline", "err", err)
				return err
			}
			outcome := orchestrator.Run(ctx, cCtx.String(confPathFlag.Name))

			out, err := json.MarshalIndent(outcome.Body(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))

			if outcome.Kind != pipeline.Success {
				return cli.Exit("", 1)
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
