package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/devdefend/config"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "devdefend",
		Short:         "DevDefend - insecure pattern scanner and CI gate",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to devdefend.yaml or a directory containing it")

	root.AddCommand(newScanCmd(), newServeCmd())
	return root
}

// loadConfig resolves the --config flag. An empty path uses defaults plus
// environment overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Resolve(path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, cfg.Logger(os.Stderr), nil
}
