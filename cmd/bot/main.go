package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"FxSentinel/internal/config"
	"FxSentinel/internal/logger"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:           "fxsentinel",
		Short:         "Forex price-action signal monitor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultPath, "path to the YAML config file")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config validation: %w", err)
		}
		if _, err := logger.Setup(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, os.Stderr); err != nil {
			return nil, fmt.Errorf("setup logger: %w", err)
		}
		log.Debug().Str("path", cfgPath).Strs("instruments", cfg.Instruments).Msg("config loaded")
		return cfg, nil
	}

	cmd.AddCommand(runCmd(load), scanCmd(load))
	return cmd
}
