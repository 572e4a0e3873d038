package main

import (
	"context"
	"time"

	"FxSentinel/internal/config"
	"FxSentinel/internal/dashboard"
	"FxSentinel/internal/metrics"
	"FxSentinel/internal/scheduler"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func runCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll all instruments on schedule and deliver status updates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log.Info().Msg("FxSentinel starting...")
	metrics.Register()

	app, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	sched, err := scheduler.NewScheduler(cfg.Schedule.Cron, scheduler.RealClock(), app.orch, cfg.Schedule.RunOnStart)
	if err != nil {
		return err
	}

	if cfg.Server.Addr != "" {
		srv := dashboard.NewServer(cfg.Server.Addr, app.table)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("stop http server")
			}
		}()
	}

	if app.telegram != nil && cfg.Telegram.Commands {
		go app.telegram.StartPolling(ctx, app.orch.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	app.orch.Announce(ctx)
	log.Info().Str("schedule", cfg.Schedule.Cron).Strs("instruments", cfg.Instruments).
		Msg("FxSentinel is running. Press Ctrl+C to stop.")

	sched.Run(ctx)

	log.Info().Msg("FxSentinel stopped")
	return nil
}
