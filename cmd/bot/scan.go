package main

import (
	"encoding/json"
	"fmt"

	"FxSentinel/internal/config"
	"FxSentinel/internal/notifier"
	"FxSentinel/internal/scheduler"

	"github.com/spf13/cobra"
)

func scanCmd(load func() (*config.Config, error)) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a single cycle and print the snapshots",
		Long: `Fetch every configured instrument once, analyse it and print the result.
Nothing is sent to Telegram, journalled or published.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			src, err := newBarSource(cfg)
			if err != nil {
				return err
			}
			orch := scheduler.NewOrchestrator(cfg.Instruments, src, newTable(cfg),
				scheduler.WithWorkers(cfg.Schedule.Workers),
				scheduler.WithCycleTimeout(cfg.Schedule.CycleTimeout))

			res := orch.RunCycle(cmd.Context(), scheduler.RealClock().Now())
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res.Updated)
			}
			for _, s := range res.Updated {
				fmt.Fprintf(out, "%-8s %10.5f %+6.2f%%  1H: %-22s 5M: %s\n",
					notifier.DisplayName(s.Instrument), s.CurrentPrice, s.PriceChangePct,
					s.Trend.Sign, s.Volatility.Class)
			}
			for name, err := range res.Failed {
				fmt.Fprintf(out, "%-8s unavailable: %v\n", notifier.DisplayName(name), err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print snapshots as JSON")
	return cmd
}
