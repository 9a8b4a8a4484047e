package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"hrp_projects/internal/snapshot"
)

func newScanCmd(opts *options) *cobra.Command {
	var (
		output     string
		cutoffYear int
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan HPC.tools plans and write a snapshot",
		Long: `Scan lists every plan on HPC.tools, keeps national plans that run in or
after the cutoff year and have at least one registered project, and writes
the result as a JSON snapshot that "sync" can read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("cutoff-year") {
				a.cfg.CutoffYear = cutoffYear
			}
			if err := a.cfg.ValidateScan(); err != nil {
				return err
			}

			ctx := cmd.Context()
			defer a.pushMetrics(ctx)

			snap, err := a.planScanner().Scan(ctx, a.cfg.CutoffYear)
			if err != nil {
				a.metrics.RecordError("scan")
				return fmt.Errorf("scan plans: %w", err)
			}

			a.logger.Info("scan completed",
				"countries", len(snap.ISO3s()),
				"plans", snap.PlanCount(),
			)

			if output == "" || output == "-" {
				return snapshot.Write(cmd.OutOrStdout(), snap)
			}
			if err := snapshot.Save(output, snap); err != nil {
				return err
			}
			a.logger.Info("snapshot written", "path", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "snapshot file, - for stdout")
	cmd.Flags().IntVar(&cutoffYear, "cutoff-year", 0, "earliest plan year to keep (overrides config)")

	return cmd
}
