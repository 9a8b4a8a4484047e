package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newChartsCmd(opts *options) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "charts",
		Short: "Configure the chart preview on existing datasets",
		Long: `Charts walks the organization's HRP datasets and makes sure the primary
resource of each carries exactly one chart preview view with the configured
settings. Only datasets without quick charts are touched unless --all is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			if err := a.cfg.ValidateCharts(); err != nil {
				return err
			}
			catalog, err := a.catalog()
			if err != nil {
				return err
			}

			stats, err := a.charts(catalog).Repair(cmd.Context(), a.managedQuery(), all)
			if err != nil {
				return err
			}

			a.logger.Info("chart repair completed",
				"seen", stats.Seen,
				"updated", stats.Updated,
				"unchanged", stats.Unchanged,
				"errors", stats.Errors,
			)
			fmt.Fprintf(cmd.OutOrStdout(), "seen=%d updated=%d unchanged=%d errors=%d\n",
				stats.Seen, stats.Updated, stats.Unchanged, stats.Errors)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "reconfigure datasets that already have quick charts")

	return cmd
}
