package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"hrp_projects/internal/domain"
	"hrp_projects/internal/service"
)

func newFlagsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "flags",
		Short: "Set the subnational flag on existing datasets",
		Long: `Flags finds the organization's HRP datasets by title and sets their
subnational flag to the configured value, updating only datasets that
differ.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			meta, err := a.metadata()
			if err != nil {
				return err
			}
			catalog, err := a.catalog()
			if err != nil {
				return err
			}

			migrator := service.NewFlagMigrator(catalog, a.cfg.CKAN.Organization, meta.Subnational, a.logger)
			stats, err := migrator.Run(cmd.Context(), domain.PackageQuery{Query: a.cfg.CKAN.TitleQuery})
			if err != nil {
				return err
			}

			a.logger.Info("flag migration completed",
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
}
