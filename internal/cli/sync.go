package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"hrp_projects/internal/domain"
	"hrp_projects/internal/scheduler"
	"hrp_projects/internal/service"
	"hrp_projects/internal/snapshot"
)

func newSyncCmd(opts *options) *cobra.Command {
	var (
		every  time.Duration
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "sync [snapshot.json]",
		Short: "Create, update and delete HDX datasets to match the plans",
		Long: `Sync builds one dataset per country from a snapshot file, or from a live
scan when no file is given, and makes the portal match: missing datasets
are created, datasets whose resources changed are updated, and managed
datasets for countries that no longer qualify are deleted. Every created
or updated dataset gets its chart preview configured.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			if err := a.cfg.ValidateCharts(); err != nil {
				return err
			}

			var source service.SnapshotSource
			if len(args) == 1 {
				source = snapshot.NewFile(args[0])
			} else {
				if err := a.cfg.ValidateScan(); err != nil {
					return err
				}
				source = snapshot.NewLive(a.planScanner(), a.cfg.CutoffYear)
			}

			catalog, err := a.catalog()
			if err != nil {
				return err
			}
			builder, err := a.builder()
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			runs, closeLedger, err := a.ledger(ctx)
			if err != nil {
				return err
			}
			defer closeLedger()

			var runStore service.RunStore
			if runs != nil {
				a.logPreviousRun(ctx, runs)
				runStore = runs
			}

			var events service.Publisher
			if !dryRun {
				pub, err := a.events()
				if err != nil {
					return err
				}
				if pub != nil {
					defer pub.Close()
					events = pub
				}
			}

			svc := service.NewSyncService(
				source,
				builder,
				catalog,
				a.charts(catalog),
				runStore,
				events,
				a.metrics,
				a.logger,
				service.SyncConfig{
					Organization: a.cfg.CKAN.Organization,
					Query:        a.cfg.CKAN.Query,
					DryRun:       dryRun,
				},
			)
			syncer := &reportingSyncer{syncer: svc, app: a, out: cmd.OutOrStdout()}

			if every > 0 {
				a.logger.Info("starting hrp sync loop", "interval", every, "dry_run", dryRun)
				err := scheduler.NewScheduler(syncer, every, a.cfg.Sync.RunTimeout, a.logger).Start(ctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}

			_, err = syncer.Sync(ctx)
			return err
		},
	}

	cmd.Flags().DurationVar(&every, "every", 0, "repeat the sync on this interval until interrupted")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log planned changes without writing to the portal")

	return cmd
}

// reportingSyncer prints a summary and pushes metrics after each run.
type reportingSyncer struct {
	syncer scheduler.Syncer
	app    *app
	out    io.Writer
}

func (r *reportingSyncer) Sync(ctx context.Context) (*domain.SyncStats, error) {
	stats, err := r.syncer.Sync(ctx)
	r.app.pushMetrics(ctx)
	if err != nil {
		return stats, err
	}

	fmt.Fprintf(r.out, "created=%d updated=%d unchanged=%d deleted=%d charts=%d errors=%d\n",
		stats.Created, stats.Updated, stats.Unchanged, stats.Deleted, stats.Charts, stats.Errors)
	return stats, nil
}
