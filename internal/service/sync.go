package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	"hrp_projects/internal/domain"
)

var managedName = regexp.MustCompile(`^hrp-projects-[a-z]{3}$`)

// IsManaged reports whether a portal package name belongs to this tool.
func IsManaged(name string) bool {
	return managedName.MatchString(name)
}

type SyncConfig struct {
	Organization string
	Query        string
	DryRun       bool
}

type SyncService struct {
	snapshots SnapshotSource
	builder   DatasetBuilder
	catalog   Catalog
	charts    *ChartConfigurator
	runs      RunStore
	publisher Publisher
	metrics   Metrics
	logger    *slog.Logger
	config    SyncConfig
}

// NewSyncService wires a sync run. runs, publisher and metrics are optional.
func NewSyncService(
	snapshots SnapshotSource,
	builder DatasetBuilder,
	catalog Catalog,
	charts *ChartConfigurator,
	runs RunStore,
	publisher Publisher,
	metrics Metrics,
	logger *slog.Logger,
	cfg SyncConfig,
) *SyncService {
	return &SyncService{
		snapshots: snapshots,
		builder:   builder,
		catalog:   catalog,
		charts:    charts,
		runs:      runs,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With("organization", cfg.Organization),
		config:    cfg,
	}
}

func (s *SyncService) Sync(ctx context.Context) (*domain.SyncStats, error) {
	run := &domain.SyncRun{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		DryRun:    s.config.DryRun,
	}
	logger := s.logger.With("run_id", run.ID)
	logger.Info("starting sync", "dry_run", s.config.DryRun)

	snapshot, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		s.recordError("snapshot")
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	existing, err := s.existing(ctx)
	if err != nil {
		s.recordError("search")
		return nil, fmt.Errorf("find existing datasets: %w", err)
	}

	logger.Info("loaded state",
		"countries", len(snapshot.Countries),
		"plans", snapshot.PlanCount(),
		"existing", len(existing),
	)

	stats := &domain.SyncStats{RunID: run.ID}

	iso3s := snapshot.ISO3s()
	desired := make([]domain.Dataset, 0, len(iso3s))
	for _, iso3 := range iso3s {
		ds, err := s.builder.Build(iso3, snapshot.Plans[iso3], snapshot.CountryName(iso3))
		if err != nil {
			id := domain.DatasetID(iso3)
			// A country we failed to build is still wanted; keep it off the delete list.
			delete(existing, id)
			stats.Errors++
			s.recordError("build")
			run.Actions = append(run.Actions, domain.ActionLog{DatasetID: id, Action: "build", Error: err.Error()})
			logger.Error("build dataset failed", "dataset_id", id, "error", err)
			continue
		}
		desired = append(desired, ds)
	}
	stats.Countries = len(iso3s)

	for _, action := range Reconcile(existing, desired) {
		entry := domain.ActionLog{DatasetID: action.DatasetID, Action: string(action.Kind)}
		if err := s.apply(ctx, logger, action, stats); err != nil {
			entry.Error = err.Error()
			stats.Errors++
			s.recordError(string(action.Kind))
			logger.Error("dataset action failed",
				"dataset_id", action.DatasetID,
				"action", action.Kind,
				"error", err,
			)
		}
		run.Actions = append(run.Actions, entry)
	}

	stats.Duration = time.Since(run.StartedAt)

	run.FinishedAt = time.Now()
	run.Countries = stats.Countries
	run.Created = stats.Created
	run.Updated = stats.Updated
	run.Unchanged = stats.Unchanged
	run.Deleted = stats.Deleted
	run.Errors = stats.Errors

	if s.metrics != nil {
		s.metrics.ObserveRun(stats)
	}

	logger.Info("sync completed",
		"countries", stats.Countries,
		"created", stats.Created,
		"updated", stats.Updated,
		"unchanged", stats.Unchanged,
		"deleted", stats.Deleted,
		"charts", stats.Charts,
		"errors", stats.Errors,
		"duration", stats.Duration,
	)

	if s.runs != nil {
		if err := s.runs.Save(ctx, run); err != nil {
			return stats, fmt.Errorf("save run: %w", err)
		}
	}

	return stats, nil
}

// existing returns the managed packages of the organization keyed by name.
func (s *SyncService) existing(ctx context.Context) (map[string]domain.Dataset, error) {
	datasets, err := s.catalog.SearchPackages(ctx, domain.PackageQuery{
		FilterQuery: fmt.Sprintf("organization:%s %s", s.config.Organization, s.config.Query),
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]domain.Dataset, len(datasets))
	for _, ds := range datasets {
		if IsManaged(ds.Name) {
			out[ds.Name] = ds
		}
	}
	return out, nil
}

func (s *SyncService) apply(ctx context.Context, logger *slog.Logger, action Action, stats *domain.SyncStats) error {
	if action.Kind == ActionNoop {
		stats.Unchanged++
		s.recordAction(action.Kind)
		logger.Info("dataset unchanged", "dataset_id", action.DatasetID)
		return nil
	}

	if s.config.DryRun {
		logger.Info("dry run: would apply action",
			"dataset_id", action.DatasetID,
			"action", action.Kind,
			"resources", len(action.Dataset.Resources),
		)
		countAction(stats, action.Kind)
		s.recordAction(action.Kind)
		return nil
	}

	var err error
	switch action.Kind {
	case ActionCreate:
		_, err = s.catalog.CreatePackage(ctx, action.Dataset)
	case ActionUpdate:
		_, err = s.catalog.UpdatePackage(ctx, action.Dataset)
	case ActionDelete:
		err = s.catalog.DeletePackage(ctx, action.DatasetID)
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("dataset already gone", "dataset_id", action.DatasetID)
			err = nil
		}
	default:
		err = fmt.Errorf("unknown action %q", action.Kind)
	}
	if err != nil {
		return fmt.Errorf("%s dataset: %w", action.Kind, err)
	}

	countAction(stats, action.Kind)
	s.recordAction(action.Kind)
	logger.Info("dataset "+actionPast(action.Kind), "dataset_id", action.DatasetID)

	s.publish(ctx, logger, domain.DatasetEvent{
		RunID:     stats.RunID,
		DatasetID: action.DatasetID,
		Action:    string(action.Kind),
		Resources: len(action.Dataset.Resources),
		Timestamp: time.Now(),
	})

	if action.Kind == ActionDelete || s.charts == nil {
		return nil
	}

	result, err := s.charts.EnsureChart(ctx, action.DatasetID)
	if err != nil {
		return fmt.Errorf("configure chart: %w", err)
	}
	stats.Charts++
	logger.Debug("chart configured", "dataset_id", action.DatasetID, "result", result)
	return nil
}

func (s *SyncService) publish(ctx context.Context, logger *slog.Logger, event domain.DatasetEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.recordError("publish")
		logger.Warn("publish event failed", "dataset_id", event.DatasetID, "error", err)
	}
}

func (s *SyncService) recordAction(kind ActionKind) {
	if s.metrics != nil {
		s.metrics.RecordAction(string(kind))
	}
}

func (s *SyncService) recordError(stage string) {
	if s.metrics != nil {
		s.metrics.RecordError(stage)
	}
}

func countAction(stats *domain.SyncStats, kind ActionKind) {
	switch kind {
	case ActionCreate:
		stats.Created++
	case ActionUpdate:
		stats.Updated++
	case ActionDelete:
		stats.Deleted++
	case ActionNoop:
		stats.Unchanged++
	}
}

func actionPast(kind ActionKind) string {
	switch kind {
	case ActionCreate:
		return "created"
	case ActionUpdate:
		return "updated"
	case ActionDelete:
		return "deleted"
	}
	return string(kind)
}
