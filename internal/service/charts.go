package service

import (
	"context"
	"fmt"
	"log/slog"

	"hrp_projects/internal/config"
	"hrp_projects/internal/domain"
)

type ChartResult string

const (
	ChartCreated ChartResult = "created"
	ChartUpdated ChartResult = "updated"
)

// ChartConfigurator keeps exactly one chart preview view on the primary
// resource of a dataset.
type ChartConfigurator struct {
	catalog Catalog
	cfg     config.ChartsConfig
	logger  *slog.Logger
}

func NewChartConfigurator(catalog Catalog, cfg config.ChartsConfig, logger *slog.Logger) *ChartConfigurator {
	return &ChartConfigurator{
		catalog: catalog,
		cfg:     cfg,
		logger:  logger.With("component", "charts"),
	}
}

func (c *ChartConfigurator) EnsureChart(ctx context.Context, datasetID string) (ChartResult, error) {
	ds, err := c.catalog.ShowPackage(ctx, datasetID)
	if err != nil {
		return "", fmt.Errorf("show package %s: %w", datasetID, err)
	}
	return c.ensure(ctx, ds)
}

func (c *ChartConfigurator) ensure(ctx context.Context, ds *domain.Dataset) (ChartResult, error) {
	if len(ds.Resources) == 0 {
		return "", fmt.Errorf("dataset %s: %w", ds.Name, domain.ErrNoResources)
	}
	primary := ds.Resources[0]

	views, err := c.catalog.ListResourceViews(ctx, primary.ID)
	if err != nil {
		return "", fmt.Errorf("list views of %s: %w", primary.ID, err)
	}

	for _, v := range views {
		if v.ViewType != c.cfg.ViewType {
			continue
		}
		v.HXLPreviewConfig = c.cfg.Config
		if _, err := c.catalog.UpdateResourceView(ctx, v); err != nil {
			return "", fmt.Errorf("update view %s: %w", v.ID, err)
		}
		c.logger.Debug("chart view updated", "dataset_id", ds.Name, "view_id", v.ID)
		return ChartUpdated, nil
	}

	view := domain.ResourceView{
		ResourceID:       primary.ID,
		Title:            c.cfg.Title,
		ViewType:         c.cfg.ViewType,
		HXLPreviewConfig: c.cfg.Config,
	}
	if _, err := c.catalog.CreateResourceView(ctx, view); err != nil {
		return "", fmt.Errorf("create view on %s: %w", primary.ID, err)
	}
	c.logger.Debug("chart view created", "dataset_id", ds.Name, "resource_id", primary.ID)
	return ChartCreated, nil
}

// Repair walks the matching datasets and configures their charts. Unless
// all is set, datasets already flagged with quick charts are left alone.
func (c *ChartConfigurator) Repair(ctx context.Context, q domain.PackageQuery, all bool) (*domain.MaintenanceStats, error) {
	datasets, err := c.catalog.SearchPackages(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search packages: %w", err)
	}

	stats := &domain.MaintenanceStats{}
	for i := range datasets {
		ds := &datasets[i]
		if !IsManaged(ds.Name) {
			continue
		}
		stats.Seen++
		if ds.HasQuickcharts && !all {
			stats.Unchanged++
			continue
		}

		result, err := c.ensure(ctx, ds)
		if err != nil {
			stats.Errors++
			c.logger.Error("chart repair failed", "dataset_id", ds.Name, "error", err)
			continue
		}
		stats.Updated++
		c.logger.Info("chart repaired", "dataset_id", ds.Name, "result", result)
	}

	return stats, nil
}
