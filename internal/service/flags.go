package service

import (
	"context"
	"fmt"
	"log/slog"

	"hrp_projects/internal/domain"
)

// FlagMigrator rewrites the subnational flag on managed datasets.
type FlagMigrator struct {
	catalog      Catalog
	organization string
	subnational  string
	logger       *slog.Logger
}

func NewFlagMigrator(catalog Catalog, organization, subnational string, logger *slog.Logger) *FlagMigrator {
	return &FlagMigrator{
		catalog:      catalog,
		organization: organization,
		subnational:  subnational,
		logger:       logger.With("component", "flags"),
	}
}

func (m *FlagMigrator) Run(ctx context.Context, q domain.PackageQuery) (*domain.MaintenanceStats, error) {
	datasets, err := m.catalog.SearchPackages(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search packages: %w", err)
	}

	stats := &domain.MaintenanceStats{}
	for _, ds := range datasets {
		if !IsManaged(ds.Name) || ds.OrganizationName() != m.organization {
			continue
		}
		stats.Seen++
		if ds.Subnational == m.subnational {
			stats.Unchanged++
			continue
		}

		m.logger.Info("updating subnational flag",
			"dataset_id", ds.Name,
			"from", ds.Subnational,
			"to", m.subnational,
		)
		ds.Subnational = m.subnational
		if _, err := m.catalog.UpdatePackage(ctx, ds); err != nil {
			stats.Errors++
			m.logger.Error("flag update failed", "dataset_id", ds.Name, "error", err)
			continue
		}
		stats.Updated++
	}

	return stats, nil
}
