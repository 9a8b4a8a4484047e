package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"hrp_projects/internal/domain"
)

type Catalog interface {
	SearchPackages(ctx context.Context, q domain.PackageQuery) ([]domain.Dataset, error)
	ShowPackage(ctx context.Context, id string) (*domain.Dataset, error)
	CreatePackage(ctx context.Context, ds domain.Dataset) (*domain.Dataset, error)
	UpdatePackage(ctx context.Context, ds domain.Dataset) (*domain.Dataset, error)
	DeletePackage(ctx context.Context, id string) error
	ListResourceViews(ctx context.Context, resourceID string) ([]domain.ResourceView, error)
	CreateResourceView(ctx context.Context, view domain.ResourceView) (*domain.ResourceView, error)
	UpdateResourceView(ctx context.Context, view domain.ResourceView) (*domain.ResourceView, error)
}

type SnapshotSource interface {
	Snapshot(ctx context.Context) (*domain.Snapshot, error)
}

type DatasetBuilder interface {
	Build(iso3 string, plans []domain.Plan, countryName string) (domain.Dataset, error)
}

type RunStore interface {
	Save(ctx context.Context, run *domain.SyncRun) error
}

type Publisher interface {
	Publish(ctx context.Context, event domain.DatasetEvent) error
	Close() error
}

type Metrics interface {
	RecordAction(action string)
	RecordError(stage string)
	ObserveRun(stats *domain.SyncStats)
}
