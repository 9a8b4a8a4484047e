package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrp_projects/internal/config"
	"hrp_projects/internal/dataset"
	"hrp_projects/internal/domain"
)

// memoryCatalog is a tiny in-memory portal.
type memoryCatalog struct {
	packages map[string]domain.Dataset
	views    map[string][]domain.ResourceView
	seq      int
	writes   int
}

func newMemoryCatalog() *memoryCatalog {
	return &memoryCatalog{
		packages: map[string]domain.Dataset{},
		views:    map[string][]domain.ResourceView{},
	}
}

func (m *memoryCatalog) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memoryCatalog) SearchPackages(_ context.Context, _ domain.PackageQuery) ([]domain.Dataset, error) {
	names := make([]string, 0, len(m.packages))
	for n := range m.packages {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]domain.Dataset, 0, len(names))
	for _, n := range names {
		out = append(out, m.packages[n])
	}
	return out, nil
}

func (m *memoryCatalog) ShowPackage(_ context.Context, id string) (*domain.Dataset, error) {
	ds, ok := m.packages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &ds, nil
}

func (m *memoryCatalog) store(ds domain.Dataset) *domain.Dataset {
	m.writes++
	if ds.ID == "" {
		ds.ID = m.nextID("pkg")
	}
	res := make([]domain.Resource, len(ds.Resources))
	for i, r := range ds.Resources {
		if r.ID == "" {
			r.ID = m.nextID("res")
		}
		res[i] = r
	}
	ds.Resources = res
	m.packages[ds.Name] = ds
	return &ds
}

func (m *memoryCatalog) CreatePackage(_ context.Context, ds domain.Dataset) (*domain.Dataset, error) {
	return m.store(ds), nil
}

func (m *memoryCatalog) UpdatePackage(_ context.Context, ds domain.Dataset) (*domain.Dataset, error) {
	if _, ok := m.packages[ds.Name]; !ok {
		return nil, domain.ErrNotFound
	}
	return m.store(ds), nil
}

func (m *memoryCatalog) DeletePackage(_ context.Context, id string) error {
	if _, ok := m.packages[id]; !ok {
		return domain.ErrNotFound
	}
	m.writes++
	delete(m.packages, id)
	return nil
}

func (m *memoryCatalog) ListResourceViews(_ context.Context, resourceID string) ([]domain.ResourceView, error) {
	return m.views[resourceID], nil
}

func (m *memoryCatalog) CreateResourceView(_ context.Context, view domain.ResourceView) (*domain.ResourceView, error) {
	view.ID = m.nextID("view")
	m.views[view.ResourceID] = append(m.views[view.ResourceID], view)
	return &view, nil
}

func (m *memoryCatalog) UpdateResourceView(_ context.Context, view domain.ResourceView) (*domain.ResourceView, error) {
	views := m.views[view.ResourceID]
	for i := range views {
		if views[i].ID == view.ID {
			views[i] = view
			return &view, nil
		}
	}
	return nil, domain.ErrNotFound
}

type staticSnapshot struct{ snap *domain.Snapshot }

func (s staticSnapshot) Snapshot(context.Context) (*domain.Snapshot, error) { return s.snap, nil }

func newRealBuilder(t *testing.T) *dataset.Builder {
	t.Helper()
	b, err := dataset.NewBuilder(dataset.Config{
		CutoffYear:  2016,
		HPCBaseURL:  "https://api.hpc.tools",
		HXLProxyURL: "https://proxy.hxlstandard.org/data/download",
		Metadata:    config.DefaultDataset(),
	})
	require.NoError(t, err)
	return b.WithClock(func() time.Time { return time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC) })
}

func runSync(t *testing.T, catalog *memoryCatalog, snap *domain.Snapshot) *domain.SyncStats {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	charts := NewChartConfigurator(catalog, config.ChartsConfig{ViewType: "hdx_hxl_preview", Title: "Quick Charts", Config: "{}"}, logger)
	svc := NewSyncService(staticSnapshot{snap}, newRealBuilder(t), catalog, charts, nil, nil, nil, logger,
		SyncConfig{Organization: "ocha-fts", Query: "humanitarian response plan"})

	stats, err := svc.Sync(context.Background())
	require.NoError(t, err)
	return stats
}

func TestSync_SecondRunIsNoop(t *testing.T) {
	catalog := newMemoryCatalog()
	snap := snapshotOf(
		domain.Plan{Code: "HABC24", Name: "Abc 2024", Start: "2024-01-01", ISO3: "ABC"},
		domain.Plan{Code: "HABC25", Name: "Abc 2025", Start: "2025-01-01", ISO3: "ABC"},
		domain.Plan{Code: "HDEF25", Name: "Def 2025", Start: "2025-01-01", ISO3: "DEF"},
	)

	first := runSync(t, catalog, snap)
	assert.Equal(t, 2, first.Created)
	assert.Equal(t, 2, first.Charts)
	require.Len(t, catalog.packages, 2)
	assert.Len(t, catalog.packages["hrp-projects-abc"].Resources, 4)

	writes := catalog.writes
	second := runSync(t, catalog, snap)
	assert.Equal(t, 2, second.Unchanged)
	assert.Zero(t, second.Created+second.Updated+second.Deleted)
	assert.Equal(t, writes, catalog.writes)
}

func TestSync_PortalEndsUpMatchingSnapshot(t *testing.T) {
	catalog := newMemoryCatalog()
	catalog.store(domain.Dataset{Name: "hrp-projects-old", Resources: []domain.Resource{{URL: "https://x/old"}}})
	catalog.store(domain.Dataset{Name: "unrelated-dataset"})

	snap := snapshotOf(domain.Plan{Code: "HABC24", Name: "Abc 2024", Start: "2024-01-01", ISO3: "ABC"})
	runSync(t, catalog, snap)

	var managed []string
	for name := range catalog.packages {
		if IsManaged(name) {
			managed = append(managed, name)
		}
	}
	assert.Equal(t, []string{"hrp-projects-abc"}, managed)
	assert.Contains(t, catalog.packages, "unrelated-dataset")

	// Running again with a new plan updates in place and keeps one chart view.
	snap = snapshotOf(
		domain.Plan{Code: "HABC24", Name: "Abc 2024", Start: "2024-01-01", ISO3: "ABC"},
		domain.Plan{Code: "HABC25", Name: "Abc 2025", Start: "2025-01-01", ISO3: "ABC"},
	)
	stats := runSync(t, catalog, snap)
	assert.Equal(t, 1, stats.Updated)

	abc := catalog.packages["hrp-projects-abc"]
	require.Len(t, abc.Resources, 4)
	assert.Equal(t, "habc25-abc-projects.csv", abc.Resources[0].Name)
	assert.Len(t, catalog.views[abc.Resources[0].ID], 1)
}
