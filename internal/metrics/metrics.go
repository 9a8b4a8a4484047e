// Package metrics collects Prometheus metrics for scans and sync runs.
// A batch run has nobody scraping it, so the registry is pushed to a
// Pushgateway when the run ends.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"hrp_projects/internal/domain"
)

type Collector struct {
	plans        *prometheus.CounterVec
	actions      *prometheus.CounterVec
	errors       *prometheus.CounterVec
	runDuration  prometheus.Histogram
	lastRun      *prometheus.GaugeVec
	lastSuccess  prometheus.Gauge
	countries    prometheus.Gauge
	chartsPushed prometheus.Counter
}

// NewCollector creates the collector and registers it on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hrp_projects_plans_scanned_total",
			Help: "Scanned plans by outcome",
		}, []string{"outcome"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hrp_projects_dataset_actions_total",
			Help: "Dataset actions applied by kind",
		}, []string{"action"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hrp_projects_errors_total",
			Help: "Errors by stage",
		}, []string{"stage"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hrp_projects_sync_duration_seconds",
			Help:    "Duration of a sync run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hrp_projects_last_run_datasets",
			Help: "Datasets per action in the last sync run",
		}, []string{"action"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hrp_projects_last_success_timestamp_seconds",
			Help: "Unix time of the last sync run without errors",
		}),
		countries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hrp_projects_countries",
			Help: "Countries with qualifying plans in the last sync run",
		}),
		chartsPushed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hrp_projects_charts_configured_total",
			Help: "Chart preview views created or updated",
		}),
	}

	reg.MustRegister(
		c.plans,
		c.actions,
		c.errors,
		c.runDuration,
		c.lastRun,
		c.lastSuccess,
		c.countries,
		c.chartsPushed,
	)

	return c
}

func (c *Collector) RecordPlan(outcome string) {
	c.plans.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordAction(action string) {
	c.actions.WithLabelValues(action).Inc()
}

func (c *Collector) RecordError(stage string) {
	c.errors.WithLabelValues(stage).Inc()
}

func (c *Collector) ObserveRun(stats *domain.SyncStats) {
	c.runDuration.Observe(stats.Duration.Seconds())
	c.countries.Set(float64(stats.Countries))
	c.chartsPushed.Add(float64(stats.Charts))
	c.lastRun.WithLabelValues("create").Set(float64(stats.Created))
	c.lastRun.WithLabelValues("update").Set(float64(stats.Updated))
	c.lastRun.WithLabelValues("unchanged").Set(float64(stats.Unchanged))
	c.lastRun.WithLabelValues("delete").Set(float64(stats.Deleted))
	if stats.Errors == 0 {
		c.lastSuccess.SetToCurrentTime()
	}
}

// Push sends everything in g to the Pushgateway at url, replacing the
// previous push of the same job.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	if err := push.New(url, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
