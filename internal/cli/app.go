package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"hrp_projects/internal/ckan"
	"hrp_projects/internal/config"
	"hrp_projects/internal/dataset"
	"hrp_projects/internal/domain"
	"hrp_projects/internal/metrics"
	"hrp_projects/internal/publisher"
	"hrp_projects/internal/scanner"
	"hrp_projects/internal/service"
	"hrp_projects/internal/source/hpc"
	"hrp_projects/internal/storage/postgres"
	"hrp_projects/internal/transport"
)

// app holds what every command needs after the config is loaded.
type app struct {
	cfg      *config.Config
	preset   string
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Collector
}

func newApp(opts *options) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	return &app{
		cfg:      cfg,
		preset:   opts.preset,
		logger:   opts.newLogger(cfg.LogLevel),
		registry: registry,
		metrics:  metrics.NewCollector(registry),
	}, nil
}

func (a *app) metadata() (config.DatasetConfig, error) {
	return a.cfg.Preset(a.preset)
}

func (a *app) planScanner() *scanner.Scanner {
	client := transport.New(transport.Config{
		Timeout:        a.cfg.HPC.Timeout,
		MaxAttempts:    a.cfg.HPC.Retry.MaxAttempts,
		InitialBackoff: a.cfg.HPC.Retry.InitialBackoff,
		MaxBackoff:     a.cfg.HPC.Retry.MaxBackoff,
	}, a.logger)

	source := hpc.New(hpc.Config{
		BaseURL:   a.cfg.HPC.BaseURL,
		UserAgent: a.cfg.UserAgent,
	}, client, a.logger)

	return scanner.New(source, a.metrics, scanner.Config{
		Concurrency:       a.cfg.HPC.CheckConcurrency,
		RequestsPerSecond: a.cfg.HPC.RequestsPerSecond,
	}, a.logger)
}

func (a *app) catalog() (*ckan.Client, error) {
	if err := a.cfg.ValidatePortal(); err != nil {
		return nil, err
	}

	retrying := transport.Config{
		Timeout:        a.cfg.CKAN.Timeout,
		MaxAttempts:    a.cfg.CKAN.Retry.MaxAttempts,
		InitialBackoff: a.cfg.CKAN.Retry.InitialBackoff,
		MaxBackoff:     a.cfg.CKAN.Retry.MaxBackoff,
	}
	single := retrying
	single.MaxAttempts = 1

	return ckan.New(ckan.Config{
		BaseURL:   a.cfg.CKAN.URL,
		APIKey:    a.cfg.CKAN.APIKey,
		UserAgent: a.cfg.UserAgent,
		PageSize:  a.cfg.CKAN.PageSize,
	}, transport.New(retrying, a.logger), transport.New(single, a.logger), a.logger), nil
}

func (a *app) builder() (*dataset.Builder, error) {
	meta, err := a.metadata()
	if err != nil {
		return nil, err
	}
	return dataset.NewBuilder(dataset.Config{
		CutoffYear:  a.cfg.CutoffYear,
		HPCBaseURL:  a.cfg.HPC.BaseURL,
		HXLProxyURL: a.cfg.HXLProxy.URL,
		Metadata:    meta,
	})
}

func (a *app) charts(catalog service.Catalog) *service.ChartConfigurator {
	return service.NewChartConfigurator(catalog, a.cfg.Charts, a.logger)
}

// managedQuery selects the organization's HRP datasets.
func (a *app) managedQuery() domain.PackageQuery {
	return domain.PackageQuery{
		FilterQuery: fmt.Sprintf("organization:%s %s", a.cfg.CKAN.Organization, a.cfg.CKAN.Query),
	}
}

// ledger opens the run store when a database is configured. The returned
// close func is never nil.
func (a *app) ledger(ctx context.Context) (*postgres.RunStore, func(), error) {
	if !a.cfg.Database.Enabled() {
		return nil, func() {}, nil
	}

	db, err := postgres.Open(ctx, a.cfg.Database.DSN())
	if err != nil {
		return nil, nil, err
	}
	a.logger.Info("connected to database", "host", a.cfg.Database.Host)

	return postgres.NewRunStore(db), closeDB(db), nil
}

func closeDB(db *sqlx.DB) func() {
	return func() { _ = db.Close() }
}

// events connects the change-event publisher when RabbitMQ is configured.
func (a *app) events() (*publisher.RabbitMQ, error) {
	if !a.cfg.RabbitMQ.Enabled() {
		return nil, nil
	}
	return publisher.NewRabbitMQ(publisher.Config{
		URL:        a.cfg.RabbitMQ.URL,
		Exchange:   a.cfg.RabbitMQ.Exchange,
		RoutingKey: a.cfg.RabbitMQ.RoutingKey,
		QueueName:  a.cfg.RabbitMQ.QueueName,
	}, a.logger)
}

// pushMetrics sends the registry to the Pushgateway if one is configured.
// Failing to push never fails the command.
func (a *app) pushMetrics(ctx context.Context) {
	if a.cfg.Metrics.PushgatewayURL == "" {
		return
	}
	if err := metrics.Push(ctx, a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job, a.registry); err != nil {
		a.logger.Warn("metrics push failed", "error", err)
	}
}

// logPreviousRun reports the last ledger entry before a new run starts.
func (a *app) logPreviousRun(ctx context.Context, runs *postgres.RunStore) {
	last, err := runs.Latest(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return
	}
	if err != nil {
		a.logger.Warn("read previous run failed", "error", err)
		return
	}
	a.logger.Info("previous run",
		"run_id", last.ID,
		"started_at", last.StartedAt,
		"errors", last.Errors,
		"dry_run", last.DryRun,
	)
}
