package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"explainx/internal/config"
	"explainx/internal/cron"
	"explainx/internal/database"
	"explainx/internal/database/migration"
	"explainx/internal/logging"
	"explainx/internal/metrics"
	"explainx/internal/notify"
	"explainx/internal/otel"
	"explainx/internal/reporting"
	"explainx/internal/repository/postgres"
	"explainx/internal/service"
	"explainx/internal/storage"
)

const (
	jobDailyReports = "daily-reports-fetch"
	jobRetryReports = "retry-failed-reports"

	shutdownTimeout = 30 * time.Second
)

// app holds the wired process. close releases everything in reverse order.
type app struct {
	cfg       *config.AppConfig
	log       *zap.Logger
	db        *sql.DB
	registry  *prometheus.Registry
	scheduler *cron.Scheduler
	reports   service.ReportService
	history   *service.RunHistory
	tracing   otel.ShutdownFunc
}

// baseApp loads configuration, logging, tracing and the database.
func baseApp(ctx context.Context) (*app, error) {
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.Location())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tracing, err := otel.Init(ctx, log, "explainx")
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		_ = tracing(ctx)
		return nil, fmt.Errorf("connect database: %w", err)
	}

	return &app{cfg: cfg, log: log, db: db, tracing: tracing}, nil
}

// wire builds repositories, the report service and the scheduler with its jobs.
func (a *app) wire(ctx context.Context) error {
	if err := migration.EnsureMigrated(ctx, a.db, a.log, a.cfg.Database.Host); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var store storage.Storage
	if a.cfg.MinIO.Endpoint == "" {
		a.log.Warn("snapshot_storage_disabled", zap.String("reason", "MINIO_ENDPOINT not set"))
	} else {
		s, err := storage.NewMinIO(ctx, a.cfg.MinIO)
		if err != nil {
			return fmt.Errorf("init object storage: %w", err)
		}
		store = s
	}

	accounts := postgres.NewAdAccountPostgres(a.db)
	a.reports = service.NewReportService(service.ReportDeps{
		Accounts:    accounts,
		Profiles:    postgres.NewProfilePostgres(a.db),
		Reports:     postgres.NewReportPostgres(a.db),
		Store:       store,
		API:         reporting.NewClient(a.cfg.Reporting, accounts),
		Log:         a.log.With(zap.String("component", "reports")),
		Location:    a.cfg.Location(),
		MaxAttempts: a.cfg.Reporting.ReportMaxAttempt,
	})
	a.history = service.NewRunHistory(postgres.NewJobRunPostgres(a.db), a.log)

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	jobMetrics, err := metrics.NewJobMetrics(a.registry)
	if err != nil {
		return fmt.Errorf("register job metrics: %w", err)
	}

	specs, err := jobSpecs(a.cfg.Cron, a.reports.ProcessDailyReports, a.reports.RetryFailedReports)
	if err != nil {
		return err
	}

	a.scheduler = cron.New(
		cron.WithLocation(a.cfg.Cron.Location()),
		cron.WithSink(logging.NewCronSink(a.log)),
		cron.WithObservers(a.history, jobMetrics, notify.NewDiscord(a.cfg.Discord, a.log)),
	)
	for _, spec := range specs {
		if _, err := a.scheduler.Register(spec); err != nil {
			return fmt.Errorf("register %s: %w", spec.Name, err)
		}
	}
	return nil
}

// jobSpecs declares the cron jobs of the process. daily and retry are left
// nil by read-only commands that never run them.
func jobSpecs(cfg config.CronConfig, daily, retry cron.Operation) ([]cron.JobSpec, error) {
	overlap, err := cron.ParseOverlapPolicy(cfg.Overlap)
	if err != nil {
		return nil, err
	}
	policy := cron.Policy{MaxAttempts: cfg.MaxRetries, Delay: cfg.RetryDelay}
	specs := []cron.JobSpec{
		{Name: jobDailyReports, Schedule: cfg.DailyReportsSchedule, Run: daily},
		{Name: jobRetryReports, Schedule: cfg.RetryReportsSchedule, Run: retry},
	}
	for i := range specs {
		if err := cron.ValidateSchedule(specs[i].Schedule); err != nil {
			return nil, fmt.Errorf("%s: %w", specs[i].Name, err)
		}
		specs[i].Policy = policy
		specs[i].Overlap = overlap
	}
	return specs, nil
}

func (a *app) close(ctx context.Context) {
	if a.scheduler != nil {
		if err := a.scheduler.Shutdown(ctx); err != nil {
			a.log.Warn("scheduler_shutdown_incomplete", zap.Error(err))
		}
	}
	if err := a.tracing(ctx); err != nil {
		a.log.Warn("tracing_shutdown_failed", zap.Error(err))
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn("db_close_failed", zap.Error(err))
	}
	_ = a.log.Sync()
}
