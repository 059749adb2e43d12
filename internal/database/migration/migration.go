// Package migration creates the schema the background jobs and the admin API use.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelTable is created by the steps below; its presence means the schema is in place.
const sentinelTable = "public.reports"

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_ad_accounts",
		SQL: `CREATE TABLE IF NOT EXISTS ad_accounts (
  id               UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  client_id        TEXT        NOT NULL,
  access_token     TEXT,
  refresh_token    TEXT,
  token_expires_at TIMESTAMPTZ,
  is_active        BOOLEAN     NOT NULL DEFAULT TRUE,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_profiles",
		SQL: `CREATE TABLE IF NOT EXISTS profiles (
  id              UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  profile_id      TEXT        NOT NULL UNIQUE,
  organization_id TEXT        NOT NULL,
  is_connected    BOOLEAN     NOT NULL DEFAULT FALSE,
  status          TEXT        NOT NULL DEFAULT 'ACTIVE',
  created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_reports",
		SQL: `CREATE TABLE IF NOT EXISTS reports (
  id                 UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  name               TEXT        NOT NULL,
  profile_id         TEXT        NOT NULL,
  external_report_id TEXT,
  report_key         TEXT        NOT NULL,
  ad_product         TEXT        NOT NULL,
  status             TEXT        NOT NULL CHECK (status IN ('PENDING', 'COMPLETED', 'FAILED')),
  start_date         DATE        NOT NULL,
  end_date           DATE        NOT NULL,
  attempts           INTEGER     NOT NULL DEFAULT 0 CHECK (attempts >= 0),
  last_error         TEXT,
  created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_reports_status_attempts",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_reports_status_attempts ON reports (status, attempts);`,
	},
	{
		Name: "create_index_reports_profile_start_date",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_reports_profile_start_date ON reports (profile_id, start_date);`,
	},
	{
		Name: "create_table_job_runs",
		SQL: `CREATE TABLE IF NOT EXISTS job_runs (
  id          UUID        PRIMARY KEY,
  job_name    TEXT        NOT NULL,
  trigger     TEXT        NOT NULL,
  status      TEXT        NOT NULL,
  attempts    INTEGER     NOT NULL DEFAULT 0,
  error       TEXT,
  started_at  TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ
);`,
	},
	{
		Name: "create_index_job_runs_job_started",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_job_runs_job_started ON job_runs (job_name, started_at DESC);`,
	},
}

// EnsureMigrated runs every step unless the sentinel table already exists.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger, dbHost string) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"), zap.String("db_host", dbHost))

	log.Info("db_migration_check", zap.String("status", "starting"))

	var exists bool
	if err := db.QueryRowContext(ctx, "SELECT to_regclass($1) IS NOT NULL", sentinelTable).Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.String("error_message", fmt.Sprintf("failed to check sentinel table: %v", err)),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			zap.String("status", "success"),
			zap.String("reason", "schema already exists"),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}

	log.Info("db_migration_start", zap.String("status", "in_progress"), zap.Int("steps", len(steps)))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				zap.String("status", "error"),
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step",
			zap.String("status", "success"),
			zap.String("migration_step", step.Name),
			zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
		)
	}

	log.Info("db_migration_success",
		zap.String("status", "success"),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}
