package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/jackc/pgx/v5/stdlib"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"explainx/internal/config"
)

var sqlOpen = sql.Open

const pingTimeout = 5 * time.Second

// BuildPostgresDSN renders the pool settings as a postgres:// URL, escaping
// credentials. sslmode is only emitted when configured.
func BuildPostgresDSN(c config.DatabaseConfig) (string, error) {
	if missing := missingFields(c); len(missing) > 0 {
		return "", fmt.Errorf("database config: missing %s", strings.Join(missing, ", "))
	}

	creds := url.User(c.User)
	if c.Password != "" {
		creds = url.UserPassword(c.User, c.Password)
	}
	dsn := url.URL{
		Scheme: "postgres",
		User:   creds,
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   c.Name,
	}
	if c.SSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return dsn.String(), nil
}

func missingFields(c config.DatabaseConfig) []string {
	var missing []string
	for _, f := range []struct{ name, val string }{
		{"host", c.Host},
		{"port", c.Port},
		{"user", c.User},
		{"name", c.Name},
	} {
		if f.val == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// NewPostgres opens a traced pgx connection pool and waits for the first ping.
// The jobs and the HTTP API share this pool.
func NewPostgres(ctx context.Context, c config.DatabaseConfig) (*sql.DB, error) {
	dsn, err := BuildPostgresDSN(c)
	if err != nil {
		return nil, err
	}
	driver, err := tracedDriver(c.Name)
	if err != nil {
		return nil, err
	}

	db, err := sqlOpen(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	poolLimits(c).apply(db)

	if err := Ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// tracedDriver wraps the pgx driver so every query emits an otel span
// tagged with the database name and carries a sqlcommenter trace comment.
func tracedDriver(dbName string) (string, error) {
	name, err := otelsql.Register("pgx",
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL, semconv.DBName(dbName)),
		otelsql.WithSQLCommenter(true),
	)
	if err != nil {
		return "", fmt.Errorf("failed to register otelsql: %w", err)
	}
	return name, nil
}

// Ping checks connectivity with a bounded timeout.
func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return db.PingContext(ctx)
}

// limits holds the pool sizing; zero values keep the database/sql defaults.
type limits struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
}

func poolLimits(c config.DatabaseConfig) limits {
	return limits{
		maxOpen:     c.MaxOpenConns,
		maxIdle:     c.MaxIdleConns,
		maxLifetime: time.Duration(c.ConnMaxLifetimeSec) * time.Second,
	}
}

func (l limits) apply(db *sql.DB) {
	if l.maxOpen > 0 {
		db.SetMaxOpenConns(l.maxOpen)
	}
	if l.maxIdle > 0 {
		db.SetMaxIdleConns(l.maxIdle)
	}
	if l.maxLifetime > 0 {
		db.SetConnMaxLifetime(l.maxLifetime)
	}
}
