package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"explainx/internal/model"
	"explainx/internal/repository"
)

// ReportPostgres is a PostgreSQL implementation of repository.ReportRepository.
type ReportPostgres struct {
	db *sql.DB
}

// NewReportPostgres creates a new ReportPostgres repository.
func NewReportPostgres(db *sql.DB) *ReportPostgres {
	return &ReportPostgres{db: db}
}

var _ repository.ReportRepository = (*ReportPostgres)(nil)

const reportColumns = `id, name, profile_id, COALESCE(external_report_id, ''), report_key, ad_product,
		status, start_date, end_date, attempts, COALESCE(last_error, ''), created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (model.Report, error) {
	var r model.Report
	var status string
	err := s.Scan(
		&r.ID,
		&r.Name,
		&r.ProfileID,
		&r.ExternalReportID,
		&r.ReportKey,
		&r.AdProduct,
		&status,
		&r.StartDate,
		&r.EndDate,
		&r.Attempts,
		&r.LastError,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	r.Status = model.ReportStatus(status)
	return r, err
}

// Create inserts a new report row and returns the stored record.
func (r *ReportPostgres) Create(ctx context.Context, rep *model.Report) (*model.Report, error) {
	q := `
		INSERT INTO reports (id, name, profile_id, external_report_id, report_key, ad_product,
			status, start_date, end_date, attempts, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13)
		RETURNING ` + reportColumns
	row := r.db.QueryRowContext(ctx, q,
		rep.ID,
		rep.Name,
		rep.ProfileID,
		rep.ExternalReportID,
		rep.ReportKey,
		rep.AdProduct,
		string(rep.Status),
		rep.StartDate,
		rep.EndDate,
		rep.Attempts,
		rep.LastError,
		rep.CreatedAt,
		rep.UpdatedAt,
	)
	out, err := scanReport(row)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRequested returns one ref per report starting on or after since, whatever its status.
func (r *ReportPostgres) ListRequested(ctx context.Context, since time.Time) ([]repository.ReportRef, error) {
	const q = `
		SELECT profile_id, report_key, start_date
		FROM reports
		WHERE start_date >= $1
	`
	rows, err := r.db.QueryContext(ctx, q, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := make([]repository.ReportRef, 0)
	for rows.Next() {
		var ref repository.ReportRef
		if err := rows.Scan(&ref.ProfileID, &ref.ReportKey, &ref.StartDate); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// ListRetryable returns failed reports that still have attempts left and
// were not touched since updatedBefore.
func (r *ReportPostgres) ListRetryable(ctx context.Context, maxAttempts int, updatedBefore time.Time, limit int) ([]model.Report, error) {
	q := `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE status = $1 AND attempts < $2 AND updated_at < $3
		ORDER BY updated_at ASC, id ASC
		LIMIT $4
	`
	rows, err := r.db.QueryContext(ctx, q, string(model.ReportFailed), maxAttempts, updatedBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Report, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rep)
	}
	return items, rows.Err()
}

// MarkRequested stores the new upstream id and resets the report to PENDING.
func (r *ReportPostgres) MarkRequested(ctx context.Context, id, externalID string, at time.Time) error {
	const q = `
		UPDATE reports
		SET status = $2, external_report_id = $3, last_error = NULL, updated_at = $4
		WHERE id = $1
	`
	return execOne(ctx, r.db, q, id, string(model.ReportPending), externalID, at)
}

// MarkFailed counts one more failed attempt.
func (r *ReportPostgres) MarkFailed(ctx context.Context, id, reason string, at time.Time) error {
	const q = `
		UPDATE reports
		SET status = $2, attempts = attempts + 1, last_error = $3, updated_at = $4
		WHERE id = $1
	`
	return execOne(ctx, r.db, q, id, string(model.ReportFailed), reason, at)
}

// List returns reports using LIMIT/OFFSET pagination and a total count.
func (r *ReportPostgres) List(ctx context.Context, f repository.ReportFilter, pq repository.PageQuery) (*repository.PageResult[model.Report], error) {
	where, args := reportWhere(f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	n := len(args)
	qList := fmt.Sprintf(`
		SELECT %s
		FROM reports%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, reportColumns, where, n+1, n+2)
	rows, err := r.db.QueryContext(ctx, qList, append(args, pq.Limit, pq.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Report, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Report]{
		Items: items,
		Total: total,
	}, nil
}

func reportWhere(f repository.ReportFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.ProfileID != "" {
		args = append(args, f.ProfileID)
		conds = append(conds, fmt.Sprintf("profile_id = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// execOne runs an UPDATE that must touch exactly one row.
func execOne(ctx context.Context, db *sql.DB, q string, args ...any) error {
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
