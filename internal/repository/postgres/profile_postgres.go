package postgres

import (
	"context"
	"database/sql"

	"explainx/internal/model"
	"explainx/internal/repository"
)

// ProfilePostgres is a PostgreSQL implementation of repository.ProfileRepository.
type ProfilePostgres struct {
	db *sql.DB
}

// NewProfilePostgres creates a new ProfilePostgres repository.
func NewProfilePostgres(db *sql.DB) *ProfilePostgres {
	return &ProfilePostgres{db: db}
}

var _ repository.ProfileRepository = (*ProfilePostgres)(nil)

// ListActive returns connected ACTIVE profiles ordered by profile id.
func (r *ProfilePostgres) ListActive(ctx context.Context) ([]model.Profile, error) {
	const q = `
		SELECT id, profile_id, organization_id, is_connected, status
		FROM profiles
		WHERE is_connected = TRUE AND status = $1
		ORDER BY profile_id ASC
	`
	rows, err := r.db.QueryContext(ctx, q, model.ProfileStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Profile, 0)
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.ProfileID, &p.OrganizationID, &p.IsConnected, &p.Status); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
