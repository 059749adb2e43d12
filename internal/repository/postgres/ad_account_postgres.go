package postgres

import (
	"context"
	"database/sql"
	"time"

	"explainx/internal/model"
	"explainx/internal/repository"
)

// AdAccountPostgres is a PostgreSQL implementation of repository.AdAccountRepository.
type AdAccountPostgres struct {
	db *sql.DB
}

// NewAdAccountPostgres creates a new AdAccountPostgres repository.
func NewAdAccountPostgres(db *sql.DB) *AdAccountPostgres {
	return &AdAccountPostgres{db: db}
}

var _ repository.AdAccountRepository = (*AdAccountPostgres)(nil)

// FindActive returns sql.ErrNoRows when no account is active.
func (r *AdAccountPostgres) FindActive(ctx context.Context) (*model.AdAccount, error) {
	const q = `
		SELECT id, client_id, COALESCE(access_token, ''), COALESCE(refresh_token, ''),
			COALESCE(token_expires_at, 'epoch'::timestamptz), is_active, updated_at
		FROM ad_accounts
		WHERE is_active = TRUE
		ORDER BY updated_at DESC
		LIMIT 1
	`
	var a model.AdAccount
	if err := r.db.QueryRowContext(ctx, q).Scan(
		&a.ID,
		&a.ClientID,
		&a.AccessToken,
		&a.RefreshToken,
		&a.TokenExpiresAt,
		&a.IsActive,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateTokens stores a refreshed token pair.
func (r *AdAccountPostgres) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	const q = `
		UPDATE ad_accounts
		SET access_token = $2, refresh_token = $3, token_expires_at = $4, updated_at = now()
		WHERE id = $1
	`
	return execOne(ctx, r.db, q, id, accessToken, refreshToken, expiresAt)
}
