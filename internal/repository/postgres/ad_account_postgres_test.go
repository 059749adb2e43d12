package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestAdAccountPostgres_FindActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewAdAccountPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		exp := time.Now().Add(time.Hour).UTC()
		rows := sqlmock.NewRows([]string{"id", "client_id", "access_token", "refresh_token", "token_expires_at", "is_active", "updated_at"}).
			AddRow("acc-1", "client", "at", "rt", exp, true, time.Now())

		mock.ExpectQuery("SELECT (.+) FROM ad_accounts WHERE is_active = TRUE").
			WillReturnRows(rows)

		acc, err := repo.FindActive(ctx)

		assert.NoError(t, err)
		assert.Equal(t, "acc-1", acc.ID)
		assert.Equal(t, "rt", acc.RefreshToken)
		assert.True(t, acc.TokenExpiresAt.Equal(exp))
	})

	t.Run("none", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM ad_accounts").
			WillReturnError(sql.ErrNoRows)

		acc, err := repo.FindActive(ctx)

		assert.True(t, IsNoRowsError(err))
		assert.Nil(t, acc)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdAccountPostgres_UpdateTokens(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewAdAccountPostgres(db)
	exp := time.Now().Add(time.Hour).UTC()

	mock.ExpectExec("UPDATE ad_accounts").
		WithArgs("acc-1", "new-at", "new-rt", exp).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.UpdateTokens(context.Background(), "acc-1", "new-at", "new-rt", exp)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
