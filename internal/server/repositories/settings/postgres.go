// Package settings provides the PostgreSQL-backed repository for the
// singleton vault settings row.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stackdeck/credvault/internal/common"
	"github.com/stackdeck/credvault/internal/dbx"
	"github.com/stackdeck/credvault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get reads the settings row. Callers on the reveal path call this on every
// decision; there is no caching layer, so a toggle binds on the next request.
func (r *PostgresRepository) Get(ctx context.Context) (*models.VaultSettings, error) {
	query := `
		SELECT global_reveal_disabled, reveal_duration_seconds, updated_at
		FROM vault_settings WHERE id = 1
	`
	s := &models.VaultSettings{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.GlobalRevealDisabled, &s.RevealDurationSeconds, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Update(ctx context.Context, s *models.VaultSettings) error {
	query := `
		UPDATE vault_settings
		SET global_reveal_disabled = $1, reveal_duration_seconds = $2, updated_at = now()
		WHERE id = 1
	`
	res, err := r.db.ExecContext(ctx, query, s.GlobalRevealDisabled, s.RevealDurationSeconds)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
