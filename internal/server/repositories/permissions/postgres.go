// Package permissions provides the PostgreSQL-backed repository for explicit
// vault grants.
package permissions

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

// Upsert creates the grant or overwrites the level of an existing one; a
// second share for the same (item, grantee) pair never produces a duplicate
// row.
func (r *PostgresRepository) Upsert(ctx context.Context, perm *models.VaultPermission) error {
	query := `
		INSERT INTO vault_permissions (vault_item_id, grantee_id, permission_level, granted_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (vault_item_id, grantee_id)
		DO UPDATE SET permission_level = EXCLUDED.permission_level, granted_by = EXCLUDED.granted_by
	`
	_, err := r.db.ExecContext(ctx, query,
		perm.VaultItemID, perm.GranteeID, perm.PermissionLevel, perm.GrantedBy)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, itemID, granteeID string) (*models.VaultPermission, error) {
	query := `
		SELECT vault_item_id, grantee_id, permission_level, granted_by, created_at
		FROM vault_permissions
		WHERE vault_item_id = $1 AND grantee_id = $2
	`
	perm := &models.VaultPermission{}
	err := r.db.QueryRowContext(ctx, query, itemID, granteeID).Scan(
		&perm.VaultItemID, &perm.GranteeID, &perm.PermissionLevel,
		&perm.GrantedBy, &perm.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return perm, nil
}

// Delete removes the grant if present and reports whether a row existed.
// Deleting an absent grant is not an error: revocation is idempotent.
func (r *PostgresRepository) Delete(ctx context.Context, itemID, granteeID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM vault_permissions WHERE vault_item_id = $1 AND grantee_id = $2`,
		itemID, granteeID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) ListForItem(ctx context.Context, itemID string) ([]*models.VaultPermission, error) {
	query := `
		SELECT vault_item_id, grantee_id, permission_level, granted_by, created_at
		FROM vault_permissions
		WHERE vault_item_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.VaultPermission
	for rows.Next() {
		perm := &models.VaultPermission{}
		if err := rows.Scan(
			&perm.VaultItemID, &perm.GranteeID, &perm.PermissionLevel,
			&perm.GrantedBy, &perm.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
