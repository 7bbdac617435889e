// Package items provides the PostgreSQL-backed repository for vault items.
package items

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stackdeck/credvault/internal/common"
	"github.com/stackdeck/credvault/internal/dbx"
	"github.com/stackdeck/credvault/internal/server/models"
)

// PostgresRepository implements item storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const itemColumns = `id, title, type, username, url, ciphertext, iv, owner_id, tags,
		requires_2fa_reveal, reveal_count, last_reveal_at, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, item *models.VaultItem) (*models.VaultItem, error) {
	query := `
		INSERT INTO vault_items (id, title, type, username, url, ciphertext, iv, owner_id, tags, requires_2fa_reveal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	tags, err := marshalTags(item.Tags)
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx, query,
		item.ID, item.Title, item.Type,
		nullable(item.Username), nullable(item.URL),
		nullable(item.Ciphertext), nullable(item.IV),
		item.OwnerID, tags, item.Requires2FAReveal,
	).Scan(&item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return item, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.VaultItem, error) {
	query := `SELECT ` + itemColumns + ` FROM vault_items WHERE id = $1`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}

// Update rewrites every mutable column in one statement. The secret pair is
// always written together; a GCM payload is never patched in place. The
// owner column is deliberately absent: ownership is immutable.
func (r *PostgresRepository) Update(ctx context.Context, item *models.VaultItem) error {
	query := `
		UPDATE vault_items
		SET title = $2, type = $3, username = $4, url = $5,
			ciphertext = $6, iv = $7, tags = $8, requires_2fa_reveal = $9,
			updated_at = now()
		WHERE id = $1
	`
	tags, err := marshalTags(item.Tags)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query,
		item.ID, item.Title, item.Type,
		nullable(item.Username), nullable(item.URL),
		nullable(item.Ciphertext), nullable(item.IV),
		tags, item.Requires2FAReveal,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM vault_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

// ListForActor returns items the actor owns or has a grant on; admins see all.
func (r *PostgresRepository) ListForActor(ctx context.Context, actorID string, admin bool) ([]*models.VaultItem, error) {
	query := `
		SELECT ` + itemColumns + ` FROM vault_items i
		WHERE $2 OR i.owner_id = $1 OR EXISTS (
			SELECT 1 FROM vault_permissions p
			WHERE p.vault_item_id = i.id AND p.grantee_id = $1
		)
		ORDER BY i.updated_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, actorID, admin)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.VaultItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// RecordReveal bumps the monotonic reveal counter and stamps the reveal time,
// returning the new counter value.
func (r *PostgresRepository) RecordReveal(ctx context.Context, id string) (int64, error) {
	query := `
		UPDATE vault_items
		SET reveal_count = reveal_count + 1, last_reveal_at = now()
		WHERE id = $1
		RETURNING reveal_count
	`
	var count int64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

// --- helpers below ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.VaultItem, error) {
	var (
		item           models.VaultItem
		username, url  sql.NullString
		ciphertext, iv sql.NullString
		lastReveal     sql.NullTime
		tags           []byte
	)

	err := row.Scan(
		&item.ID, &item.Title, &item.Type, &username, &url,
		&ciphertext, &iv, &item.OwnerID, &tags,
		&item.Requires2FAReveal, &item.RevealCount, &lastReveal,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Username = username.String
	item.URL = url.String
	item.Ciphertext = ciphertext.String
	item.IV = iv.String
	if lastReveal.Valid {
		t := lastReveal.Time
		item.LastRevealAt = &t
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &item.Tags); err != nil {
			return nil, fmt.Errorf("invalid tags payload: %w", err)
		}
	}

	return &item, nil
}

func marshalTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("invalid tags: %w", err)
	}
	return b, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
