// Package audit provides the PostgreSQL-backed, insert-only repository for
// vault audit entries.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/stackdeck/credvault/internal/dbx"
	"github.com/stackdeck/credvault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, entry *models.VaultAuditLogEntry) error {
	query := `
		INSERT INTO vault_audit_log (id, vault_item_id, actor_id, actor_name, actor_email, action, details, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("invalid audit details: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		entry.ID, nullableID(entry.VaultItemID),
		entry.ActorID, entry.ActorName, entry.ActorEmail,
		entry.Action, payload,
		nullableID(entry.IP), nullableID(entry.UserAgent),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const entryColumns = `id, vault_item_id, actor_id, actor_name, actor_email, action, details, ip, user_agent, created_at`

func (r *PostgresRepository) ListForItem(ctx context.Context, itemID string, limit int) ([]*models.VaultAuditLogEntry, error) {
	query := `
		SELECT ` + entryColumns + ` FROM vault_audit_log
		WHERE vault_item_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*models.VaultAuditLogEntry, error) {
	query := `
		SELECT ` + entryColumns + ` FROM vault_audit_log
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

func collectEntries(rows *sql.Rows) ([]*models.VaultAuditLogEntry, error) {
	var result []*models.VaultAuditLogEntry
	for rows.Next() {
		var (
			entry          models.VaultAuditLogEntry
			itemID, ip, ua sql.NullString
			details        []byte
		)
		if err := rows.Scan(
			&entry.ID, &itemID, &entry.ActorID, &entry.ActorName, &entry.ActorEmail,
			&entry.Action, &details, &ip, &ua, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.VaultItemID = itemID.String
		entry.IP = ip.String
		entry.UserAgent = ua.String
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("invalid details payload: %w", err)
			}
		}
		result = append(result, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullableID(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
