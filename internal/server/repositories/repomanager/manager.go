package repomanager

import (
	"context"
	"database/sql"

	"github.com/stackdeck/credvault/internal/dbx"
	"github.com/stackdeck/credvault/internal/server/repositories/audit"
	"github.com/stackdeck/credvault/internal/server/repositories/items"
	"github.com/stackdeck/credvault/internal/server/repositories/permissions"
	"github.com/stackdeck/credvault/internal/server/repositories/settings"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Items(db dbx.DBTX) items.Repository
	Permissions(db dbx.DBTX) permissions.Repository
	Audit(db dbx.DBTX) audit.Repository
	Settings(db dbx.DBTX) settings.Repository
}
