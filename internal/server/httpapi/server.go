// Package httpapi exposes the vault over a JSON HTTP API consumed by the
// dashboard. Authentication is a bearer JWT on every request except /health.
package httpapi

import (
	"context"
	"net/http"

	"github.com/stackdeck/credvault/internal/logging"
	"github.com/stackdeck/credvault/internal/server/models"
	"github.com/stackdeck/credvault/internal/server/services"
)

type ItemsService interface {
	Create(ctx context.Context, actor *models.Actor, origin models.Origin, input services.CreateItemInput) (*models.VaultItem, error)
	Update(ctx context.Context, actor *models.Actor, origin models.Origin, id string, patch services.UpdateItemInput) (*models.VaultItem, error)
	Delete(ctx context.Context, actor *models.Actor, origin models.Origin, id string) error
	Get(ctx context.Context, actor *models.Actor, id string) (*models.VaultItem, error)
	List(ctx context.Context, actor *models.Actor) ([]*models.VaultItem, error)
}

type RevealService interface {
	Reveal(ctx context.Context, actor *models.Actor, origin models.Origin, itemID string) (*services.RevealResult, error)
}

type ShareService interface {
	Share(ctx context.Context, actor *models.Actor, origin models.Origin, itemID, granteeID string, level models.PermissionLevel) error
	Revoke(ctx context.Context, actor *models.Actor, origin models.Origin, itemID, granteeID string) error
	ListGrants(ctx context.Context, actor *models.Actor, itemID string) ([]*models.VaultPermission, error)
}

type SettingsService interface {
	Get(ctx context.Context) (*models.VaultSettings, error)
	Update(ctx context.Context, actor *models.Actor, origin models.Origin, updated *models.VaultSettings) error
}

type AuditService interface {
	ListForItem(ctx context.Context, actor *models.Actor, itemID string, limit int) ([]*models.VaultAuditLogEntry, error)
	ListRecent(ctx context.Context, actor *models.Actor, limit int) ([]*models.VaultAuditLogEntry, error)
}

// Server is the HTTP API server.
type Server struct {
	items     ItemsService
	reveal    RevealService
	share     ShareService
	settings  SettingsService
	audit     AuditService
	jwtSecret []byte
	logger    logging.Logger
}

func NewServer(items ItemsService, reveal RevealService, share ShareService,
	settings SettingsService, audit AuditService, jwtSecret []byte, logger logging.Logger) *Server {
	return &Server{
		items:     items,
		reveal:    reveal,
		share:     share,
		settings:  settings,
		audit:     audit,
		jwtSecret: jwtSecret,
		logger:    logger.With("module", "httpapi"),
	}
}

// Handler builds the route table and wraps it with the auth middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/vault/items", s.handleCreateItem)
	mux.HandleFunc("GET /api/v1/vault/items", s.handleListItems)
	mux.HandleFunc("GET /api/v1/vault/items/{id}", s.handleGetItem)
	mux.HandleFunc("PUT /api/v1/vault/items/{id}", s.handleUpdateItem)
	mux.HandleFunc("DELETE /api/v1/vault/items/{id}", s.handleDeleteItem)

	mux.HandleFunc("POST /api/v1/vault/items/{id}/reveal", s.handleReveal)

	mux.HandleFunc("POST /api/v1/vault/items/{id}/share", s.handleShare)
	mux.HandleFunc("DELETE /api/v1/vault/items/{id}/share/{granteeID}", s.handleRevoke)
	mux.HandleFunc("GET /api/v1/vault/items/{id}/grants", s.handleListGrants)

	mux.HandleFunc("GET /api/v1/vault/items/{id}/audit", s.handleItemAudit)
	mux.HandleFunc("GET /api/v1/vault/audit", s.handleRecentAudit)

	mux.HandleFunc("GET /api/v1/vault/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/v1/vault/settings", s.handleUpdateSettings)

	mux.HandleFunc("GET /health", s.handleHealth)

	return s.withAuth(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
