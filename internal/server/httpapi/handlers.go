package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/stackdeck/credvault/internal/server/models"
	"github.com/stackdeck/credvault/internal/server/services"
)

// ----- Item types -----

type createItemRequest struct {
	Title             string   `json:"title"`
	Type              string   `json:"type"`
	Username          string   `json:"username"`
	URL               string   `json:"url"`
	Tags              []string `json:"tags"`
	Requires2FAReveal bool     `json:"requires_2fa_reveal"`
	Secret            *string  `json:"secret"`
}

type updateItemRequest struct {
	Title             *string  `json:"title"`
	Type              *string  `json:"type"`
	Username          *string  `json:"username"`
	URL               *string  `json:"url"`
	Tags              []string `json:"tags"`
	Requires2FAReveal *bool    `json:"requires_2fa_reveal"`
	Secret            *string  `json:"secret"`
}

// itemResponse deliberately has no ciphertext or IV field: stored secret
// material never leaves the server outside the reveal flow.
type itemResponse struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Type              string   `json:"type"`
	Username          string   `json:"username,omitempty"`
	URL               string   `json:"url,omitempty"`
	OwnerID           string   `json:"owner_id"`
	Tags              []string `json:"tags,omitempty"`
	Requires2FAReveal bool     `json:"requires_2fa_reveal"`
	HasSecret         bool     `json:"has_secret"`
	RevealCount       int64    `json:"reveal_count"`
	LastRevealAt      *string  `json:"last_reveal_at,omitempty"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
}

func itemToResponse(item *models.VaultItem) itemResponse {
	resp := itemResponse{
		ID:                item.ID,
		Title:             item.Title,
		Type:              string(item.Type),
		Username:          item.Username,
		URL:               item.URL,
		OwnerID:           item.OwnerID,
		Tags:              item.Tags,
		Requires2FAReveal: item.Requires2FAReveal,
		HasSecret:         item.HasSecret(),
		RevealCount:       item.RevealCount,
		CreatedAt:         item.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         item.UpdatedAt.Format(time.RFC3339),
	}
	if item.LastRevealAt != nil {
		t := item.LastRevealAt.Format(time.RFC3339)
		resp.LastRevealAt = &t
	}
	return resp
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	item, err := s.items.Create(r.Context(), actorFromContext(r.Context()), originFromContext(r.Context()),
		services.CreateItemInput{
			Title:             req.Title,
			Type:              models.ItemType(req.Type),
			Username:          req.Username,
			URL:               req.URL,
			Tags:              req.Tags,
			Requires2FAReveal: req.Requires2FAReveal,
			Secret:            req.Secret,
		})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, itemToResponse(item))
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.items.List(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	result := make([]itemResponse, 0, len(items))
	for _, item := range items {
		result = append(result, itemToResponse(item))
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.items.Get(r.Context(), actorFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemToResponse(item))
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	patch := services.UpdateItemInput{
		Title:             req.Title,
		Username:          req.Username,
		URL:               req.URL,
		Tags:              req.Tags,
		Requires2FAReveal: req.Requires2FAReveal,
		Secret:            req.Secret,
	}
	if req.Type != nil {
		t := models.ItemType(*req.Type)
		patch.Type = &t
	}

	item, err := s.items.Update(r.Context(), actorFromContext(r.Context()), originFromContext(r.Context()),
		r.PathValue("id"), patch)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemToResponse(item))
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	err := s.items.Delete(r.Context(), actorFromContext(r.Context()), originFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ----- Reveal -----

type revealResponse struct {
	Password    string `json:"password"`
	ExpiresAt   string `json:"expires_at"`
	RevealCount int64  `json:"reveal_count"`
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	result, err := s.reveal.Reveal(r.Context(), actorFromContext(r.Context()), originFromContext(r.Context()),
		r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, revealResponse{
		Password:    result.Plaintext,
		ExpiresAt:   result.ExpiresAt.Format(time.RFC3339),
		RevealCount: result.RevealCount,
	})
}

// ----- Sharing -----

type shareRequest struct {
	GranteeID       string `json:"grantee_id"`
	PermissionLevel string `json:"permission_level"`
}

type grantResponse struct {
	GranteeID       string `json:"grantee_id"`
	PermissionLevel string `json:"permission_level"`
	GrantedBy       string `json:"granted_by"`
	CreatedAt       string `json:"created_at"`
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	err := s.share.Share(r.Context(), actorFromContext(r.Context()), originFromContext(r.Context()),
		r.PathValue("id"), req.GranteeID, models.PermissionLevel(req.PermissionLevel))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	err := s.share.Revoke(r.Context(), actorFromContext(r.Context()), originFromContext(r.Context()),
		r.PathValue("id"), r.PathValue("granteeID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListGrants(w http.ResponseWriter, r *http.Request) {
	grants, err := s.share.ListGrants(r.Context(), actorFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	result := make([]grantResponse, 0, len(grants))
	for _, g := range grants {
		result = append(result, grantResponse{
			GranteeID:       g.GranteeID,
			PermissionLevel: string(g.PermissionLevel),
			GrantedBy:       g.GrantedBy,
			CreatedAt:       g.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, result)
}

// ----- Audit -----

type auditEntryResponse struct {
	ID          string         `json:"id"`
	VaultItemID string         `json:"vault_item_id,omitempty"`
	ActorID     string         `json:"actor_id"`
	ActorName   string         `json:"actor_name"`
	ActorEmail  string         `json:"actor_email"`
	Action      string         `json:"action"`
	Details     map[string]any `json:"details,omitempty"`
	IP          string         `json:"ip,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	CreatedAt   string         `json:"created_at"`
}

func auditEntriesToResponse(entries []*models.VaultAuditLogEntry) []auditEntryResponse {
	result := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		result = append(result, auditEntryResponse{
			ID:          e.ID,
			VaultItemID: e.VaultItemID,
			ActorID:     e.ActorID,
			ActorName:   e.ActorName,
			ActorEmail:  e.ActorEmail,
			Action:      string(e.Action),
			Details:     e.Details,
			IP:          e.IP,
			UserAgent:   e.UserAgent,
			CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		})
	}
	return result
}

func limitParam(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return limit
}

func (s *Server) handleItemAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := s.audit.ListForItem(r.Context(), actorFromContext(r.Context()), r.PathValue("id"), limitParam(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, auditEntriesToResponse(entries))
}

func (s *Server) handleRecentAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := s.audit.ListRecent(r.Context(), actorFromContext(r.Context()), limitParam(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, auditEntriesToResponse(entries))
}

// ----- Settings -----

type settingsRequest struct {
	GlobalRevealDisabled  bool `json:"global_reveal_disabled"`
	RevealDurationSeconds int  `json:"reveal_duration_seconds"`
}

type settingsResponse struct {
	GlobalRevealDisabled  bool   `json:"global_reveal_disabled"`
	RevealDurationSeconds int    `json:"reveal_duration_seconds"`
	UpdatedAt             string `json:"updated_at"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.Get(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{
		GlobalRevealDisabled:  settings.GlobalRevealDisabled,
		RevealDurationSeconds: settings.RevealDurationSeconds,
		UpdatedAt:             settings.UpdatedAt.Format(time.RFC3339),
	})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	err := s.settings.Update(r.Context(), actorFromContext(r.Context()), originFromContext(r.Context()),
		&models.VaultSettings{
			GlobalRevealDisabled:  req.GlobalRevealDisabled,
			RevealDurationSeconds: req.RevealDurationSeconds,
		})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
