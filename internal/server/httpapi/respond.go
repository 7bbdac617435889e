package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stackdeck/credvault/internal/common"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service errors onto the HTTP status taxonomy. Codec
// and crypto failures surface as a plain 500: their detail stays in the server
// log and the audit trail, never in the response body.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrorPermissionDenied):
		writeError(w, http.StatusForbidden, common.ErrorPermissionDenied.Error())
	case errors.Is(err, common.ErrorRevealDisabled):
		writeError(w, http.StatusForbidden, common.ErrorRevealDisabled.Error())
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
