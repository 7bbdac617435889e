package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/stackdeck/credvault/internal/common"
	"github.com/stackdeck/credvault/internal/server/auth"
	"github.com/stackdeck/credvault/internal/server/models"
)

type ctxKey string

const (
	actorKey  ctxKey = "actor"
	originKey ctxKey = "origin"
)

// withAuth verifies the bearer token on every request except /health and puts
// the actor plus request origin into the context.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}

		actor, err := auth.GetActorFromToken(token, s.jwtSecret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, common.ErrInvalidToken.Error())
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		ctx = context.WithValue(ctx, originKey, originFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get(common.AuthorizationHeaderName)
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func originFromRequest(r *http.Request) models.Origin {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	return models.Origin{IP: ip, UserAgent: r.UserAgent()}
}

func actorFromContext(ctx context.Context) *models.Actor {
	actor, _ := ctx.Value(actorKey).(*models.Actor)
	return actor
}

func originFromContext(ctx context.Context) models.Origin {
	origin, _ := ctx.Value(originKey).(models.Origin)
	return origin
}
