package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/agristore-backend/api/responses"
	"github.com/angelmondragon/agristore-backend/internal/session"
	"github.com/angelmondragon/agristore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
	"github.com/angelmondragon/agristore-backend/pkg/logger"
)

// RoleResolver re-reads a session's stored role and publishes it on the
// session. A failed lookup keeps the previous role.
type RoleResolver interface {
	ResolveRole(ctx context.Context, sess *session.Session) enums.Role
}

// RequireRole admits requests whose session holds role. With a resolver the
// stored role is re-read first, so a demotion applies without a new token.
func RequireRole(role enums.Role, resolver RoleResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sess := SessionFromContext(r.Context()); sess != nil && resolver != nil {
				resolver.ResolveRole(r.Context(), sess)
			}
			if RoleFromContext(r.Context()) != role {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
