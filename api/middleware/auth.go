package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/agristore-backend/api/responses"
	"github.com/angelmondragon/agristore-backend/internal/session"
	pkgAuth "github.com/angelmondragon/agristore-backend/pkg/auth"
	authsession "github.com/angelmondragon/agristore-backend/pkg/auth/session"
	"github.com/angelmondragon/agristore-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
	"github.com/angelmondragon/agristore-backend/pkg/logger"
)

// SessionRestorer returns the live session for a token's user, rebuilding it
// when this process has none.
type SessionRestorer interface {
	Restore(ctx context.Context, uid, email string) (*session.Session, error)
}

// Auth validates a bearer token, checks its refresh session and seeds the
// request context with the caller's live session.
func Auth(cfg config.JWTConfig, verifier authsession.AccessSessionChecker, sessions SessionRestorer, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if claims.ID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}

			if verifier != nil {
				ok, err := verifier.HasSession(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !ok {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			ctx := WithUserID(r.Context(), claims.UserID)
			ctx = WithAccessID(ctx, claims.ID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID)
			}

			if sessions != nil {
				sess, err := sessions.Restore(ctx, claims.UserID, claims.Email)
				if err != nil {
					responses.WriteError(ctx, logg, w, err)
					return
				}
				ctx = WithSession(ctx, sess)
				if logg != nil {
					ctx = logg.WithRole(ctx, sess.Role().String())
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
