package controllers

import (
	"net/http"

	"github.com/angelmondragon/agristore-backend/api/middleware"
	"github.com/angelmondragon/agristore-backend/api/responses"
	"github.com/angelmondragon/agristore-backend/internal/session"
	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
	"github.com/angelmondragon/agristore-backend/pkg/logger"
)

// requireSession writes 401 and returns false when Auth left no session on
// the request.
func requireSession(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (*session.Session, bool) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session missing"))
		return nil, false
	}
	return sess, true
}

// SessionFetch returns everything the client renders for the caller.
func SessionFetch(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, sess.State())
	}
}

// SessionResetUploadState clears uploadSuccess once the client has shown the
// confirmation.
func SessionResetUploadState(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		sess.ResetUploadState()
		responses.WriteSuccess(w, sess.State())
	}
}
