package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/agristore-backend/api/responses"
	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
	"github.com/angelmondragon/agristore-backend/pkg/logger"
)

const (
	stateEvent          = "state"
	signedOutEvent      = "signed_out"
	defaultPingInterval = 25 * time.Second
)

// SessionEvents streams the caller's session state as server-sent events:
// one "state" event on connect, then one after every change. Bursts of
// changes collapse into a single event. When the session is signed out,
// from this device or another, the stream sends "signed_out" and ends so the
// client reconnects against a live session.
func SessionEvents(pingInterval time.Duration, logg *logger.Logger) http.HandlerFunc {
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}

		stream, err := responses.NewEventStream(w)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open event stream"))
			return
		}

		changed := make(chan struct{}, 1)
		cancel := sess.OnChange(func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
		defer cancel()

		// send reports whether the stream should stay open.
		send := func() bool {
			if sess.CurrentIdentity() == nil {
				_ = stream.Send(signedOutEvent, map[string]string{"uid": sess.UID()})
				return false
			}
			if err := stream.Send(stateEvent, sess.State()); err != nil {
				if logg != nil {
					logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "event stream closed")
				}
				return false
			}
			return true
		}
		if !send() {
			return
		}

		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-changed:
				if !send() {
					return
				}
			case <-ticker.C:
				if err := stream.Ping(); err != nil {
					return
				}
			}
		}
	}
}
