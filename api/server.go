package api

import (
	"net"
	"net/http"
	"time"

	"github.com/angelmondragon/agristore-backend/pkg/config"
)

// NewServer returns the HTTP server cmd/api runs. WriteTimeout stays zero so
// the session event stream is not cut off.
func NewServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort("", cfg.App.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
