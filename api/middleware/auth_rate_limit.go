package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/agristore-backend/api/responses"
	"github.com/angelmondragon/agristore-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
	"github.com/angelmondragon/agristore-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/agristore-backend/pkg/redis"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// AuthThrottle caps sign-in style attempts per client address and per email
// inside a fixed window.
type AuthThrottle struct {
	Surface    string
	Window     time.Duration
	PerIP      int
	PerAccount int
}

// LoginThrottle reads the login limits from configuration.
func LoginThrottle(cfg config.AuthRateLimitConfig) AuthThrottle {
	return AuthThrottle{Surface: "login", Window: cfg.LoginWindow, PerIP: cfg.LoginIPLimit, PerAccount: cfg.LoginEmailLimit}
}

// RegisterThrottle reads the registration limits from configuration.
func RegisterThrottle(cfg config.AuthRateLimitConfig) AuthThrottle {
	return AuthThrottle{Surface: "register", Window: cfg.RegisterWindow, PerIP: cfg.RegisterIPLimit, PerAccount: cfg.RegisterEmailLimit}
}

func (t AuthThrottle) active() bool {
	return t.Window > 0 && (t.PerIP > 0 || t.PerAccount > 0)
}

func (t AuthThrottle) surface() string {
	if s := strings.ToLower(strings.TrimSpace(t.Surface)); s != "" {
		return s
	}
	return "auth"
}

func (t AuthThrottle) counterKey(kind, subject string) string {
	return pkgredis.Key("rl", kind, t.surface(), subject)
}

// hit is one counter that was bumped for the current request.
type hit struct {
	kind    string
	subject string
	count   int64
	limit   int
}

// AuthRateLimit enforces the throttle before the auth handler runs. Counter
// failures surface as dependency errors rather than letting traffic through.
func AuthRateLimit(throttle AuthThrottle, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !throttle.active() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if throttle.PerIP > 0 {
				if ip := clientIP(r); ip != "" {
					h, err := throttle.bump(ctx, store, "ip", ip, throttle.PerIP)
					if err != nil {
						responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					}
					if h.count > int64(h.limit) {
						throttle.reject(ctx, logg, w, h)
						return
					}
				}
			}

			if throttle.PerAccount > 0 {
				raw, err := bufferBody(w, r, jsonBodyLimit)
				if err != nil {
					responses.WriteError(ctx, logg, w, err)
					return
				}

				if digest := emailDigest(raw); digest != "" {
					h, err := throttle.bump(ctx, store, "email", digest, throttle.PerAccount)
					if err != nil {
						responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					}
					if h.count > int64(h.limit) {
						throttle.reject(ctx, logg, w, h)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (t AuthThrottle) bump(ctx context.Context, store rateLimiterStore, kind, subject string, limit int) (hit, error) {
	count, err := store.IncrWithTTL(ctx, t.counterKey(kind, subject), t.Window)
	if err != nil {
		return hit{}, err
	}
	return hit{kind: kind, subject: subject, count: count, limit: limit}, nil
}

func (t AuthThrottle) reject(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, h hit) {
	if logg != nil {
		subjectField := "ip"
		if h.kind == "email" {
			subjectField = "email_hash"
		}
		logCtx := logg.WithFields(ctx, map[string]any{
			"surface":     t.surface(),
			"scope":       h.kind,
			subjectField:  h.subject,
			"attempts":    h.count,
			"limit":       h.limit,
			"window_secs": int(t.Window.Seconds()),
		})
		logg.Warn(logCtx, "auth.throttled")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(t.Window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// emailDigest hashes the normalized email from a JSON body so raw addresses
// never reach redis or the logs.
func emailDigest(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}
