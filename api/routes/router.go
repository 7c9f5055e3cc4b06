package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/agristore-backend/api/controllers"
	"github.com/angelmondragon/agristore-backend/api/middleware"
	"github.com/angelmondragon/agristore-backend/internal/auth"
	"github.com/angelmondragon/agristore-backend/internal/cart"
	"github.com/angelmondragon/agristore-backend/internal/checkout"
	product "github.com/angelmondragon/agristore-backend/internal/products"
	authsession "github.com/angelmondragon/agristore-backend/pkg/auth/session"
	"github.com/angelmondragon/agristore-backend/pkg/config"
	"github.com/angelmondragon/agristore-backend/pkg/enums"
	"github.com/angelmondragon/agristore-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/agristore-backend/pkg/redis"
)

// eventsPingInterval keeps idle event streams alive through proxies.
const eventsPingInterval = 25 * time.Second

// RedisStore is the Redis surface the HTTP layer needs: idempotency replay,
// auth rate limiting and the readiness ping.
type RedisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	documents controllers.Pinger,
	redisStore RedisStore,
	tokenSessions authsession.AccessSessionChecker,
	sessions middleware.SessionRestorer,
	catalog controllers.ProductLookup,
	authService auth.Service,
	adminRegisterService auth.AdminRegisterService,
	productService product.Service,
	cartService cart.Service,
	checkoutService checkout.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	var idempotencyStore pkgredis.IdempotencyStore
	readyDeps := map[string]controllers.Pinger{"documents": documents}
	if pinger, ok := catalog.(controllers.Pinger); ok {
		readyDeps["catalog"] = pinger
	}
	if redisStore != nil {
		idempotencyStore = redisStore
		readyDeps["redis"] = redisStore
	}
	rateStore := rateLimitStore(redisStore)

	loginPolicy := middleware.LoginThrottle(cfg.AuthRateLimit)
	registerPolicy := middleware.RegisterThrottle(cfg.AuthRateLimit)
	requireAuth := middleware.Auth(cfg.JWT, tokenSessions, sessions, logg)
	maxUpload := cfg.Media.MaxUploadBytes()

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyDeps))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, rateStore, logg),
			middleware.Idempotency(idempotencyStore, maxUpload, logg),
		).Post("/register", controllers.AuthRegister(authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
		r.With(requireAuth).Post("/logout", controllers.AuthLogout(authService, logg))
	})

	r.Route("/api/admin/v1/auth", func(r chi.Router) {
		if !cfg.App.IsProd() {
			r.With(middleware.AuthRateLimit(registerPolicy, rateStore, logg)).Post("/register", controllers.AdminAuthRegister(adminRegisterService, logg))
		}
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.AuthLogin(authService, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.Idempotency(idempotencyStore, maxUpload, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/session", func(r chi.Router) {
			r.Get("/", controllers.SessionFetch(logg))
			r.Post("/upload-state/reset", controllers.SessionResetUploadState(logg))
		})
		r.Route("/v1/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(logg))
			r.Get("/{productId}", controllers.ProductDetail(catalog, logg))
			r.Get("/{productId}/inquiry", controllers.ProductInquiry(catalog, checkoutService, logg))
		})
		r.Route("/v1/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, catalog, logg))
			r.Patch("/items/{productId}", controllers.CartUpdateItem(cartService, logg))
		})
		r.Post("/v1/checkout/whatsapp", controllers.CheckoutWhatsApp(checkoutService, cartService, logg))
		r.Get("/v1/events", controllers.SessionEvents(eventsPingInterval, logg))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireRole(enums.RoleAdmin, roleResolver(sessions), logg))
		r.Use(middleware.Idempotency(idempotencyStore, maxUpload, logg))

		r.Get("/ping", controllers.AdminPing())
		r.Route("/v1/products", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateProduct(productService, maxUpload, logg))
			r.Put("/{productId}", controllers.AdminUpdateProduct(productService, catalog, maxUpload, logg))
			r.Delete("/{productId}", controllers.AdminDeleteProduct(productService, logg))
		})
	})

	return r
}

// rateLimitStore keeps a nil Redis store a nil interface so the limiter
// disables itself.
func rateLimitStore(store RedisStore) interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
} {
	if store == nil {
		return nil
	}
	return store
}

// roleResolver lets admin routes re-read the stored role when the session
// registry supports it.
func roleResolver(sessions middleware.SessionRestorer) middleware.RoleResolver {
	if resolver, ok := sessions.(middleware.RoleResolver); ok {
		return resolver
	}
	return nil
}
