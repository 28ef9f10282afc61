package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/terra-clan/certmap/internal/catalog"
	"github.com/terra-clan/certmap/internal/config"
	"github.com/terra-clan/certmap/internal/models"
	"github.com/terra-clan/certmap/internal/sessions"
)

// Server represents the HTTP API server
type Server struct {
	router         *chi.Mux
	store          *catalog.Store
	loader         *catalog.Loader
	sessions       *sessions.Manager
	authMiddleware *AuthMiddleware
	limiter        *RateLimiter
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	store *catalog.Store,
	loader *catalog.Loader,
	manager *sessions.Manager,
) *Server {
	s := &Server{
		store:          store,
		loader:         loader,
		sessions:       manager,
		authMiddleware: NewAuthMiddleware(cfg.Admin.Clients),
		limiter:        NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router wrapped with tracing
func (s *Server) Router() http.Handler {
	return otelhttp.NewHandler(s.router, "certmap")
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.limiter.Middleware)
		timeout := middleware.Timeout(60 * time.Second)

		r.With(timeout).Get("/catalog", s.handleCatalog)

		r.Route("/certifications", func(r chi.Router) {
			r.Use(timeout)
			r.Get("/", s.handleListCertifications)
			r.Get("/points", s.handleCertificationPoints)
			r.Post("/validate", s.handleValidate)
			r.Post("/validate/batch", s.handleValidateBatch)
			r.Get("/{slug}", s.handleGetCertification)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.With(timeout).Post("/", s.handleCreateSession)

			r.Route("/{id}", func(r chi.Router) {
				// Live channel stays outside the request timeout
				r.Get("/ws", s.handleLiveWS)

				r.Group(func(r chi.Router) {
					r.Use(timeout)
					r.Get("/", s.handleGetSession)
					r.Delete("/", s.handleDeleteSession)
					r.Put("/category", s.handleSetCategory)
					r.Post("/levels/{level}/toggle", s.handleToggleLevel)
					r.Delete("/levels", s.handleClearLevels)
					r.Put("/search", s.handleSetSearch)
					r.Post("/search/flush", s.handleFlushSearch)
					r.Post("/clear", s.handleClear)
					r.Get("/filtered", s.handleFiltered)
					r.Get("/points", s.handleSessionPoints)
				})
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(timeout)
			r.Use(s.authMiddleware.Authenticate)
			r.With(s.authMiddleware.RequirePermission(models.PermSessionsRead)).Get("/sessions", s.handleListSessions)
			r.With(s.authMiddleware.RequirePermission(models.PermCatalogReload)).Post("/reload", s.handleReload)
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
