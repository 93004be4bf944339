package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/IntelliBrowse-hq/intellibrowse/internal/auth"
	"github.com/IntelliBrowse-hq/intellibrowse/internal/browser"
	"github.com/IntelliBrowse-hq/intellibrowse/internal/config"
	"github.com/IntelliBrowse-hq/intellibrowse/internal/testitems"
	"github.com/IntelliBrowse-hq/intellibrowse/pkg/testtypes"
)

const readyTimeout = 2 * time.Second

// Pinger checks a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the optional backends of the API. Routes whose backend
// is nil answer 503 instead of failing at startup.
type Dependencies struct {
	DB         Pinger
	Users      auth.UserStore
	Items      testitems.Repository
	Tools      *browser.Registry
	Validators *testtypes.Factory
}

// Server represents the API server
type Server struct {
	cfg    *config.Config
	router *chi.Mux

	db         Pinger
	validators *testtypes.Factory
	items      *testitems.Service
	tools      *browser.Registry
	tokens     *auth.TokenManager
	authMW     *auth.Middleware
	authH      *auth.Handlers
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	if deps.Validators == nil {
		deps.Validators = testtypes.DefaultFactory
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry)
	s := &Server{
		cfg:        cfg,
		router:     chi.NewRouter(),
		db:         deps.DB,
		validators: deps.Validators,
		tools:      deps.Tools,
		tokens:     tokens,
		authMW:     auth.NewMiddleware(tokens),
	}
	if deps.Items != nil {
		s.items = testitems.NewService(deps.Items, deps.Validators)
	}
	if deps.Users != nil {
		s.authH = auth.NewHandlers(deps.Users, tokens)
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// Router returns the HTTP router
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.healthCheck)
	s.router.Get("/ready", s.readyCheck)

	// API v1
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth
		r.Route("/auth", func(r chi.Router) {
			r.Use(s.requireBackend(s.authH != nil, "user store not available"))
			r.Post("/register", s.register)
			r.Post("/login", s.login)
			r.With(s.authMW.RequireAuth).Get("/me", s.me)
		})

		// Test type catalogue, open to anonymous callers
		r.Route("/test-types", func(r chi.Router) {
			r.Get("/", s.listTestTypes)
			r.Get("/{type}/schema", s.getTestTypeSchema)
			r.Post("/{type}/validate", s.validateTestType)
		})

		// Test items
		r.Route("/test-items", func(r chi.Router) {
			r.Use(s.authMW.RequireAuth)
			r.Use(s.requireBackend(s.items != nil, "test item store not available"))
			r.Post("/", s.createTestItem)
			r.Get("/", s.listTestItems)
			r.Get("/{itemID}", s.getTestItem)
			r.Put("/{itemID}", s.updateTestItem)
			r.Delete("/{itemID}", s.deleteTestItem)
		})

		// Browser tools
		r.Route("/tools", func(r chi.Router) {
			r.Use(s.authMW.RequireAuth)
			r.Use(s.requireBackend(s.tools != nil, "browser tools not available"))
			r.Get("/", s.listTools)
			r.Post("/{name}", s.invokeTool)
		})
	})
}

// requireBackend short-circuits with 503 when a route group has no backend
func (s *Server) requireBackend(available bool, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !available {
				respondError(w, http.StatusServiceUnavailable, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Health check handlers
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":     "ready",
		"database":   "not configured",
		"validators": s.validators.CacheInfo(),
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("readiness check failed")
			resp["status"] = "not ready"
			resp["database"] = "unreachable"
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp["database"] = "ok"
	}

	if s.tools != nil {
		resp["browser_sessions"] = s.tools.Manager().Count()
	}

	respondJSON(w, http.StatusOK, resp)
}

// Auth handlers delegate to the auth package
func (s *Server) register(w http.ResponseWriter, r *http.Request) { s.authH.HandleRegister(w, r) }
func (s *Server) login(w http.ResponseWriter, r *http.Request)    { s.authH.HandleLogin(w, r) }
func (s *Server) me(w http.ResponseWriter, r *http.Request)       { s.authH.HandleMe(w, r) }
