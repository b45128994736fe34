package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/tenantdesk/apiserver/config"
	"github.com/tenantdesk/apiserver/internal/cache"
	"github.com/tenantdesk/apiserver/internal/db"
	"github.com/tenantdesk/apiserver/internal/handlers"
	"github.com/tenantdesk/apiserver/internal/metrics"
	"github.com/tenantdesk/apiserver/internal/mq"
	"github.com/tenantdesk/apiserver/internal/services"
	"github.com/tenantdesk/apiserver/internal/storage"
	"github.com/tenantdesk/apiserver/internal/store"
)

// Server wraps the HTTP server, router and every connection it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        zerolog.Logger

	db      *sqlx.DB
	redis   *redis.Client
	mq      *mq.MQ
	storage *storage.Storage
	limiter *RateLimiter
}

// RouterDeps is everything NewRouter needs. Optional fields may be nil.
type RouterDeps struct {
	Log         zerolog.Logger
	Auth        *services.AuthService
	Services    handlers.TenantServices
	Metrics     *metrics.Collector
	Gatherer    prometheus.Gatherer
	DB          handlers.Pinger
	Limiter     *RateLimiter
	Idempotency IdempotencyStore
}

// New connects to every configured backend and wires the application.
// Optional backends (redis, mq, object storage) stay disabled when their
// configuration is empty.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	s := &Server{log: log}
	ok := false
	defer func() {
		if !ok {
			s.closeBackends()
		}
	}()

	var err error
	if s.db, err = db.Open(ctx, cfg.Database); err != nil {
		return nil, err
	}
	if s.redis, err = cache.Connect(ctx, cfg.Redis); err != nil {
		return nil, err
	}
	if s.mq, err = mq.Open(ctx, cfg.MQ); err != nil {
		return nil, err
	}
	if s.storage, err = storage.Open(ctx, cfg.Storage); err != nil {
		return nil, err
	}

	registry := metrics.NewRegistry()
	collector := metrics.NewCollector(registry)

	var publisher services.EventPublisher
	if s.mq != nil {
		publisher = s.mq
	}
	events := services.NewEvents(publisher, cfg.MQ.Channel, log).WithObserver(collector)

	var objects services.ObjectStore
	if s.storage != nil {
		objects = s.storage
	}

	tenantRepo := store.NewTenantRepository(s.db)
	userRepo := store.NewUserRepository(s.db)
	projectRepo := store.NewProjectRepository(s.db)
	validate := services.NewValidator()

	deps := RouterDeps{
		Log:  log,
		Auth: services.NewAuthService(userRepo, tenantRepo, validate, events, jwtSecret, cfg.Auth.TokenTTL),
		Services: handlers.TenantServices{
			Tenants:  services.NewTenantService(tenantRepo, validate, events),
			Users:    services.NewUserService(userRepo, tenantRepo, validate, events),
			Projects: services.NewProjectService(projectRepo, tenantRepo, validate, events),
			Exports:  services.NewExportService(tenantRepo, userRepo, projectRepo, objects),
		},
		Metrics:  collector,
		Gatherer: registry,
		DB:       s.db,
	}
	if cfg.RateLimit.PerMinute > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst, collector.RateLimited)
		deps.Limiter = s.limiter
	}
	if s.redis != nil {
		deps.Idempotency = cache.NewIdempotencyStore(s.redis, cfg.Redis.KeyTTL)
	}

	s.router = NewRouter(deps)
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().
		Bool("redis", s.redis != nil).
		Bool("mq", s.mq != nil).
		Bool("storage", s.storage != nil).
		Msg("server configured")

	ok = true
	return s, nil
}

// NewRouter builds the HTTP routes and middleware stack.
func NewRouter(deps RouterDeps) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		hlog.NewHandler(deps.Log),
		requestIDLogger,
		hlog.AccessHandler(accessLog),
		middleware.Recoverer,
	)
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware)
	}
	router.Use(middleware.Timeout(60 * time.Second))

	router.Get("/healthz", handlers.Healthz)
	if deps.DB != nil {
		router.Get("/readyz", handlers.Readyz(deps.DB))
	}
	if deps.Gatherer != nil {
		router.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	gate := handlers.RequireAuth(deps.Auth)

	var protected []func(http.Handler) http.Handler
	if deps.Limiter != nil {
		protected = append(protected, deps.Limiter.Middleware)
	}
	if deps.Idempotency != nil {
		var onReplay func()
		if deps.Metrics != nil {
			onReplay = deps.Metrics.IdempotentReplay
		}
		protected = append(protected, Idempotency(deps.Idempotency, onReplay))
	}

	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, deps.Auth, gate)
		})
		r.Route("/tenants", func(r chi.Router) {
			handlers.TenantRouter(r, deps.Services, gate, protected...)
		})
	})

	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx
// expires and then closes every backend connection.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.closeBackends()
	return err
}

func (s *Server) closeBackends() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.mq != nil {
		if err := s.mq.Close(); err != nil {
			s.log.Warn().Err(err).Msg("close mq")
		}
	}
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			s.log.Warn().Err(err).Msg("close storage")
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.log.Warn().Err(err).Msg("close redis")
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn().Err(err).Msg("close database")
		}
	}
}

// requestIDLogger adds chi's request ID to the request-scoped logger.
func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			log := zerolog.Ctx(r.Context())
			log.UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("request_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Stringer("url", r.URL).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(handlers.ErrorResponse{Error: message})
}
