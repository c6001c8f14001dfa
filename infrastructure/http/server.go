package http

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/techstore/storefront/application/port/inbound"
	"github.com/techstore/storefront/application/port/outbound"
	"github.com/techstore/storefront/infrastructure/http/handler"
	"github.com/techstore/storefront/infrastructure/http/middleware"
	"github.com/techstore/storefront/infrastructure/http/response"
	"github.com/techstore/storefront/infrastructure/service/logger"
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	Cookies              handler.CookieConfig
	CorrelationIDHeader  string
	EnableRequestLog     bool
	CORSEnabled          bool
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	// RouteLimits is keyed by route name: login, register, refresh.
	RouteLimits map[string]middleware.RateLimitPolicy
}

type Dependencies struct {
	Auth           inbound.AuthUseCase
	UserManagement inbound.UserManagementUseCase
	Tokens         outbound.TokenService
	RateLimiter    inbound.RateLimitService
	Logger         logger.Logger
}

type Server struct {
	router *mux.Router
	server *http.Server
	logger logger.Logger
}

func NewServer(config ServerConfig, deps Dependencies) *Server {
	router := NewRouter(config, deps)
	addr := net.JoinHostPort(config.Host, config.Port)

	return &Server{
		router: router,
		logger: deps.Logger,
		server: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}
}

// NewRouter builds the full route table with its middleware chain.
func NewRouter(config ServerConfig, deps Dependencies) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.CorrelationID(config.CorrelationIDHeader))
	router.Use(middleware.Recovery(deps.Logger))
	if config.EnableRequestLog {
		router.Use(middleware.RequestLog(deps.Logger))
	}
	if config.CORSEnabled {
		router.Use(middleware.CORS(config.CORSAllowedOrigins, config.CORSAllowCredentials))
	}

	authMiddleware := middleware.NewAuthMiddleware(deps.Tokens, deps.Logger)
	rateLimiter := middleware.NewRateLimitMiddleware(deps.RateLimiter, deps.Logger)
	limit := func(name string) func(http.Handler) http.Handler {
		return rateLimiter.Limit(name, config.RouteLimits[name])
	}

	handler.NewAuthHandler(deps.Auth, config.Cookies).RegisterRoutes(router, authMiddleware, limit)
	if deps.UserManagement != nil {
		handler.NewUserManagementHandler(deps.UserManagement).RegisterRoutes(router, authMiddleware)
	}

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, http.StatusOK, "ok", nil)
	}).Methods(http.MethodGet)

	// Preflight requests need a route to reach the CORS middleware.
	router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return router
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info(context.Background(), "Starting HTTP server", map[string]interface{}{"addr": s.server.Addr})
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}
