package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"github.com/techstore/storefront/application/port/inbound"
	"github.com/techstore/storefront/application/port/outbound"
	"github.com/techstore/storefront/application/usecase"
	"github.com/techstore/storefront/application/usecase/user_management"
	"github.com/techstore/storefront/infrastructure/config"
	storehttp "github.com/techstore/storefront/infrastructure/http"
	"github.com/techstore/storefront/infrastructure/http/handler"
	"github.com/techstore/storefront/infrastructure/http/middleware"
	"github.com/techstore/storefront/infrastructure/persistence/memory"
	"github.com/techstore/storefront/infrastructure/persistence/postgres"
	"github.com/techstore/storefront/infrastructure/persistence/redisstore"
	"github.com/techstore/storefront/infrastructure/service/jwt"
	"github.com/techstore/storefront/infrastructure/service/logger"
	"github.com/techstore/storefront/infrastructure/service/password"
	"github.com/techstore/storefront/infrastructure/service/ratelimit"
	"github.com/techstore/storefront/infrastructure/service/recaptcha"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	loggerConfig := logger.LoggerConfig{
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		CorrelationIDHeader: cfg.LogCorrelationIDHeader,
		EnableRequestLog:    cfg.LogEnableRequestLog,
		ServiceName:         "storefront-auth",
	}
	structuredLogger := logger.NewStructuredLogger(loggerConfig)
	structuredLogger.Info(ctx, "Application starting", map[string]interface{}{
		"env":           cfg.Environment,
		"store_driver":  cfg.StoreDriver,
		"refresh_store": cfg.RefreshStore,
	})

	var db *sql.DB
	if cfg.StoreDriver == config.StoreDriverPostgres || cfg.RefreshStore == config.StoreDriverPostgres {
		db, err = openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			structuredLogger.Error(ctx, "Failed to connect to database", err, nil)
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		structuredLogger.Info(ctx, "Database connection established", nil)
	}

	var redisClient *redis.Client
	if cfg.UsesRedis() {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	var principals outbound.PrincipalRepository
	if cfg.StoreDriver == config.StoreDriverPostgres {
		principals = postgres.NewPrincipalRepository(db)
	} else {
		principals = memory.NewPrincipalRepository()
		structuredLogger.Warn(ctx, "Using in-memory principal store; data is lost on restart", nil)
	}

	var refreshStore outbound.RefreshStore
	switch cfg.RefreshStore {
	case config.StoreDriverPostgres:
		refreshStore = postgres.NewRefreshStore(db)
	case config.StoreDriverRedis:
		refreshStore = redisstore.NewRefreshStore(redisClient)
	default:
		refreshStore = memory.NewRefreshStore()
	}

	rateLimitService, err := ratelimit.NewRateLimitService(ratelimit.RateLimitConfig{
		Enabled:       cfg.RateLimitEnabled,
		IPAttempts:    cfg.RateLimitIPAttempts,
		IPWindow:      cfg.RateLimitIPWindow,
		UserAttempts:  cfg.RateLimitUserAttempts,
		UserWindow:    cfg.RateLimitUserWindow,
		BlockDuration: cfg.RateLimitBlockDuration,
	}, redisClient, logger.NewLogrus(loggerConfig))
	if err != nil {
		// Sign-in keeps working unlimited while Redis is unreachable.
		structuredLogger.Error(ctx, "Failed to initialize rate limit service, continuing without it", err, nil)
		rateLimitService = ratelimit.NewNoopRateLimitService()
	}

	tokenService, err := jwt.NewJWTService(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize JWT service: %v", err)
	}
	passwordService := password.NewBcryptPasswordService(cfg.BcryptCost)

	var humanVerifier inbound.HumanVerifier
	if cfg.RecaptchaEnabled {
		humanVerifier = recaptcha.NewRecaptchaService(recaptcha.Config{
			SecretKey: cfg.RecaptchaSecret,
			Enabled:   cfg.RecaptchaEnabled,
			Skip:      cfg.RecaptchaSkip,
			Timeout:   cfg.RecaptchaTimeout,
			MinScore:  cfg.RecaptchaMinScore,
		}, structuredLogger)
	} else {
		humanVerifier = recaptcha.NewNoopRecaptchaService(structuredLogger)
	}

	authUseCase := usecase.NewAuthUseCase(
		principals,
		refreshStore,
		tokenService,
		passwordService,
		humanVerifier,
		rateLimitService,
		usecase.RateLimits{
			IPAttempts:    cfg.RateLimitIPAttempts,
			IPWindow:      cfg.RateLimitIPWindow,
			UserAttempts:  cfg.RateLimitUserAttempts,
			UserWindow:    cfg.RateLimitUserWindow,
			BlockDuration: cfg.RateLimitBlockDuration,
		},
		structuredLogger,
	)
	userManagementUseCase := user_management.NewUserManagementUseCase(principals, passwordService, structuredLogger)

	routePolicy := middleware.RateLimitPolicy{
		Limit:  cfg.RateLimitIPAttempts * 2,
		Window: cfg.RateLimitIPWindow,
		Block:  cfg.RateLimitBlockDuration,
	}
	server := storehttp.NewServer(storehttp.ServerConfig{
		Host:         cfg.ServerHost,
		Port:         cfg.ServerPort,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		Cookies: handler.CookieConfig{
			Secure:     cfg.CookieSecure,
			AccessTTL:  cfg.AccessTokenTTL,
			RefreshTTL: cfg.RefreshTokenTTL,
		},
		CorrelationIDHeader:  cfg.LogCorrelationIDHeader,
		EnableRequestLog:     cfg.LogEnableRequestLog,
		CORSEnabled:          cfg.CORSEnabled && len(cfg.CORSAllowedOrigins) > 0,
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
		CORSAllowCredentials: cfg.CORSAllowCredentials,
		RouteLimits: map[string]middleware.RateLimitPolicy{
			"login":    routePolicy,
			"register": routePolicy,
			"refresh":  {Limit: routePolicy.Limit * 3, Window: routePolicy.Window, Block: routePolicy.Block},
		},
	}, storehttp.Dependencies{
		Auth:           authUseCase,
		UserManagement: userManagementUseCase,
		Tokens:         tokenService,
		RateLimiter:    rateLimitService,
		Logger:         structuredLogger,
	})

	go func() {
		if err := server.Start(); err != nil {
			structuredLogger.Error(ctx, "Server failed", err, map[string]interface{}{
				"host": cfg.ServerHost,
				"port": cfg.ServerPort,
			})
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		structuredLogger.Error(ctx, "Server forced to shutdown", err, nil)
	}
	structuredLogger.Info(ctx, "Server exited", nil)
}

func openDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
