package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"creator_chat/internal/config"
	"creator_chat/internal/handler"
	"creator_chat/internal/middleware"
	"creator_chat/internal/presence"
	"creator_chat/internal/realtime"
	"creator_chat/internal/repository"
	"creator_chat/internal/repository/memory"
	"creator_chat/internal/service"
	"creator_chat/pkg/jwt"
	"creator_chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var appLogger logger.Logger
	if cfg.IsProduction() {
		appLogger = logger.New(cfg.Log.Level)
	} else {
		appLogger = logger.NewConsole(cfg.Log.Level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			appLogger.Fatal("Failed to connect to Redis", "error", err)
		}
		appLogger.Info("Redis connection established", "addr", cfg.Redis.Addr)
	}

	repos, closeStorage := openStorage(ctx, cfg, rdb, appLogger)
	defer closeStorage()

	var tracker presence.Tracker
	switch cfg.Presence.Backend {
	case config.PresenceBackendRedis:
		tracker = presence.NewRedisTracker(rdb, cfg.Presence.KeyPrefix)
	default:
		tracker = presence.NewMemoryTracker()
	}

	hub := realtime.NewHub(appLogger)
	if rdb != nil && cfg.Realtime.RelayEnabled {
		relay := realtime.NewRelay(rdb, cfg.Realtime.RelayChannel, hub, appLogger)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				appLogger.Error("Realtime relay stopped", "error", err)
			}
		}()
	}
	dispatcher := realtime.NewDispatcher(hub, appLogger)

	var catalog service.CatalogClient
	if cfg.Catalog.BaseURL != "" {
		catalog = service.NewCatalogClient(cfg.Catalog.BaseURL, cfg.Catalog.APIKey, cfg.Catalog.Timeout)
	} else {
		appLogger.Warn("Catalog is not configured, private product delivery disabled")
	}

	services := service.NewServices(repos, cfg, catalog, dispatcher, appLogger)

	tokens := jwt.NewManager(cfg.JWT.AccessSecret, cfg.JWT.Issuer, cfg.JWT.AccessTTL)
	authMiddleware := middleware.NewAuthMiddleware(tokens, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, cfg.RateLimit.RequestsPerMinute, appLogger)

	handlers := handler.NewHandlers(services, handler.Realtime{
		Hub:        hub,
		Membership: realtime.NewMembership(hub, repos.Conversation, appLogger),
		Dispatcher: dispatcher,
		Presence:   tracker,
	}, cfg, appLogger)

	router := setupRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server", "addr", srv.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

// openStorage returns the repositories for the configured backend and a
// function releasing whatever it opened.
func openStorage(ctx context.Context, cfg *config.Config, rdb *redis.Client, log logger.Logger) (*repository.Repositories, func()) {
	if cfg.Database.Backend == config.StorageBackendMemory {
		log.Warn("Using in-memory storage, data is lost on restart")
		repos := memory.NewStore().Repositories()
		if rdb != nil {
			repos.RateLimit = repository.NewRateLimitRepository(rdb, log)
		}
		return repos, func() {}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Invalid database DSN", "error", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConnections)
	poolCfg.MaxConnIdleTime = cfg.Database.MaxIdleTime
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database", "error", err)
	}
	log.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(ctx, dbPool, log); err != nil {
			log.Fatal("Failed to apply migrations", "error", err)
		}
	}

	return repository.NewRepositories(dbPool, rdb, log), dbPool.Close
}

func setupRouter(
	handlers *handler.Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.CORS.AllowOrigins))
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handler.RegisterRoutes(router, handlers, authMiddleware, rateLimitMiddleware)

	return router
}
