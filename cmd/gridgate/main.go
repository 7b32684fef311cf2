package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gridgate/gridgate/internal/access"
	"github.com/gridgate/gridgate/internal/app"
	"github.com/gridgate/gridgate/internal/auth"
	"github.com/gridgate/gridgate/internal/platform/cache"
	"github.com/gridgate/gridgate/internal/platform/db"
	"github.com/gridgate/gridgate/internal/query"
	"github.com/gridgate/gridgate/internal/shared"
	"github.com/gridgate/gridgate/internal/views"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.DBMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, view cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	catalog, err := query.Load(ctx, pool, cfg.DataTables)
	if err != nil {
		logger.Error("load column catalog", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("column catalog loaded", slog.Any("tables", catalog.Keys()))

	auditLogger := shared.NewAuditLogger(pool)

	accessRepo := access.NewRepository(pool)
	resolver := access.NewResolver(accessRepo)
	tokens := access.NewTokenCodec(cfg.JWTSecret, cfg.TokenTTL)
	gate := access.Gate{Codec: tokens, Store: accessRepo, Logger: logger}
	accessService := access.NewService(accessRepo, resolver, auditLogger, logger)
	accessHandler := access.NewHandler(logger, accessService, gate)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, resolver, tokens)
	authHandler := auth.NewHandler(logger, authService)

	viewsRepo := views.NewRepository(pool)
	viewsCache := views.NewListCache(redisClient, cfg.ViewCacheTTL)
	viewsService := views.NewService(viewsRepo, viewsCache, auditLogger, logger)
	viewsHandler := views.NewHandler(logger, viewsService)

	executor := query.NewExecutor(query.NewPGRunner(pool), catalog, logger)
	queryHandler := query.NewHandler(logger, viewsService, executor, cfg.MaxPageSize)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		Gate:          gate,
		AuthHandler:   authHandler,
		AccessHandler: accessHandler,
		QueryHandler:  queryHandler,
		ViewsHandler:  viewsHandler,
		Pool:          pool,
		Redis:         redisClient,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
