package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/commerce-dashboard-api/api/swagger"
	"github.com/noah-isme/commerce-dashboard-api/internal/handler"
	"github.com/noah-isme/commerce-dashboard-api/internal/repository"
	"github.com/noah-isme/commerce-dashboard-api/internal/router"
	"github.com/noah-isme/commerce-dashboard-api/internal/service"
	"github.com/noah-isme/commerce-dashboard-api/pkg/cache"
	"github.com/noah-isme/commerce-dashboard-api/pkg/config"
	"github.com/noah-isme/commerce-dashboard-api/pkg/database"
	"github.com/noah-isme/commerce-dashboard-api/pkg/events"
	"github.com/noah-isme/commerce-dashboard-api/pkg/logger"
)

// @title Commerce Dashboard API
// @version 1.0.0
// @description Customer accounts and sales analytics for the commerce dashboard
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, cache and rate limiting disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	publisher := newPublisher(ctx, cfg.Events, logr)
	defer publisher.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	customerRepo := repository.NewCustomerRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}
	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
		checks["redis"] = cacheRepo.Ping
	}

	tokenSvc, err := service.NewTokenService(service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		Algorithm:  cfg.JWT.Algorithm,
		AccessTTL:  cfg.JWT.Expiration,
		RefreshTTL: cfg.JWT.RefreshExpiration,
	})
	if err != nil {
		logr.Fatal("failed to init token service", zap.Error(err))
	}

	authSvc := service.NewAuthService(service.AuthServiceParams{
		Customers:     customerRepo,
		RefreshTokens: refreshRepo,
		Tokens:        tokenSvc,
		Hasher:        service.NewPasswordHasher(cfg.JWT.BcryptCost),
		Validator:     validator.New(),
		Publisher:     publisher,
		Metrics:       metricsSvc,
		Logger:        logr,
	})
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Repo:    dashboardRepo,
		Cache:   cacheSvc,
		Metrics: metricsSvc,
		Logger:  logr,
		Config:  service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})
	exportSvc := service.NewExportService(dashboardSvc, logr)

	janitor := service.NewSessionJanitor(refreshRepo, cfg.Sessions.CleanupInterval, metricsSvc, logr)
	go janitor.Run(ctx)

	engine := router.New(router.Options{
		Config:        cfg,
		Logger:        logr,
		Authenticator: authSvc,
		Metrics:       metricsSvc,
		Redis:         redisClient,
	}, router.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Dashboard: handler.NewDashboardHandler(dashboardSvc, exportSvc),
		Metrics:   handler.NewMetricsHandler(metricsSvc, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newPublisher connects the broker when configured and falls back to a no-op publisher.
func newPublisher(ctx context.Context, cfg config.EventsConfig, logr *zap.Logger) events.Publisher {
	if cfg.AMQPURL == "" {
		return events.NoopPublisher{}
	}
	amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.Queue)
	if err != nil {
		logr.Warn("amqp unavailable, domain events disabled", zap.Error(err))
		return events.NoopPublisher{}
	}
	async := events.NewAsyncPublisher(amqpPublisher, logr)
	async.Start(ctx)
	return async
}
