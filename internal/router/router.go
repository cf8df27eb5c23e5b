package router

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/commerce-dashboard-api/internal/handler"
	"github.com/noah-isme/commerce-dashboard-api/internal/middleware"
	"github.com/noah-isme/commerce-dashboard-api/internal/service"
	"github.com/noah-isme/commerce-dashboard-api/pkg/config"
	"github.com/noah-isme/commerce-dashboard-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/commerce-dashboard-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/commerce-dashboard-api/pkg/middleware/requestid"
)

// Handlers bundles the HTTP handlers mounted by New.
type Handlers struct {
	Auth      *handler.AuthHandler
	Dashboard *handler.DashboardHandler
	Metrics   *handler.MetricsHandler
}

// Options carries the cross-cutting dependencies of the router.
type Options struct {
	Config        *config.Config
	Logger        *zap.Logger
	Authenticator middleware.Authenticator
	Metrics       *service.MetricsService
	Redis         *redis.Client
}

var unobservedPaths = []string{"/health", "/ready", "/metrics"}

// New builds the gin engine with middleware and every route registered.
func New(opts Options, h Handlers) *gin.Engine {
	cfg := opts.Config
	logr := opts.Logger
	if logr == nil {
		logr = zap.NewNop()
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logr.Warn("invalid trusted proxies, forwarding headers ignored", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, unobservedPaths...))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics, unobservedPaths...))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	r.GET("/metrics/summary", h.Metrics.Summary)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	requireAuth := middleware.JWT(opts.Authenticator)
	limited := middleware.RateLimit(cfg.RateLimit, opts.Redis, opts.Metrics, logr)

	auth := r.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", limited, h.Auth.Login)
	auth.POST("/refresh", limited, h.Auth.Refresh)
	auth.POST("/logout", requireAuth, h.Auth.Logout)
	auth.POST("/logout-all", requireAuth, h.Auth.LogoutAll)

	dashboardAuth := middleware.OptionalJWT(opts.Authenticator)
	if cfg.Dashboard.RequireAuth {
		dashboardAuth = requireAuth
	}

	api := r.Group(cfg.APIPrefix, dashboardAuth)
	api.GET("/kpis/summary", h.Dashboard.KPISummary)
	api.GET("/charts/monthly-sales", h.Dashboard.MonthlySales)
	api.GET("/charts/orders-by-category", h.Dashboard.OrdersByCategory)
	api.GET("/charts/funnel", h.Dashboard.Funnel)
	api.GET("/tables/top-products", h.Dashboard.TopProducts)
	api.GET("/tables/top-products/export", h.Dashboard.ExportTopProducts)
	api.GET("/tables/device-share", h.Dashboard.DeviceShare)

	return r
}
