package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/commerce-dashboard-api/internal/dto"
	"github.com/noah-isme/commerce-dashboard-api/internal/handler"
	"github.com/noah-isme/commerce-dashboard-api/internal/models"
	"github.com/noah-isme/commerce-dashboard-api/internal/service"
	"github.com/noah-isme/commerce-dashboard-api/pkg/config"
	appErrors "github.com/noah-isme/commerce-dashboard-api/pkg/errors"
)

type tokenTable map[string]int64

func (t tokenTable) Authenticate(token string) (int64, error) {
	if id, ok := t[token]; ok {
		return id, nil
	}
	return 0, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
}

type stubAuth struct{ logoutCustomer int64 }

func (s *stubAuth) Signup(_ context.Context, req dto.SignupRequest) (*dto.CustomerSummary, error) {
	return &dto.CustomerSummary{CustomerID: 1, Email: req.Email}, nil
}

func (s *stubAuth) Login(context.Context, dto.LoginRequest) (*dto.TokenPair, error) {
	return &dto.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (s *stubAuth) RefreshToken(context.Context, dto.RefreshRequest) (*dto.TokenPair, error) {
	return &dto.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (s *stubAuth) Logout(_ context.Context, customerID int64, _ dto.LogoutRequest) (*dto.DetailResponse, error) {
	s.logoutCustomer = customerID
	return &dto.DetailResponse{Detail: "Successfully logged out"}, nil
}

func (s *stubAuth) RevokeAll(context.Context, int64) (*dto.DetailResponse, error) {
	return &dto.DetailResponse{Detail: "Successfully logged out from all sessions"}, nil
}

type stubDashboard struct{}

func (stubDashboard) KPISummary(_ context.Context, days int) (*dto.KPISummaryResponse, bool, error) {
	return &dto.KPISummaryResponse{Days: days}, true, nil
}

func (stubDashboard) MonthlySales(context.Context, int) ([]dto.MonthlySalesPoint, bool, error) {
	return []dto.MonthlySalesPoint{}, false, nil
}

func (stubDashboard) TopProducts(context.Context, models.TopProductsFilter) (*dto.TopProductsResponse, bool, error) {
	return &dto.TopProductsResponse{Items: []models.TopProduct{}}, false, nil
}

func (stubDashboard) DeviceShare(context.Context, models.ShareMetric) ([]dto.DeviceShare, bool, error) {
	return []dto.DeviceShare{}, false, nil
}

func (stubDashboard) OrdersByCategory(context.Context, models.ShareMetric) ([]dto.CategoryShare, bool, error) {
	return []dto.CategoryShare{}, false, nil
}

func (stubDashboard) Funnel(context.Context, *time.Time, *time.Time) ([]dto.FunnelStep, bool, error) {
	return []dto.FunnelStep{}, false, nil
}

func testConfig(requireAuth bool) *config.Config {
	return &config.Config{
		Env:       config.EnvDevelopment,
		APIPrefix: "/api/v1",
		Dashboard: config.DashboardConfig{RequireAuth: requireAuth},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, auth *stubAuth) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	return New(Options{
		Config:        cfg,
		Authenticator: tokenTable{"access": 5},
		Metrics:       metrics,
	}, Handlers{
		Auth:      handler.NewAuthHandler(auth),
		Dashboard: handler.NewDashboardHandler(stubDashboard{}, service.NewExportService(stubDashboard{}, nil)),
		Metrics:   handler.NewMetricsHandler(metrics, nil),
	})
}

func serve(r http.Handler, method, target, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	r := newTestRouter(t, testConfig(true), &stubAuth{})

	rec := serve(r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = serve(r, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(r, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDashboardRequiresToken(t *testing.T) {
	r := newTestRouter(t, testConfig(true), &stubAuth{})

	rec := serve(r, http.MethodGet, "/api/v1/kpis/summary", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(r, http.MethodGet, "/api/v1/kpis/summary?days=3", "", "access")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"days":3,"sales":0,"items":0,"visits":0}`, rec.Body.String())
}

func TestDashboardOpenWhenAuthDisabled(t *testing.T) {
	r := newTestRouter(t, testConfig(false), &stubAuth{})

	rec := serve(r, http.MethodGet, "/api/v1/charts/funnel", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
}

func TestAuthRoutes(t *testing.T) {
	auth := &stubAuth{}
	r := newTestRouter(t, testConfig(true), auth)

	rec := serve(r, http.MethodPost, "/auth/register", `{"email":"a@example.com"}`, "")
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(r, http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"x"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(r, http.MethodPost, "/auth/logout", `{"refresh_token":"refresh"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(r, http.MethodPost, "/auth/logout", `{"refresh_token":"refresh"}`, "access")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(5), auth.logoutCustomer)
}

func TestExportRouteServesAttachment(t *testing.T) {
	r := newTestRouter(t, testConfig(true), &stubAuth{})

	rec := serve(r, http.MethodGet, "/api/v1/tables/top-products/export?format=csv", "", "access")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "top-products-")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "product_id,"))
}

// echoClientIP registers a route reporting the resolved client address and
// returns a function that issues one request through it.
func echoClientIP(r *gin.Engine) func(remoteAddr, forwarded string) string {
	r.GET("/_client_ip", func(c *gin.Context) { c.String(http.StatusOK, c.ClientIP()) })
	return func(remoteAddr, forwarded string) string {
		req := httptest.NewRequest(http.MethodGet, "/_client_ip", nil)
		req.RemoteAddr = remoteAddr
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Body.String()
	}
}

func TestForwardedForIgnoredWithoutTrustedProxies(t *testing.T) {
	clientIP := echoClientIP(newTestRouter(t, testConfig(true), &stubAuth{}))

	first := clientIP("203.0.113.9:40000", "1.1.1.1")
	second := clientIP("203.0.113.9:40000", "2.2.2.2")
	assert.Equal(t, "203.0.113.9", first)
	assert.Equal(t, first, second)
}

func TestForwardedForHonouredFromTrustedProxy(t *testing.T) {
	cfg := testConfig(true)
	cfg.TrustedProxies = []string{"10.0.0.0/8"}
	clientIP := echoClientIP(newTestRouter(t, cfg, &stubAuth{}))

	assert.Equal(t, "198.51.100.7", clientIP("10.1.2.3:40000", "198.51.100.7"))
	assert.Equal(t, "203.0.113.9", clientIP("203.0.113.9:40000", "198.51.100.7"))
}
