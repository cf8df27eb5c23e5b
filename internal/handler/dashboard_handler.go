package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/commerce-dashboard-api/internal/dto"
	"github.com/noah-isme/commerce-dashboard-api/internal/middleware"
	"github.com/noah-isme/commerce-dashboard-api/internal/models"
	"github.com/noah-isme/commerce-dashboard-api/internal/service"
	appErrors "github.com/noah-isme/commerce-dashboard-api/pkg/errors"
	"github.com/noah-isme/commerce-dashboard-api/pkg/response"
)

type dashboardService interface {
	KPISummary(ctx context.Context, days int) (*dto.KPISummaryResponse, bool, error)
	MonthlySales(ctx context.Context, months int) ([]dto.MonthlySalesPoint, bool, error)
	TopProducts(ctx context.Context, filter models.TopProductsFilter) (*dto.TopProductsResponse, bool, error)
	DeviceShare(ctx context.Context, metric models.ShareMetric) ([]dto.DeviceShare, bool, error)
	OrdersByCategory(ctx context.Context, metric models.ShareMetric) ([]dto.CategoryShare, bool, error)
	Funnel(ctx context.Context, from, to *time.Time) ([]dto.FunnelStep, bool, error)
}

type exportService interface {
	TopProducts(ctx context.Context, filter models.TopProductsFilter, format service.ExportFormat) (*service.ExportFile, error)
}

// DashboardHandler serves the KPI, chart and table endpoints.
type DashboardHandler struct {
	service dashboardService
	exports exportService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(svc dashboardService, exports exportService) *DashboardHandler {
	return &DashboardHandler{service: svc, exports: exports}
}

// KPISummary godoc
// @Summary KPI summary
// @Description Sales and items of the last N days plus all-time visits
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param days query int false "Window in days (1-30)" default(7)
// @Success 200 {object} dto.KPISummaryResponse
// @Failure 400 {object} response.ErrorBody
// @Router /api/v1/kpis/summary [get]
func (h *DashboardHandler) KPISummary(c *gin.Context) {
	days, err := intQuery(c, "days", service.DefaultKPIDays)
	if err != nil {
		response.Error(c, err)
		return
	}
	res, hit, err := h.service.KPISummary(c.Request.Context(), days)
	respond(c, res, hit, err)
}

// MonthlySales godoc
// @Summary Monthly sales
// @Description Rounded sales per calendar month, oldest first
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param months query int false "Number of months (1-36)" default(12)
// @Success 200 {array} dto.MonthlySalesPoint
// @Failure 400 {object} response.ErrorBody
// @Router /api/v1/charts/monthly-sales [get]
func (h *DashboardHandler) MonthlySales(c *gin.Context) {
	months, err := intQuery(c, "months", service.DefaultSalesMonths)
	if err != nil {
		response.Error(c, err)
		return
	}
	res, hit, err := h.service.MonthlySales(c.Request.Context(), months)
	respond(c, res, hit, err)
}

// TopProducts godoc
// @Summary Top products
// @Description Products ranked by total sales
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Rows (1-100)" default(10)
// @Param from_date query string false "Start date (YYYY-MM-DD)"
// @Param to_date query string false "End date (YYYY-MM-DD)"
// @Param category_id query int false "Category ID"
// @Success 200 {object} dto.TopProductsResponse
// @Failure 400 {object} response.ErrorBody
// @Router /api/v1/tables/top-products [get]
func (h *DashboardHandler) TopProducts(c *gin.Context) {
	filter, err := topProductsFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	res, hit, err := h.service.TopProducts(c.Request.Context(), filter)
	respond(c, res, hit, err)
}

// ExportTopProducts godoc
// @Summary Export top products
// @Description Download the top products table as CSV or PDF
// @Tags Dashboard
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Param limit query int false "Rows (1-100)" default(10)
// @Param from_date query string false "Start date (YYYY-MM-DD)"
// @Param to_date query string false "End date (YYYY-MM-DD)"
// @Param category_id query int false "Category ID"
// @Success 200 {file} file
// @Failure 400 {object} response.ErrorBody
// @Router /api/v1/tables/top-products/export [get]
func (h *DashboardHandler) ExportTopProducts(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	filter, err := topProductsFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(service.ExportCSV))))

	file, err := h.exports.TopProducts(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// DeviceShare godoc
// @Summary Device share
// @Description Sales amount or item count per device type
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param metric query string false "amount or count" default(amount)
// @Success 200 {array} dto.DeviceShare
// @Failure 400 {object} response.ErrorBody
// @Router /api/v1/tables/device-share [get]
func (h *DashboardHandler) DeviceShare(c *gin.Context) {
	res, hit, err := h.service.DeviceShare(c.Request.Context(), metricQuery(c))
	respond(c, res, hit, err)
}

// OrdersByCategory godoc
// @Summary Orders by category
// @Description Sales amount or item count per product category
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param metric query string false "amount or count" default(amount)
// @Success 200 {array} dto.CategoryShare
// @Failure 400 {object} response.ErrorBody
// @Router /api/v1/charts/orders-by-category [get]
func (h *DashboardHandler) OrdersByCategory(c *gin.Context) {
	res, hit, err := h.service.OrdersByCategory(c.Request.Context(), metricQuery(c))
	respond(c, res, hit, err)
}

// Funnel godoc
// @Summary Conversion funnel
// @Description Event counts per funnel step. The visit step is included only without date bounds.
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param from_date query string false "Start date (YYYY-MM-DD)"
// @Param to_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {array} dto.FunnelStep
// @Failure 400 {object} response.ErrorBody
// @Router /api/v1/charts/funnel [get]
func (h *DashboardHandler) Funnel(c *gin.Context) {
	from, to, err := dateRangeQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	res, hit, err := h.service.Funnel(c.Request.Context(), from, to)
	respond(c, res, hit, err)
}

func topProductsFilter(c *gin.Context) (models.TopProductsFilter, error) {
	limit, err := intQuery(c, "limit", service.DefaultTopLimit)
	if err != nil {
		return models.TopProductsFilter{}, err
	}
	from, to, err := dateRangeQuery(c)
	if err != nil {
		return models.TopProductsFilter{}, err
	}
	categoryID, err := optionalIDQuery(c, "category_id")
	if err != nil {
		return models.TopProductsFilter{}, err
	}
	return models.TopProductsFilter{Limit: limit, From: from, To: to, CategoryID: categoryID}, nil
}

func metricQuery(c *gin.Context) models.ShareMetric {
	return models.ShareMetric(strings.ToLower(c.DefaultQuery("metric", string(models.MetricAmount))))
}

func respond(c *gin.Context, payload interface{}, hit bool, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, payload)
}
