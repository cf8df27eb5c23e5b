package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/commerce-dashboard-api/internal/dto"
	"github.com/noah-isme/commerce-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/commerce-dashboard-api/pkg/errors"
)

const dateLayout = "2006-01-02"

// Query bounds accepted by the dashboard endpoints.
const (
	DefaultKPIDays     = 7
	MaxKPIDays         = 30
	DefaultSalesMonths = 12
	MaxSalesMonths     = 36
	DefaultTopLimit    = 10
	MaxTopLimit        = 100
)

type dashboardRepository interface {
	KPITotals(ctx context.Context, from, to time.Time) (models.KPITotals, error)
	MonthlySales(ctx context.Context, months int) ([]models.MonthlySales, error)
	TopProducts(ctx context.Context, filter models.TopProductsFilter) ([]models.TopProduct, error)
	DeviceShare(ctx context.Context, metric models.ShareMetric) ([]models.DeviceShare, error)
	OrdersByCategory(ctx context.Context, metric models.ShareMetric) ([]models.CategoryShare, error)
	FunnelCounts(ctx context.Context, from, to *time.Time) ([]models.FunnelStep, error)
	TotalVisits(ctx context.Context) (int64, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Repo    dashboardRepository
	Cache   *CacheService
	Metrics *MetricsService
	Logger  *zap.Logger
	Config  DashboardServiceConfig
}

// DashboardService shapes aggregation rows into dashboard payloads.
// Every read reports whether it was served from cache.
type DashboardService struct {
	repo    dashboardRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
	cfg     DashboardServiceConfig
}

func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		repo:    params.Repo,
		cache:   params.Cache,
		metrics: params.Metrics,
		logger:  logger,
		now:     time.Now,
		cfg:     cfg,
	}
}

// DaysToRange returns the inclusive window of days days ending today (UTC).
func (s *DashboardService) DaysToRange(days int) (time.Time, time.Time) {
	now := s.now().UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return to.AddDate(0, 0, -(days - 1)), to
}

// KPISummary returns sales and items for the last days days plus all-time visits.
func (s *DashboardService) KPISummary(ctx context.Context, days int) (*dto.KPISummaryResponse, bool, error) {
	if days < 1 || days > MaxKPIDays {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("days must be between 1 and %d", MaxKPIDays))
	}
	from, to := s.DaysToRange(days)
	key := fmt.Sprintf("dash:kpi:%d:%s", days, to.Format(dateLayout))

	return readThrough(ctx, s, key, func(ctx context.Context) (*dto.KPISummaryResponse, error) {
		start := time.Now()
		totals, err := s.repo.KPITotals(ctx, from, to)
		s.metrics.ObserveDBQuery("kpi_totals", time.Since(start))
		if err != nil {
			return nil, s.internal(err, "failed to load kpi summary")
		}
		return &dto.KPISummaryResponse{Days: days, Sales: totals.Sales, Items: totals.Items, Visits: totals.Visits}, nil
	})
}

// MonthlySales returns the latest months oldest first.
func (s *DashboardService) MonthlySales(ctx context.Context, months int) ([]dto.MonthlySalesPoint, bool, error) {
	if months < 1 || months > MaxSalesMonths {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("months must be between 1 and %d", MaxSalesMonths))
	}
	key := fmt.Sprintf("dash:monthly:%d", months)

	return readThrough(ctx, s, key, func(ctx context.Context) ([]dto.MonthlySalesPoint, error) {
		start := time.Now()
		rows, err := s.repo.MonthlySales(ctx, months)
		s.metrics.ObserveDBQuery("monthly_sales", time.Since(start))
		if err != nil {
			return nil, s.internal(err, "failed to load monthly sales")
		}
		points := make([]dto.MonthlySalesPoint, len(rows))
		for i, row := range rows {
			points[len(rows)-1-i] = dto.MonthlySalesPoint{YearMonth: row.YearMonth, Sales: row.Sales}
		}
		return points, nil
	})
}

// TopProducts ranks products by sales within the optional filters.
func (s *DashboardService) TopProducts(ctx context.Context, filter models.TopProductsFilter) (*dto.TopProductsResponse, bool, error) {
	if filter.Limit < 1 || filter.Limit > MaxTopLimit {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("limit must be between 1 and %d", MaxTopLimit))
	}
	key := fmt.Sprintf("dash:top:%d:%s:%s:%s", filter.Limit, dateKey(filter.From), dateKey(filter.To), idKey(filter.CategoryID))

	return readThrough(ctx, s, key, func(ctx context.Context) (*dto.TopProductsResponse, error) {
		start := time.Now()
		rows, err := s.repo.TopProducts(ctx, filter)
		s.metrics.ObserveDBQuery("top_products", time.Since(start))
		if err != nil {
			return nil, s.internal(err, "failed to load top products")
		}
		return &dto.TopProductsResponse{Items: rows, Count: len(rows)}, nil
	})
}

func (s *DashboardService) DeviceShare(ctx context.Context, metric models.ShareMetric) ([]dto.DeviceShare, bool, error) {
	if !metric.Valid() {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "metric must be amount or count")
	}
	key := fmt.Sprintf("dash:device:%s", metric)

	return readThrough(ctx, s, key, func(ctx context.Context) ([]dto.DeviceShare, error) {
		start := time.Now()
		rows, err := s.repo.DeviceShare(ctx, metric)
		s.metrics.ObserveDBQuery("device_share", time.Since(start))
		if err != nil {
			return nil, s.internal(err, "failed to load device share")
		}
		shares := make([]dto.DeviceShare, 0, len(rows))
		for _, row := range rows {
			shares = append(shares, dto.DeviceShare{Device: row.Device, Value: row.Value})
		}
		return shares, nil
	})
}

func (s *DashboardService) OrdersByCategory(ctx context.Context, metric models.ShareMetric) ([]dto.CategoryShare, bool, error) {
	if !metric.Valid() {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "metric must be amount or count")
	}
	key := fmt.Sprintf("dash:category:%s", metric)

	return readThrough(ctx, s, key, func(ctx context.Context) ([]dto.CategoryShare, error) {
		start := time.Now()
		rows, err := s.repo.OrdersByCategory(ctx, metric)
		s.metrics.ObserveDBQuery("orders_by_category", time.Since(start))
		if err != nil {
			return nil, s.internal(err, "failed to load orders by category")
		}
		shares := make([]dto.CategoryShare, 0, len(rows))
		for _, row := range rows {
			shares = append(shares, dto.CategoryShare{CategoryName: row.CategoryName, Value: row.Value})
		}
		return shares, nil
	})
}

// Funnel returns event counts per step. Without any date bound the all-time
// visit total is prepended as the "visit" step.
func (s *DashboardService) Funnel(ctx context.Context, from, to *time.Time) ([]dto.FunnelStep, bool, error) {
	key := fmt.Sprintf("dash:funnel:%s:%s", dateKey(from), dateKey(to))

	return readThrough(ctx, s, key, func(ctx context.Context) ([]dto.FunnelStep, error) {
		start := time.Now()
		rows, err := s.repo.FunnelCounts(ctx, from, to)
		s.metrics.ObserveDBQuery("funnel_counts", time.Since(start))
		if err != nil {
			return nil, s.internal(err, "failed to load funnel")
		}

		steps := make([]dto.FunnelStep, 0, len(rows)+1)
		if from == nil && to == nil {
			start = time.Now()
			visits, err := s.repo.TotalVisits(ctx)
			s.metrics.ObserveDBQuery("total_visits", time.Since(start))
			if err != nil {
				return nil, s.internal(err, "failed to load visits")
			}
			steps = append(steps, dto.FunnelStep{Step: "visit", Count: visits})
		}
		for _, row := range rows {
			steps = append(steps, dto.FunnelStep{Step: row.Step, Count: row.Count})
		}
		return steps, nil
	})
}

func (s *DashboardService) internal(err error, message string) error {
	s.logger.Error(message, zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// readThrough serves key from cache or loads, stores and returns a fresh value.
func readThrough[T any](ctx context.Context, s *DashboardService, key string, load func(context.Context) (T, error)) (T, bool, error) {
	var cached T
	if s.cache.Get(ctx, key, &cached) {
		return cached, true, nil
	}
	value, err := load(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	s.cache.Set(ctx, key, value, s.cfg.CacheTTL)
	return value, false, nil
}

func dateKey(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateLayout)
}

func idKey(id *int64) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *id)
}
