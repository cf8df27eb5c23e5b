package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/commerce-dashboard-api/internal/models"
)

// DashboardRepository runs the read-only aggregations behind the dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// KPITotals sums sales and items inside [from, to]. Visits are all-time.
func (r *DashboardRepository) KPITotals(ctx context.Context, from, to time.Time) (models.KPITotals, error) {
	var totals models.KPITotals
	query := r.db.Rebind(`SELECT COALESCE(SUM(order_product_amount), 0) AS sales,
        COALESCE(SUM(order_product_count), 0) AS items
        FROM order_products
        WHERE order_product_date >= ? AND order_product_date <= ?`)
	if err := r.db.GetContext(ctx, &totals, query, from, to); err != nil {
		return models.KPITotals{}, fmt.Errorf("query kpi totals: %w", err)
	}

	visits, err := r.TotalVisits(ctx)
	if err != nil {
		return models.KPITotals{}, err
	}
	totals.Visits = visits
	return totals, nil
}

// MonthlySales returns the latest months newest first.
func (r *DashboardRepository) MonthlySales(ctx context.Context, months int) ([]models.MonthlySales, error) {
	ym := yearMonthExpr(r.db.DriverName(), "order_product_date")
	query := r.db.Rebind(fmt.Sprintf(`SELECT %s AS ym, ROUND(COALESCE(SUM(order_product_amount), 0), 0) AS sales
        FROM order_products
        WHERE order_product_date IS NOT NULL
        GROUP BY %s
        ORDER BY ym DESC
        LIMIT ?`, ym, ym))

	rows := make([]models.MonthlySales, 0)
	if err := r.db.SelectContext(ctx, &rows, query, months); err != nil {
		return nil, fmt.Errorf("query monthly sales: %w", err)
	}
	return rows, nil
}

// TopProducts ranks products by sales. Products without orders are kept with zero totals.
// Date bounds apply to the joined line items through the WHERE clause.
func (r *DashboardRepository) TopProducts(ctx context.Context, filter models.TopProductsFilter) ([]models.TopProduct, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT p.product_id,
        COALESCE(p.product_code, '') AS product_code,
        COALESCE(p.product_name, '') AS product_name,
        COALESCE(p.device, '') AS device,
        COALESCE(SUM(op.order_product_count), 0) AS total_qty,
        COALESCE(SUM(op.order_product_amount), 0) AS total_sales,
        MAX(op.order_product_date) AS last_order_date
        FROM products p
        LEFT JOIN order_products op ON op.product_id = p.product_id
        WHERE 1=1`)
	var args []interface{}
	if filter.From != nil {
		builder.WriteString(" AND op.order_product_date >= ?")
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		builder.WriteString(" AND op.order_product_date <= ?")
		args = append(args, *filter.To)
	}
	if filter.CategoryID != nil {
		builder.WriteString(" AND p.category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	builder.WriteString(" GROUP BY p.product_id, p.product_code, p.product_name, p.device ORDER BY total_sales DESC LIMIT ?")
	args = append(args, filter.Limit)

	rows := make([]models.TopProduct, 0)
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(builder.String()), args...); err != nil {
		return nil, fmt.Errorf("query top products: %w", err)
	}
	return rows, nil
}

// DeviceShare groups ordered line items by the product's device type.
func (r *DashboardRepository) DeviceShare(ctx context.Context, metric models.ShareMetric) ([]models.DeviceShare, error) {
	column, err := metricColumn(metric)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT COALESCE(p.device, '') AS device, COALESCE(SUM(op.%s), 0) AS value
        FROM products p
        JOIN order_products op ON op.product_id = p.product_id
        GROUP BY p.device
        ORDER BY value DESC`, column)

	rows := make([]models.DeviceShare, 0)
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("query device share: %w", err)
	}
	return rows, nil
}

// OrdersByCategory groups ordered line items by product category.
func (r *DashboardRepository) OrdersByCategory(ctx context.Context, metric models.ShareMetric) ([]models.CategoryShare, error) {
	column, err := metricColumn(metric)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT COALESCE(c.category_name, '') AS category_name, COALESCE(SUM(op.%s), 0) AS value
        FROM categories c
        JOIN products p ON p.category_id = c.category_id
        JOIN order_products op ON op.product_id = p.product_id
        GROUP BY c.category_name
        ORDER BY value DESC`, column)

	rows := make([]models.CategoryShare, 0)
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("query orders by category: %w", err)
	}
	return rows, nil
}

// FunnelCounts sums event counts per event category within the optional day range.
func (r *DashboardRepository) FunnelCounts(ctx context.Context, from, to *time.Time) ([]models.FunnelStep, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT COALESCE(event_category, '') AS step, COALESCE(SUM(event_count), 0) AS count
        FROM events
        WHERE 1=1`)
	var args []interface{}
	if from != nil {
		builder.WriteString(" AND event_day >= ?")
		args = append(args, *from)
	}
	if to != nil {
		builder.WriteString(" AND event_day <= ?")
		args = append(args, *to)
	}
	builder.WriteString(" GROUP BY event_category ORDER BY count DESC")

	rows := make([]models.FunnelStep, 0)
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(builder.String()), args...); err != nil {
		return nil, fmt.Errorf("query funnel counts: %w", err)
	}
	return rows, nil
}

// TotalVisits sums every visit source.
func (r *DashboardRepository) TotalVisits(ctx context.Context) (int64, error) {
	var visits int64
	if err := r.db.GetContext(ctx, &visits, `SELECT COALESCE(SUM(visit_count), 0) FROM visit_sources`); err != nil {
		return 0, fmt.Errorf("query total visits: %w", err)
	}
	return visits, nil
}

func metricColumn(metric models.ShareMetric) (string, error) {
	switch metric {
	case models.MetricAmount:
		return "order_product_amount", nil
	case models.MetricCount:
		return "order_product_count", nil
	default:
		return "", fmt.Errorf("unsupported metric %q", metric)
	}
}
