package models

import "time"

// ShareMetric selects which line item column a breakdown sums.
type ShareMetric string

const (
	MetricAmount ShareMetric = "amount"
	MetricCount  ShareMetric = "count"
)

// Valid reports whether m is a supported metric.
func (m ShareMetric) Valid() bool {
	return m == MetricAmount || m == MetricCount
}

// KPITotals holds the headline numbers for a date window.
type KPITotals struct {
	Sales  int64 `db:"sales"`
	Items  int64 `db:"items"`
	Visits int64 `db:"visits"`
}

// MonthlySales is the rounded sales sum of one calendar month.
type MonthlySales struct {
	YearMonth string `db:"ym" json:"ym"`
	Sales     int64  `db:"sales" json:"sales"`
}

// TopProductsFilter scopes the top products ranking. Nil bounds are not applied.
type TopProductsFilter struct {
	Limit      int
	From       *time.Time
	To         *time.Time
	CategoryID *int64
}

// TopProduct is one ranked product with its order totals.
type TopProduct struct {
	ProductID     int64      `db:"product_id" json:"product_id"`
	ProductCode   string     `db:"product_code" json:"product_code"`
	ProductName   string     `db:"product_name" json:"product_name"`
	Device        string     `db:"device" json:"device"`
	TotalQty      int64      `db:"total_qty" json:"total_qty"`
	TotalSales    int64      `db:"total_sales" json:"total_sales"`
	LastOrderDate *time.Time `db:"last_order_date" json:"last_order_date"`
}

// DeviceShare is the metric total for one device type.
type DeviceShare struct {
	Device string `db:"device" json:"device"`
	Value  int64  `db:"value" json:"value"`
}

// CategoryShare is the metric total for one product category.
type CategoryShare struct {
	CategoryName string `db:"category_name" json:"category_name"`
	Value        int64  `db:"value" json:"value"`
}

// FunnelStep is the summed event count of one event category.
type FunnelStep struct {
	Step  string `db:"step" json:"step"`
	Count int64  `db:"count" json:"count"`
}

// SystemMetrics is a point-in-time view of process instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
