package dto

import "github.com/noah-isme/commerce-dashboard-api/internal/models"

// KPISummaryResponse is the headline card set for the last N days.
type KPISummaryResponse struct {
	Days   int   `json:"days"`
	Sales  int64 `json:"sales"`
	Items  int64 `json:"items"`
	Visits int64 `json:"visits"`
}

type MonthlySalesPoint struct {
	YearMonth string `json:"ym"`
	Sales     int64  `json:"sales"`
}

// TopProductsResponse wraps the ranked product table.
type TopProductsResponse struct {
	Items []models.TopProduct `json:"items"`
	Count int                 `json:"count"`
}

type DeviceShare struct {
	Device string `json:"device"`
	Value  int64  `json:"value"`
}

type CategoryShare struct {
	CategoryName string `json:"category_name"`
	Value        int64  `json:"value"`
}

type FunnelStep struct {
	Step  string `json:"step"`
	Count int64  `json:"count"`
}
