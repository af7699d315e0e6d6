package domain

import (
	"math"
	"time"
)

const (
	ServiceLevelMin = 50.0
	ServiceLevelMax = 99.9
)

// PolicyDraft is the per-SKU stocking configuration persisted by the policy store.
type PolicyDraft struct {
	SKU                 string    `json:"sku" db:"sku"`
	ProductName         string    `json:"product_name" db:"product_name"`
	ForecastDemand      *int      `json:"forecast_demand" db:"forecast_demand"`
	DemandStdDev        *int      `json:"demand_std_dev" db:"demand_std_dev"`
	LeadTimeDays        int       `json:"lead_time_days" db:"lead_time_days"`
	ServiceLevelPercent float64   `json:"service_level_percent" db:"service_level_percent"`
	SmoothingAlpha      float64   `json:"smoothing_alpha" db:"smoothing_alpha"`
	CorrelationRho      float64   `json:"correlation_rho" db:"correlation_rho"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// Normalize applies the draft invariants in place.
func (d *PolicyDraft) Normalize() {
	d.LeadTimeDays = ClampLeadTime(float64(d.LeadTimeDays))
	d.ServiceLevelPercent = ClampServiceLevel(d.ServiceLevelPercent)
}

// ClampLeadTime rounds a lead time to a non-negative whole number of days.
func ClampLeadTime(days float64) int {
	if math.IsNaN(days) || days <= 0 {
		return 0
	}
	if math.IsInf(days, 1) {
		return math.MaxInt32
	}
	return int(math.Floor(days + 0.5))
}

// ClampServiceLevel bounds a service level percentage to [50, 99.9] with one decimal.
func ClampServiceLevel(percent float64) float64 {
	if math.IsNaN(percent) {
		return ServiceLevelMin
	}
	p := math.Max(ServiceLevelMin, math.Min(ServiceLevelMax, percent))
	return math.Round(p*10) / 10
}
