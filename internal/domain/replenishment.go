package domain

// DemandEstimate is the demand input of the replenishment calculator.
type DemandEstimate struct {
	AvgDailyDemand float64 `json:"avg_daily_demand" yaml:"avg_daily_demand"`
	DemandStdDev   float64 `json:"demand_std_dev" yaml:"demand_std_dev"`
}

// Policy holds the stocking parameters applied to a demand estimate.
type Policy struct {
	LeadTimeDays           float64 `json:"lead_time_days" yaml:"lead_time_days"`
	ServiceLevelZ          float64 `json:"service_level_z" yaml:"service_level_z"`
	CorrelationRho         float64 `json:"correlation_rho" yaml:"correlation_rho"`
	ConfiguredReorderPoint int     `json:"configured_reorder_point" yaml:"configured_reorder_point"`
}

// StockState is the current physical position of a SKU.
type StockState struct {
	OnHand   float64 `json:"on_hand" yaml:"on_hand"`
	Reserved float64 `json:"reserved" yaml:"reserved"`
}

// ReplenishmentMetrics are derived fresh on every request.
type ReplenishmentMetrics struct {
	SafetyStock              int `json:"safety_stock" yaml:"safety_stock"`
	ReorderPoint             int `json:"reorder_point" yaml:"reorder_point"`
	RecommendedOrderQuantity int `json:"recommended_order_quantity" yaml:"recommended_order_quantity"`
	AvailableStock           int `json:"available_stock" yaml:"available_stock"`
}

// WeeklyReplenishment mirrors ReplenishmentMetrics on a weekly grain. When
// Computable is false the lead time was zero weeks and the reorder figures are unset.
type WeeklyReplenishment struct {
	Computable               bool    `json:"computable" yaml:"computable"`
	LeadTimeWeeks            float64 `json:"lead_time_weeks" yaml:"lead_time_weeks"`
	AvgWeeklyDemand          float64 `json:"avg_weekly_demand" yaml:"avg_weekly_demand"`
	WeeklyStdDev             float64 `json:"weekly_std_dev" yaml:"weekly_std_dev"`
	SampleSize               int     `json:"sample_size" yaml:"sample_size"`
	ReorderPoint             *int    `json:"reorder_point" yaml:"reorder_point"`
	RecommendedOrderQuantity *int    `json:"recommended_order_quantity" yaml:"recommended_order_quantity"`
	AvailableStock           int     `json:"available_stock" yaml:"available_stock"`
}
