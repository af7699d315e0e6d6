package domain

// Method identifies which cascade strategy produced a baseline.
type Method string

const (
	MethodFormulaMonthly        Method = "formula-monthly"
	MethodFormulaMonthlyPartial Method = "formula-monthly-partial"
	MethodDailyEWMA             Method = "daily-ewma"
	MethodCategoryPeerMedian    Method = "category-peer-median"
	MethodMetricsFallback       Method = "metrics-fallback"
)

// HistoryPoint is a caller-supplied observation. Date may be a day or a month anchor.
type HistoryPoint struct {
	Date   string  `json:"date" yaml:"date"`
	Actual float64 `json:"actual" yaml:"actual"`
}

// DemandSample is one day of outbound quantity keyed by a YYYY-MM-DD date.
type DemandSample struct {
	Date     string  `json:"date" db:"date"`
	Quantity float64 `json:"outbound_quantity" db:"quantity"`
}

// WeeklySample is one week of outbound quantity keyed by the week's Monday.
type WeeklySample struct {
	WeekStart string  `json:"week_start"`
	Quantity  float64 `json:"outbound_quantity"`
}

// PeerProduct is a registered product's demand profile used for category medians.
type PeerProduct struct {
	SKU         string   `json:"sku" db:"sku"`
	DailyAvg    *float64 `json:"daily_avg" db:"daily_avg"`
	DailyStdDev *float64 `json:"daily_std_dev" db:"daily_std_dev"`
}

// BaselineEstimate is the output of the baseline cascade.
type BaselineEstimate struct {
	ForecastDemand int       `json:"forecast_demand" yaml:"forecast_demand"`
	DemandStdDev   int       `json:"demand_std_dev" yaml:"demand_std_dev"`
	Method         Method    `json:"method" yaml:"method"`
	SampleCount    int       `json:"sample_count" yaml:"sample_count"`
	WindowLabel    string    `json:"window_label" yaml:"window_label"`
	RawDailyValues []float64 `json:"raw_daily_values" yaml:"raw_daily_values"`
}

// RequestMetrics are optional figures a caller may attach to a recommendation request.
type RequestMetrics struct {
	DailyAvg            *float64 `json:"daily_avg,omitempty" yaml:"daily_avg,omitempty"`
	AvgOutbound7d       *float64 `json:"avg_outbound_7d,omitempty" yaml:"avg_outbound_7d,omitempty"`
	DailyStd            *float64 `json:"daily_std,omitempty" yaml:"daily_std,omitempty"`
	LeadTimeDays        *float64 `json:"lead_time_days,omitempty" yaml:"lead_time_days,omitempty"`
	ServiceLevelPercent *float64 `json:"service_level_percent,omitempty" yaml:"service_level_percent,omitempty"`
	Category            string   `json:"category,omitempty" yaml:"category,omitempty"`
	ProductName         string   `json:"product_name,omitempty" yaml:"product_name,omitempty"`
}

// AdvisoryCandidate is an untrusted suggestion from the external advisory service.
type AdvisoryCandidate struct {
	ForecastDemand      *float64     `json:"forecast_demand"`
	DemandStdDev        *float64     `json:"demand_std_dev"`
	LeadTimeDays        *float64     `json:"lead_time_days"`
	ServiceLevelPercent *float64     `json:"service_level_percent"`
	Notes               []string     `json:"notes"`
	Summary             string       `json:"summary"`
	Actions             []ActionItem `json:"actions,omitempty"`
}

// RecommendationResult is what the recommendation service hands back to callers.
type RecommendationResult struct {
	SKU                 string            `json:"sku" yaml:"sku"`
	ForecastDemand      *int              `json:"forecast_demand" yaml:"forecast_demand"`
	DemandStdDev        *int              `json:"demand_std_dev" yaml:"demand_std_dev"`
	LeadTimeDays        int               `json:"lead_time_days" yaml:"lead_time_days"`
	ServiceLevelPercent float64           `json:"service_level_percent" yaml:"service_level_percent"`
	Method              Method            `json:"method,omitempty" yaml:"method,omitempty"`
	Baseline            *BaselineEstimate `json:"baseline,omitempty" yaml:"baseline,omitempty"`
	AdvisoryApplied     bool              `json:"advisory_applied" yaml:"advisory_applied"`
	Notes               []string          `json:"notes" yaml:"notes"`
	RawSummary          string            `json:"raw_summary,omitempty" yaml:"raw_summary,omitempty"`
}

// Product is a registered SKU with its stored demand profile.
type Product struct {
	SKU         string   `json:"sku" yaml:"sku" db:"sku"`
	Name        string   `json:"name" yaml:"name" db:"name"`
	Category    string   `json:"category" yaml:"category" db:"category"`
	DailyAvg    *float64 `json:"daily_avg,omitempty" yaml:"daily_avg,omitempty" db:"daily_avg"`
	DailyStdDev *float64 `json:"daily_std_dev,omitempty" yaml:"daily_std_dev,omitempty" db:"daily_std_dev"`
}

// Movement is one recorded outbound quantity for a SKU on a day.
type Movement struct {
	SKU      string  `json:"sku" yaml:"sku"`
	Date     string  `json:"date" yaml:"date"`
	Quantity float64 `json:"quantity" yaml:"quantity"`
}
