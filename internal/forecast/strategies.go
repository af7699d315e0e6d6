package forecast

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/andresuchdata/autopo-replenish/internal/forecast/stats"
	"github.com/rs/zerolog/log"
)

// directMonthly applies the monthly formula to caller-supplied history.
type directMonthly struct {
	cfg Config
}

func (s *directMonthly) Name() string { return "direct-monthly" }

func (s *directMonthly) Resolve(_ context.Context, req Request) Outcome {
	if len(req.History) == 0 {
		return Outcome{}
	}
	return monthlyFormula(dayValues(req.History), s.cfg, "supplied history", nil)
}

// reconstructedMonthly rebuilds monthly totals from the SKU's daily outbound history.
type reconstructedMonthly struct {
	cfg     Config
	history HistoryLookup
	now     func() time.Time
}

func (s *reconstructedMonthly) Name() string { return "reconstructed-monthly" }

func (s *reconstructedMonthly) Resolve(ctx context.Context, req Request) Outcome {
	if req.SKU == "" || s.history == nil {
		return Outcome{}
	}
	today := truncateDay(s.now())
	lookback, fetchStart := monthlyLookback(today, s.cfg)
	samples, ok := fetchDaily(ctx, s.history, req.SKU, lookback, s.cfg.LookupTimeout)
	if !ok {
		return Outcome{}
	}

	days := make(map[string]float64, len(samples))
	for _, sample := range samples {
		date, ok := NormalizeDate(sample.Date)
		if !ok || sample.Quantity < 0 {
			continue
		}
		days[date] = sample.Quantity
	}

	// The running month and any month the fetch only partly covers would
	// understate demand once divided by the full month length.
	current := monthKey{year: today.Year(), month: today.Month()}
	isLastDay := today.Day() == daysInMonth(today.Year(), today.Month())
	skip := func(k monthKey) bool {
		if k == current && !isLastDay {
			return true
		}
		return time.Date(k.year, k.month, 1, 0, 0, 0, 0, time.UTC).Before(fetchStart)
	}

	return monthlyFormula(days, s.cfg, "outbound history", skip)
}

// monthlyLookback returns the day count to fetch so that the MaxMonths complete
// months before the running month are covered from their first day, together
// with the first day that count reaches.
func monthlyLookback(today time.Time, cfg Config) (int, time.Time) {
	first := time.Date(today.Year(), today.Month()-time.Month(cfg.MaxMonths), 1, 0, 0, 0, 0, time.UTC)
	days := int(today.Sub(first).Hours()/24) + 1
	if cfg.MonthlyLookbackDays > days {
		days = cfg.MonthlyLookbackDays
	}
	return days, today.AddDate(0, 0, -(days - 1))
}

// dailyEWMA smooths the last N calendar days of outbound quantities.
type dailyEWMA struct {
	cfg     Config
	history HistoryLookup
	now     func() time.Time
}

func (s *dailyEWMA) Name() string { return "daily-ewma" }

func (s *dailyEWMA) Resolve(ctx context.Context, req Request) Outcome {
	if req.SKU == "" || s.history == nil {
		return Outcome{}
	}
	window := s.cfg.EWMAWindowDays
	samples, ok := fetchDaily(ctx, s.history, req.SKU, window, s.cfg.LookupTimeout)
	if !ok {
		return Outcome{}
	}

	byDate := make(map[string]float64, len(samples))
	for _, sample := range samples {
		if date, ok := NormalizeDate(sample.Date); ok && sample.Quantity >= 0 {
			byDate[date] = sample.Quantity
		}
	}

	end := truncateDay(s.now())
	start := end.AddDate(0, 0, -(window - 1))
	values := make([]float64, window)
	active := 0
	for i := 0; i < window; i++ {
		values[i] = byDate[start.AddDate(0, 0, i).Format(dayLayout)]
		if values[i] > 0 {
			active++
		}
	}
	if active == 0 {
		return Outcome{}
	}

	smoothed, err := stats.ExponentialSmooth(values, s.cfg.SmoothingAlpha)
	if err != nil {
		return Outcome{}
	}
	std := stats.PopulationStdDev(values)

	label := fmt.Sprintf("%s to %s", start.Format(dayLayout), end.Format(dayLayout))
	estimate := &domain.BaselineEstimate{
		ForecastDemand: stats.RoundNonNegative(smoothed),
		DemandStdDev:   stats.RoundNonNegative(std),
		Method:         domain.MethodDailyEWMA,
		SampleCount:    window,
		WindowLabel:    label,
		RawDailyValues: values,
	}
	note := fmt.Sprintf("%d-day EWMA (alpha %.2f) over %s with %d active days: forecast %d/day, std dev %d.",
		window, s.cfg.SmoothingAlpha, label, active, estimate.ForecastDemand, estimate.DemandStdDev)
	return Outcome{Estimate: estimate, Notes: []string{note}}
}

// categoryPeerMedian borrows the median demand profile of same-category products.
type categoryPeerMedian struct {
	cfg   Config
	peers PeerRegistry
}

func (s *categoryPeerMedian) Name() string { return "category-peer-median" }

func (s *categoryPeerMedian) Resolve(ctx context.Context, req Request) Outcome {
	if req.SKU == "" || s.peers == nil {
		return Outcome{}
	}

	category := ""
	if req.Metrics != nil {
		category = strings.TrimSpace(req.Metrics.Category)
	}
	if category == "" {
		lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
		c, err := s.peers.ProductCategory(lookupCtx, req.SKU)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("sku", req.SKU).Msg("forecast: category lookup failed")
			return Outcome{}
		}
		category = strings.TrimSpace(c)
	}
	if category == "" {
		return Outcome{}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	products, err := s.peers.ListProductsByCategory(lookupCtx, category)
	cancel()
	if err != nil {
		log.Warn().Err(err).Str("sku", req.SKU).Str("category", category).Msg("forecast: peer lookup failed")
		return Outcome{}
	}

	var avgs, stds []float64
	for _, p := range products {
		if strings.EqualFold(p.SKU, req.SKU) {
			continue
		}
		if usable(p.DailyAvg) {
			avgs = append(avgs, *p.DailyAvg)
		}
		if usable(p.DailyStdDev) {
			stds = append(stds, *p.DailyStdDev)
		}
	}

	medianAvg, err := stats.Median(avgs)
	if err != nil {
		return Outcome{}
	}

	spread := s.cfg.PeerStdRatio * medianAvg
	spreadSource := fmt.Sprintf("%.2f x median average", s.cfg.PeerStdRatio)
	if medianStd, err := stats.Median(stds); err == nil {
		spread = medianStd
		spreadSource = "median peer std dev"
	}

	estimate := &domain.BaselineEstimate{
		ForecastDemand: stats.RoundNonNegative(medianAvg),
		DemandStdDev:   stats.RoundNonNegative(spread),
		Method:         domain.MethodCategoryPeerMedian,
		SampleCount:    len(avgs),
		WindowLabel:    fmt.Sprintf("category %s", category),
	}
	note := fmt.Sprintf("Category peer median for %q across %d products: forecast %d/day, std dev %d (%s).",
		category, len(avgs), estimate.ForecastDemand, estimate.DemandStdDev, spreadSource)
	return Outcome{Estimate: estimate, Notes: []string{note}}
}

// metricsFallback uses figures attached directly to the request.
type metricsFallback struct {
	cfg Config
}

func (s *metricsFallback) Name() string { return "metrics-fallback" }

func (s *metricsFallback) Resolve(_ context.Context, req Request) Outcome {
	m := req.Metrics
	if m == nil {
		return Outcome{}
	}

	var forecast float64
	source := ""
	switch {
	case usable(m.DailyAvg):
		forecast, source = *m.DailyAvg, "dailyAvg"
	case usable(m.AvgOutbound7d):
		forecast, source = *m.AvgOutbound7d, "avgOutbound7d"
	default:
		return Outcome{}
	}

	std := s.cfg.PeerStdRatio * forecast
	stdSource := fmt.Sprintf("%.2f x forecast", s.cfg.PeerStdRatio)
	if usable(m.DailyStd) {
		std, stdSource = *m.DailyStd, "dailyStd"
	}

	estimate := &domain.BaselineEstimate{
		ForecastDemand: stats.RoundNonNegative(forecast),
		DemandStdDev:   stats.RoundNonNegative(std),
		Method:         domain.MethodMetricsFallback,
		SampleCount:    1,
		WindowLabel:    "request metrics",
	}
	note := fmt.Sprintf("Metrics fallback using %s: forecast %d/day, std dev %d (%s).",
		source, estimate.ForecastDemand, estimate.DemandStdDev, stdSource)
	return Outcome{Estimate: estimate, Notes: []string{note}}
}

func fetchDaily(ctx context.Context, history HistoryLookup, sku string, days int, timeout time.Duration) ([]domain.DemandSample, bool) {
	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	samples, err := history.DailyHistory(lookupCtx, sku, days)
	if err != nil {
		log.Warn().Err(err).Str("sku", sku).Int("days", days).Msg("forecast: daily history lookup failed")
		return nil, false
	}
	return samples, len(samples) > 0
}

func usable(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) && *v >= 0
}
