package forecast

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/andresuchdata/autopo-replenish/internal/forecast/stats"
)

type monthKey struct {
	year  int
	month time.Month
}

func (k monthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.year, int(k.month))
}

func (k monthKey) before(o monthKey) bool {
	if k.year != o.year {
		return k.year < o.year
	}
	return k.month < o.month
}

// dayValues keeps one value per calendar day; later points overwrite earlier ones.
func dayValues(points []domain.HistoryPoint) map[string]float64 {
	days := make(map[string]float64, len(points))
	for _, p := range points {
		if math.IsNaN(p.Actual) || math.IsInf(p.Actual, 0) || p.Actual < 0 {
			continue
		}
		date, ok := NormalizeDate(p.Date)
		if !ok {
			continue
		}
		days[date] = p.Actual
	}
	return days
}

type monthlyWindow struct {
	months []monthKey
	totals []float64
	rates  []float64
}

// monthlyRates totals days per month and keeps the most recent maxMonths months,
// oldest first. Months matching skip are dropped before the window is cut.
func monthlyRates(days map[string]float64, maxMonths int, skip func(monthKey) bool) monthlyWindow {
	totals := make(map[monthKey]float64)
	for date, qty := range days {
		t, err := time.Parse(dayLayout, date)
		if err != nil {
			continue
		}
		key := monthKey{year: t.Year(), month: t.Month()}
		if skip != nil && skip(key) {
			continue
		}
		totals[key] += qty
	}

	keys := make([]monthKey, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].before(keys[j]) })
	if len(keys) > maxMonths {
		keys = keys[len(keys)-maxMonths:]
	}

	w := monthlyWindow{months: keys}
	for _, k := range keys {
		w.totals = append(w.totals, totals[k])
		w.rates = append(w.rates, totals[k]/float64(daysInMonth(k.year, k.month)))
	}
	return w
}

// monthlyFormula applies the direct monthly formula to a set of day values.
func monthlyFormula(days map[string]float64, cfg Config, source string, skip func(monthKey) bool) Outcome {
	w := monthlyRates(days, cfg.MaxMonths, skip)
	if len(w.months) < cfg.MinMonths {
		return Outcome{}
	}

	mean, err := stats.Mean(w.rates)
	if err != nil {
		return Outcome{}
	}
	std := stats.PopulationStdDev(w.rates)

	method := domain.MethodFormulaMonthly
	if len(w.months) < cfg.MaxMonths {
		method = domain.MethodFormulaMonthlyPartial
	}

	label := fmt.Sprintf("%s to %s", w.months[0], w.months[len(w.months)-1])
	estimate := &domain.BaselineEstimate{
		ForecastDemand: stats.RoundNonNegative(mean),
		DemandStdDev:   stats.RoundNonNegative(std),
		Method:         method,
		SampleCount:    len(w.months),
		WindowLabel:    label,
		RawDailyValues: w.rates,
	}

	rates := make([]string, len(w.rates))
	for i, r := range w.rates {
		rates[i] = fmt.Sprintf("%s=%.2f", w.months[i], r)
	}
	note := fmt.Sprintf("Monthly formula from %s over %s (%d months): daily rates %s; forecast %d/day, std dev %d.",
		source, label, len(w.months), strings.Join(rates, ", "), estimate.ForecastDemand, estimate.DemandStdDev)
	return Outcome{Estimate: estimate, Notes: []string{note}}
}
