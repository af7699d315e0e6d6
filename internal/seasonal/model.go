// Package seasonal fits an additive Holt-Winters model to weekly demand and
// summarizes weekly history for the weekly reorder calculation.
package seasonal

import (
	"errors"
	"math"

	"github.com/andresuchdata/autopo-replenish/internal/forecast/stats"
)

const (
	DefaultAlpha          = 0.3
	DefaultBeta           = 0.1
	DefaultGamma          = 0.2
	DefaultSeasonalPeriod = 4
	DefaultHorizon        = 4
)

var ErrNoHistory = errors.New("seasonal: no weekly history")

// Params controls the smoothing weights. Zero values take the package defaults.
type Params struct {
	Alpha          float64
	Beta           float64
	Gamma          float64
	SeasonalPeriod int
	Horizon        int
}

// Forecast is the fitted timeline followed by Horizon projected weeks.
type Forecast struct {
	Timeline                 []float64 `json:"timeline" yaml:"timeline"`
	MeanAbsolutePercentError float64   `json:"mean_absolute_percent_error" yaml:"mean_absolute_percent_error"`
	SeasonalFactors          []float64 `json:"seasonal_factors,omitempty" yaml:"seasonal_factors,omitempty"`
	Seasonal                 bool      `json:"seasonal" yaml:"seasonal"`
}

// Summary is the statistics the weekly calculator needs.
type Summary struct {
	Mean       float64 `json:"mean" yaml:"mean"`
	StdDev     float64 `json:"std_dev" yaml:"std_dev"`
	SampleSize int     `json:"sample_size" yaml:"sample_size"`
}

type Model struct{}

func NewModel() *Model {
	return &Model{}
}

func (p Params) withDefaults() Params {
	if !validWeight(p.Alpha) {
		p.Alpha = DefaultAlpha
	}
	if !validWeight(p.Beta) {
		p.Beta = DefaultBeta
	}
	if !validWeight(p.Gamma) {
		p.Gamma = DefaultGamma
	}
	if p.SeasonalPeriod < 2 {
		p.SeasonalPeriod = DefaultSeasonalPeriod
	}
	if p.Horizon <= 0 {
		p.Horizon = DefaultHorizon
	}
	return p
}

func validWeight(w float64) bool {
	return w > 0 && w <= 1
}

// BuildWeeklyForecast fits the model to history (oldest first). With fewer than
// two full seasons it falls back to simple exponential smoothing and a flat
// projection.
func (m *Model) BuildWeeklyForecast(history []float64, params Params) (Forecast, error) {
	values := sanitize(history)
	if len(values) == 0 {
		return Forecast{}, ErrNoHistory
	}
	p := params.withDefaults()

	if len(values) < 2*p.SeasonalPeriod {
		return simpleForecast(values, p), nil
	}
	return holtWinters(values, p), nil
}

func simpleForecast(values []float64, p Params) Forecast {
	fitted := make([]float64, len(values))
	level := values[0]
	for i, v := range values {
		fitted[i] = level
		level = p.Alpha*v + (1-p.Alpha)*level
	}
	timeline := append(fitted, repeat(math.Max(level, 0), p.Horizon)...)
	return Forecast{
		Timeline:                 timeline,
		MeanAbsolutePercentError: mape(values, fitted),
	}
}

func holtWinters(values []float64, p Params) Forecast {
	period := p.SeasonalPeriod

	first, _ := stats.Mean(values[:period])
	second, _ := stats.Mean(values[period : 2*period])
	level := first
	trend := (second - first) / float64(period)

	season := make([]float64, period)
	for i := 0; i < period; i++ {
		season[i] = values[i] - first
	}

	fitted := make([]float64, len(values))
	for t, v := range values {
		s := season[t%period]
		fitted[t] = level + trend + s

		prevLevel := level
		level = p.Alpha*(v-s) + (1-p.Alpha)*(level+trend)
		trend = p.Beta*(level-prevLevel) + (1-p.Beta)*trend
		season[t%period] = p.Gamma*(v-level) + (1-p.Gamma)*s
	}

	timeline := append([]float64(nil), fitted...)
	n := len(values)
	for h := 1; h <= p.Horizon; h++ {
		projected := level + float64(h)*trend + season[(n+h-1)%period]
		timeline = append(timeline, math.Max(projected, 0))
	}

	factors := make([]float64, period)
	for i := range factors {
		factors[i] = season[(n+i)%period]
	}

	return Forecast{
		Timeline:                 timeline,
		MeanAbsolutePercentError: mape(values, fitted),
		SeasonalFactors:          factors,
		Seasonal:                 true,
	}
}

// Summarize returns mean, population std dev and count of non-negative finite weeks.
func Summarize(history []float64) Summary {
	values := sanitize(history)
	if len(values) == 0 {
		return Summary{}
	}
	mean, _ := stats.Mean(values)
	return Summary{
		Mean:       mean,
		StdDev:     stats.PopulationStdDev(values),
		SampleSize: len(values),
	}
}

// mape skips weeks with zero actual demand.
func mape(actual, fitted []float64) float64 {
	var sum float64
	var n int
	for i, a := range actual {
		if a == 0 {
			continue
		}
		sum += math.Abs((a - fitted[i]) / a)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n) * 100
}

func sanitize(history []float64) []float64 {
	out := make([]float64, 0, len(history))
	for _, v := range history {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
