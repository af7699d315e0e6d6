// Package advisory validates demand suggestions from the external advisory service
// against the cascade baseline before they are allowed into a recommendation.
package advisory

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

const DefaultThreshold = 0.15

// Service is the external advisory collaborator.
type Service interface {
	RequestAdvisory(ctx context.Context, prompt Prompt) (*domain.AdvisoryCandidate, error)
}

// GuardConfig controls whether the advisory service is consulted and how far its
// demand figures may drift from the baseline.
type GuardConfig struct {
	Enabled   bool
	Threshold float64
	Timeout   time.Duration
}

// Guard accepts or rejects advisory candidates.
type Guard struct {
	service Service
	cfg     GuardConfig
}

func NewGuard(service Service, cfg GuardConfig) *Guard {
	if math.IsNaN(cfg.Threshold) || cfg.Threshold < 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Guard{service: service, cfg: cfg}
}

// Enabled reports whether the guard will consult the advisory service.
func (g *Guard) Enabled() bool {
	return g.cfg.Enabled && g.service != nil
}

// Input is what the guard needs to ask for and judge a candidate.
type Input struct {
	SKU      string
	Baseline *domain.BaselineEstimate
	Metrics  *domain.RequestMetrics
	Notes    []string
}

// Decision is the guard's verdict. Demand fields hold the figures to report.
type Decision struct {
	ForecastDemand      *int
	DemandStdDev        *int
	LeadTimeDays        *int
	ServiceLevelPercent *float64
	Consulted           bool
	Accepted            bool
	MaxDeviation        float64
	Candidate           *domain.AdvisoryCandidate
	Summary             string
	Notes               []string
}

// Apply consults the advisory service (unless disabled) and evaluates its answer.
// Failures never escape: they become a note and the baseline stands.
func (g *Guard) Apply(ctx context.Context, in Input) Decision {
	if !g.Enabled() {
		return Evaluate(in.Baseline, nil, g.cfg.Threshold)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	candidate, err := g.service.RequestAdvisory(callCtx, BuildPrompt(in.SKU, in.Baseline, in.Metrics, in.Notes))
	if err != nil {
		log.Warn().Err(err).Str("sku", in.SKU).Msg("advisory: request failed, keeping baseline")
		d := Evaluate(in.Baseline, nil, g.cfg.Threshold)
		d.Consulted = true
		d.Notes = append(d.Notes, "Advisory service unavailable; the cascade baseline was kept.")
		return d
	}

	d := Evaluate(in.Baseline, candidate, g.cfg.Threshold)
	d.Consulted = true
	return d
}

// Evaluate judges a candidate against a baseline without any I/O.
func Evaluate(baseline *domain.BaselineEstimate, candidate *domain.AdvisoryCandidate, threshold float64) Decision {
	var d Decision
	if baseline != nil {
		d.ForecastDemand = intPtr(baseline.ForecastDemand)
		d.DemandStdDev = intPtr(baseline.DemandStdDev)
	}
	if candidate == nil {
		return d
	}
	d.Candidate = candidate
	d.Summary = strings.TrimSpace(candidate.Summary)

	forecast := roundCandidate(candidate.ForecastDemand)
	std := roundCandidate(candidate.DemandStdDev)

	switch {
	case forecast == nil && std == nil:
	case baseline == nil:
		d.ForecastDemand, d.DemandStdDev = forecast, std
		d.Accepted = true
		d.Notes = append(d.Notes, "No baseline available; advisory demand figures were used as-is.")
	default:
		d.MaxDeviation = maxDeviation(baseline, forecast, std)
		if math.IsInf(d.MaxDeviation, 1) || d.MaxDeviation > threshold {
			d.Notes = append(d.Notes, fmt.Sprintf(
				"Advisory demand rejected: it deviated %s from the %s baseline (limit %.0f%%).",
				formatDeviation(d.MaxDeviation), baseline.Method, threshold*100))
		} else {
			if forecast != nil {
				d.ForecastDemand = forecast
			}
			if std != nil {
				d.DemandStdDev = std
			}
			d.Accepted = true
			d.Notes = append(d.Notes, fmt.Sprintf(
				"Advisory demand accepted: within %s of the %s baseline.",
				formatDeviation(d.MaxDeviation), baseline.Method))
		}
	}

	if lt := candidate.LeadTimeDays; lt != nil && finite(*lt) && *lt >= 0 {
		d.LeadTimeDays = intPtr(domain.ClampLeadTime(*lt))
	}
	if sl := candidate.ServiceLevelPercent; sl != nil && finite(*sl) && *sl > 0 {
		v := domain.ClampServiceLevel(*sl)
		d.ServiceLevelPercent = &v
	}

	for _, n := range candidate.Notes {
		if n = strings.TrimSpace(n); n != "" {
			d.Notes = append(d.Notes, n)
		}
	}
	return d
}

// RelativeDeviation is |candidate - baseline| / |baseline|; 0 when both are zero and
// +Inf when only the baseline is zero.
func RelativeDeviation(candidate, baseline float64) float64 {
	if baseline == 0 {
		if candidate == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(candidate-baseline) / math.Abs(baseline)
}

func maxDeviation(baseline *domain.BaselineEstimate, forecast, std *int) float64 {
	max := 0.0
	if forecast != nil {
		max = math.Max(max, RelativeDeviation(float64(*forecast), float64(baseline.ForecastDemand)))
	}
	if std != nil {
		max = math.Max(max, RelativeDeviation(float64(*std), float64(baseline.DemandStdDev)))
	}
	return max
}

func formatDeviation(dev float64) string {
	if math.IsInf(dev, 1) {
		return "without bound"
	}
	return fmt.Sprintf("%.0f%%", dev*100)
}

func roundCandidate(v *float64) *int {
	if v == nil || !finite(*v) {
		return nil
	}
	return intPtr(stats.RoundNonNegative(*v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func intPtr(v int) *int { return &v }
