// Package recommendation assembles the baseline cascade, the advisory guard and
// the replenishment calculator into one recommendation per SKU.
package recommendation

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/advisory"
	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/andresuchdata/autopo-replenish/internal/forecast"
	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
	"github.com/andresuchdata/autopo-replenish/internal/seasonal"
)

// BaselineResolver produces the cascade baseline.
type BaselineResolver interface {
	Resolve(ctx context.Context, req forecast.Request) forecast.Result
}

// AdvisoryGuard blends in an advisory candidate when it is plausible.
type AdvisoryGuard interface {
	Apply(ctx context.Context, in advisory.Input) advisory.Decision
}

// Config carries the fallbacks and constants applied during assembly.
type Config struct {
	DefaultLeadTimeDays int
	DefaultServiceLevel float64
	SmoothingAlpha      float64
	CorrelationRho      float64
	BatchConcurrency    int
	WeeklyLookbackDays  int
	LookupTimeout       time.Duration
	Seasonal            seasonal.Params
}

func DefaultConfig() Config {
	return Config{
		DefaultLeadTimeDays: 7,
		DefaultServiceLevel: 95,
		SmoothingAlpha:      0.4,
		BatchConcurrency:    4,
		WeeklyLookbackDays:  364,
		LookupTimeout:       3 * time.Second,
		Seasonal: seasonal.Params{
			Alpha:          seasonal.DefaultAlpha,
			Beta:           seasonal.DefaultBeta,
			Gamma:          seasonal.DefaultGamma,
			SeasonalPeriod: seasonal.DefaultSeasonalPeriod,
			Horizon:        seasonal.DefaultHorizon,
		},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultLeadTimeDays < 0 {
		c.DefaultLeadTimeDays = d.DefaultLeadTimeDays
	}
	if !(c.DefaultServiceLevel > 0) {
		c.DefaultServiceLevel = d.DefaultServiceLevel
	}
	if !(c.SmoothingAlpha > 0 && c.SmoothingAlpha <= 1) {
		c.SmoothingAlpha = d.SmoothingAlpha
	}
	if math.IsNaN(c.CorrelationRho) || c.CorrelationRho < 0 || c.CorrelationRho >= 1 {
		c.CorrelationRho = 0
	}
	if c.BatchConcurrency <= 0 {
		c.BatchConcurrency = d.BatchConcurrency
	}
	if c.WeeklyLookbackDays <= 0 {
		c.WeeklyLookbackDays = d.WeeklyLookbackDays
	}
	if c.LookupTimeout <= 0 {
		c.LookupTimeout = d.LookupTimeout
	}
	return c
}

type Service struct {
	resolver BaselineResolver
	guard    AdvisoryGuard
	history  forecast.HistoryLookup
	policies PolicyStore
	plans    PlanCreator
	model    *seasonal.Model
	cfg      Config
}

// NewService wires the assembly pipeline. A nil guard disables the advisory step.
func NewService(resolver BaselineResolver, guard AdvisoryGuard, cfg Config) *Service {
	if guard == nil {
		guard = advisory.NewGuard(nil, advisory.GuardConfig{})
	}
	return &Service{
		resolver: resolver,
		guard:    guard,
		model:    seasonal.NewModel(),
		cfg:      cfg.withDefaults(),
	}
}

// WithHistory enables weekly figures in Evaluate.
func (s *Service) WithHistory(history forecast.HistoryLookup) *Service {
	s.history = history
	return s
}

// WithPolicyStore enables policy draft upserts in Evaluate.
func (s *Service) WithPolicyStore(store PolicyStore) *Service {
	s.policies = store
	return s
}

// WithPlans enables action plan creation in Evaluate.
func (s *Service) WithPlans(plans PlanCreator) *Service {
	s.plans = plans
	return s
}

// ResolveRecommendation returns demand figures, lead time, service level and notes
// for a SKU. Only malformed input is reported as an error.
func (s *Service) ResolveRecommendation(ctx context.Context, sku string, history []domain.HistoryPoint, metrics *domain.RequestMetrics) (*domain.RecommendationResult, error) {
	result, _, err := s.resolve(ctx, sku, history, metrics)
	return result, err
}

// ComputeReplenishment derives stocking thresholds from an accepted estimate.
func (s *Service) ComputeReplenishment(estimate domain.DemandEstimate, policy domain.Policy, stock domain.StockState) domain.ReplenishmentMetrics {
	return replenishment.Compute(estimate, policy, stock)
}

func (s *Service) resolve(ctx context.Context, sku string, history []domain.HistoryPoint, metrics *domain.RequestMetrics) (*domain.RecommendationResult, advisory.Decision, error) {
	sku = strings.TrimSpace(sku)
	if err := validate(sku, history, metrics); err != nil {
		return nil, advisory.Decision{}, err
	}

	res := s.resolver.Resolve(ctx, forecast.Request{SKU: sku, History: history, Metrics: metrics})
	decision := s.guard.Apply(ctx, advisory.Input{
		SKU:      sku,
		Baseline: res.Baseline,
		Metrics:  metrics,
		Notes:    res.Notes,
	})

	result := &domain.RecommendationResult{
		SKU:                 sku,
		ForecastDemand:      decision.ForecastDemand,
		DemandStdDev:        decision.DemandStdDev,
		LeadTimeDays:        s.leadTime(decision, metrics),
		ServiceLevelPercent: s.serviceLevel(decision, metrics),
		Baseline:            res.Baseline,
		AdvisoryApplied:     decision.Accepted,
		RawSummary:          decision.Summary,
	}
	if res.Baseline != nil {
		result.Method = res.Baseline.Method
	}
	result.Notes = dedupeNotes(append(append([]string{}, res.Notes...), decision.Notes...))
	return result, decision, nil
}

func (s *Service) leadTime(d advisory.Decision, metrics *domain.RequestMetrics) int {
	if d.LeadTimeDays != nil {
		return *d.LeadTimeDays
	}
	if metrics != nil && metrics.LeadTimeDays != nil {
		return domain.ClampLeadTime(*metrics.LeadTimeDays)
	}
	return s.cfg.DefaultLeadTimeDays
}

func (s *Service) serviceLevel(d advisory.Decision, metrics *domain.RequestMetrics) float64 {
	if d.ServiceLevelPercent != nil {
		return *d.ServiceLevelPercent
	}
	if metrics != nil && metrics.ServiceLevelPercent != nil && *metrics.ServiceLevelPercent > 0 {
		return domain.ClampServiceLevel(*metrics.ServiceLevelPercent)
	}
	return domain.ClampServiceLevel(s.cfg.DefaultServiceLevel)
}

// dedupeNotes keeps the first occurrence of each trimmed, non-empty note.
func dedupeNotes(notes []string) []string {
	seen := make(map[string]struct{}, len(notes))
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
