package recommendation

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/andresuchdata/autopo-replenish/internal/actionplan"
	"github.com/andresuchdata/autopo-replenish/internal/advisory"
	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
	"github.com/andresuchdata/autopo-replenish/internal/seasonal"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// PolicyStore persists the per-SKU policy draft.
type PolicyStore interface {
	UpsertDraft(ctx context.Context, draft *domain.PolicyDraft) (*domain.PolicyDraft, error)
}

// PlanCreator stores a new action plan.
type PlanCreator interface {
	Create(ctx context.Context, in actionplan.NewPlan) (*domain.ActionPlan, error)
}

// EvaluateRequest is the input of a full evaluation.
type EvaluateRequest struct {
	SKU                    string                 `json:"sku" yaml:"sku"`
	History                []domain.HistoryPoint  `json:"history,omitempty" yaml:"history,omitempty"`
	Metrics                *domain.RequestMetrics `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Stock                  domain.StockState      `json:"stock" yaml:"stock"`
	ConfiguredReorderPoint int                    `json:"configured_reorder_point,omitempty" yaml:"configured_reorder_point,omitempty"`
	ProductID              string                 `json:"product_id,omitempty" yaml:"product_id,omitempty"`
	CreatedBy              string                 `json:"created_by,omitempty" yaml:"created_by,omitempty"`
}

// Evaluation bundles everything produced for one SKU.
type Evaluation struct {
	Recommendation *domain.RecommendationResult `json:"recommendation" yaml:"recommendation"`
	Daily          *domain.ReplenishmentMetrics `json:"daily,omitempty" yaml:"daily,omitempty"`
	Weekly         *domain.WeeklyReplenishment  `json:"weekly,omitempty" yaml:"weekly,omitempty"`
	WeeklyForecast *seasonal.Forecast           `json:"weekly_forecast,omitempty" yaml:"weekly_forecast,omitempty"`
	Policy         *domain.PolicyDraft          `json:"policy,omitempty" yaml:"policy,omitempty"`
	Plan           *domain.ActionPlan           `json:"plan,omitempty" yaml:"plan,omitempty"`
}

// BatchResult is one SKU's outcome inside EvaluateBatch.
type BatchResult struct {
	SKU        string      `json:"sku" yaml:"sku"`
	Evaluation *Evaluation `json:"evaluation,omitempty" yaml:"evaluation,omitempty"`
	Error      string      `json:"error,omitempty" yaml:"error,omitempty"`
}

// Evaluate runs the recommendation, persists the policy draft, derives daily and
// weekly replenishment figures and opens an action plan when there is something
// to act on.
func (s *Service) Evaluate(ctx context.Context, req EvaluateRequest) (*Evaluation, error) {
	if err := validateStock(req.Stock); err != nil {
		return nil, err
	}
	rec, decision, err := s.resolve(ctx, req.SKU, req.History, req.Metrics)
	if err != nil {
		return nil, err
	}

	eval := &Evaluation{Recommendation: rec}
	z := replenishment.ZForServiceLevel(rec.ServiceLevelPercent)

	if rec.ForecastDemand != nil {
		estimate := domain.DemandEstimate{AvgDailyDemand: float64(*rec.ForecastDemand)}
		if rec.DemandStdDev != nil {
			estimate.DemandStdDev = float64(*rec.DemandStdDev)
		}
		daily := replenishment.Compute(estimate, domain.Policy{
			LeadTimeDays:           float64(rec.LeadTimeDays),
			ServiceLevelZ:          z,
			CorrelationRho:         s.cfg.CorrelationRho,
			ConfiguredReorderPoint: req.ConfiguredReorderPoint,
		}, req.Stock)
		eval.Daily = &daily
	}

	s.weekly(ctx, rec, z, req.Stock, eval)

	if s.policies != nil {
		draft := &domain.PolicyDraft{
			SKU:                 rec.SKU,
			ForecastDemand:      rec.ForecastDemand,
			DemandStdDev:        rec.DemandStdDev,
			LeadTimeDays:        rec.LeadTimeDays,
			ServiceLevelPercent: rec.ServiceLevelPercent,
			SmoothingAlpha:      s.cfg.SmoothingAlpha,
			CorrelationRho:      s.cfg.CorrelationRho,
		}
		if req.Metrics != nil {
			draft.ProductName = req.Metrics.ProductName
		}
		draft.Normalize()
		saved, err := s.policies.UpsertDraft(ctx, draft)
		if err != nil {
			return nil, fmt.Errorf("failed to save policy draft for %s: %w", rec.SKU, err)
		}
		eval.Policy = saved
	}

	if s.plans != nil {
		items, source := decisionItems(decision), domain.PlanSourceLLM
		if len(items) == 0 {
			items, source = BuildActionItems(rec, eval.Daily), domain.PlanSourceManual
		}
		if len(items) > 0 {
			plan, err := s.plans.Create(ctx, actionplan.NewPlan{
				SKU:       rec.SKU,
				ProductID: req.ProductID,
				Items:     items,
				Source:    source,
				CreatedBy: req.CreatedBy,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create action plan for %s: %w", rec.SKU, err)
			}
			eval.Plan = plan
		}
	}

	return eval, nil
}

func (s *Service) weekly(ctx context.Context, rec *domain.RecommendationResult, z float64, stock domain.StockState, eval *Evaluation) {
	if s.history == nil {
		return
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()
	samples, err := s.history.WeeklyHistory(lookupCtx, rec.SKU, s.cfg.WeeklyLookbackDays)
	if err != nil {
		log.Warn().Err(err).Str("sku", rec.SKU).Msg("weekly history lookup failed")
		return
	}

	quantities := make([]float64, 0, len(samples))
	for _, w := range samples {
		quantities = append(quantities, w.Quantity)
	}
	fc, err := s.model.BuildWeeklyForecast(quantities, s.cfg.Seasonal)
	if err != nil {
		return
	}

	summary := seasonal.Summarize(quantities)
	weekly := replenishment.ComputeWeekly(replenishment.WeeklyInput{
		AvgWeeklyDemand: summary.Mean,
		WeeklyStdDev:    summary.StdDev,
		SampleSize:      summary.SampleSize,
	}, float64(rec.LeadTimeDays), z, stock)

	eval.WeeklyForecast = &fc
	eval.Weekly = &weekly
	if !weekly.Computable {
		rec.Notes = append(rec.Notes, "Weekly reorder point not computable: lead time is zero weeks.")
	}
}

// EvaluateBatch evaluates each request independently with bounded concurrency.
// Results keep the order of reqs.
func (s *Service) EvaluateBatch(ctx context.Context, reqs []EvaluateRequest) []BatchResult {
	results := make([]BatchResult, len(reqs))

	var g errgroup.Group
	g.SetLimit(s.cfg.BatchConcurrency)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			results[i].SKU = req.SKU
			if err := ctx.Err(); err != nil {
				results[i].Error = err.Error()
				return nil
			}
			eval, err := s.Evaluate(ctx, req)
			if err != nil {
				log.Error().Err(err).Str("sku", req.SKU).Msg("batch evaluation failed")
				results[i].Error = err.Error()
				return nil
			}
			results[i].Evaluation = eval
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func decisionItems(d advisory.Decision) []domain.ActionItem {
	if d.Candidate == nil || !d.Accepted {
		return nil
	}

	// Advisory actions are untrusted: blank ones are dropped and confidence is
	// clamped into [0, 1].
	items := make([]domain.ActionItem, 0, len(d.Candidate.Actions))
	for _, item := range d.Candidate.Actions {
		item.What = strings.TrimSpace(item.What)
		if item.What == "" {
			continue
		}
		switch {
		case math.IsNaN(item.Confidence) || item.Confidence < 0:
			item.Confidence = 0
		case item.Confidence > 1:
			item.Confidence = 1
		}
		items = append(items, item)
	}
	return items
}
