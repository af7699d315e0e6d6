// Package forecast resolves a daily demand baseline for a SKU by trying a fixed
// cascade of estimation strategies and keeping the first one that applies.
package forecast

import (
	"context"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
)

// Request is the resolver input for a single SKU.
type Request struct {
	SKU     string
	History []domain.HistoryPoint
	Metrics *domain.RequestMetrics
}

// Outcome is a strategy result. A nil Estimate means the strategy does not apply;
// Notes are kept either way.
type Outcome struct {
	Estimate *domain.BaselineEstimate
	Notes    []string
}

// Applies reports whether the strategy produced an estimate.
func (o Outcome) Applies() bool { return o.Estimate != nil }

// Strategy is one step of the cascade.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, req Request) Outcome
}

// Result is the resolver output. Baseline is nil when every strategy declined.
type Result struct {
	Baseline *domain.BaselineEstimate
	Notes    []string
}

const insufficientDataNote = "Insufficient data to estimate demand: no usable history, peer figures or metrics were found."

// Resolver runs strategies in order and stops at the first estimate.
type Resolver struct {
	strategies []Strategy
}

// NewResolver builds the standard five-step cascade. history and peers may be nil,
// which disables the steps that need them.
func NewResolver(cfg Config, history HistoryLookup, peers PeerRegistry) *Resolver {
	return NewResolverWithClock(cfg, history, peers, time.Now)
}

// NewResolverWithClock is NewResolver with an explicit clock for the day-window steps.
func NewResolverWithClock(cfg Config, history HistoryLookup, peers PeerRegistry, now func() time.Time) *Resolver {
	cfg = cfg.withDefaults()
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		strategies: []Strategy{
			&directMonthly{cfg: cfg},
			&reconstructedMonthly{cfg: cfg, history: history, now: now},
			&dailyEWMA{cfg: cfg, history: history, now: now},
			&categoryPeerMedian{cfg: cfg, peers: peers},
			&metricsFallback{cfg: cfg},
		},
	}
}

// NewResolverWithStrategies runs a custom cascade.
func NewResolverWithStrategies(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Resolve never fails: exhausting the cascade yields a nil Baseline and a note.
func (r *Resolver) Resolve(ctx context.Context, req Request) Result {
	var notes []string
	for _, s := range r.strategies {
		if ctx.Err() != nil {
			break
		}
		out := s.Resolve(ctx, req)
		notes = append(notes, out.Notes...)
		if out.Applies() {
			return Result{Baseline: out.Estimate, Notes: notes}
		}
	}
	return Result{Notes: append(notes, insufficientDataNote)}
}
