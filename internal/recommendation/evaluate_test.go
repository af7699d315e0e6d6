package recommendation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/andresuchdata/autopo-replenish/internal/actionplan"
	"github.com/andresuchdata/autopo-replenish/internal/advisory"
	"github.com/andresuchdata/autopo-replenish/internal/domain"
)

func flatWeeks(n int, qty float64) []domain.WeeklySample {
	out := make([]domain.WeeklySample, n)
	for i := range out {
		out[i] = domain.WeeklySample{WeekStart: "2024-11-04", Quantity: qty}
	}
	return out
}

func TestEvaluate_FullPipeline(t *testing.T) {
	ctx := context.Background()
	policies := &fakePolicies{}
	plans := actionplan.NewService(actionplan.NewMemoryStore(), nil)
	svc := NewService(stubResolver{monthlyBaseline()}, nil, DefaultConfig()).
		WithHistory(&fakeHistory{weekly: flatWeeks(8, 700)}).
		WithPolicyStore(policies).
		WithPlans(plans)

	got, err := svc.Evaluate(ctx, EvaluateRequest{
		SKU:     "SKU-1",
		Metrics: &domain.RequestMetrics{LeadTimeDays: ptr(9.0), ProductName: "Blue Mug"},
		Stock:   domain.StockState{OnHand: 500, Reserved: 50},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	// z(95%) = 1.6449; SS = round(1.6449 * 10 * 3) = 49; ROP = 900 + 49.
	want := domain.ReplenishmentMetrics{SafetyStock: 49, ReorderPoint: 949, RecommendedOrderQuantity: 499, AvailableStock: 450}
	if got.Daily == nil || *got.Daily != want {
		t.Errorf("Daily = %+v, want %+v", got.Daily, want)
	}

	if got.Weekly == nil || !got.Weekly.Computable {
		t.Fatalf("Weekly = %+v, want computable figures", got.Weekly)
	}
	if got.Weekly.SampleSize != 8 || *got.Weekly.ReorderPoint != 900 || *got.Weekly.RecommendedOrderQuantity != 450 {
		t.Errorf("Weekly = %+v", got.Weekly)
	}
	if got.WeeklyForecast == nil {
		t.Error("expected the weekly forecast to be attached")
	}

	draft, ok := policies.drafts["SKU-1"]
	if !ok {
		t.Fatal("policy draft was not saved")
	}
	if draft.ProductName != "Blue Mug" || draft.LeadTimeDays != 9 || draft.ServiceLevelPercent != 95 || *draft.ForecastDemand != 100 {
		t.Errorf("draft = %+v", draft)
	}

	if got.Plan == nil {
		t.Fatal("expected an action plan")
	}
	if got.Plan.Source != domain.PlanSourceManual || got.Plan.Status != domain.PlanStatusDraft {
		t.Errorf("plan = %s / %s, want manual draft", got.Plan.Source, got.Plan.Status)
	}
	if !strings.Contains(got.Plan.Items[0].What, "499 units") {
		t.Errorf("first item = %q", got.Plan.Items[0].What)
	}
}

func TestEvaluate_AdvisoryActionsBecomeLLMPlan(t *testing.T) {
	advisor := &fakeAdvisor{candidate: &domain.AdvisoryCandidate{
		ForecastDemand: ptr(101.0),
		Actions:        []domain.ActionItem{{Who: "buyer", What: "Split the order across two suppliers", Confidence: 0.7}},
	}}
	guard := advisory.NewGuard(advisor, advisory.GuardConfig{Enabled: true})
	svc := NewService(stubResolver{monthlyBaseline()}, guard, DefaultConfig()).
		WithPlans(actionplan.NewService(actionplan.NewMemoryStore(), nil))

	got, err := svc.Evaluate(context.Background(), EvaluateRequest{SKU: "SKU-1", Stock: domain.StockState{OnHand: 10}})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got.Plan == nil || got.Plan.Source != domain.PlanSourceLLM {
		t.Fatalf("plan = %+v, want llm plan", got.Plan)
	}
	if len(got.Plan.Items) != 1 || got.Plan.Items[0].ID == "" {
		t.Errorf("items = %+v", got.Plan.Items)
	}
}

func TestEvaluate_AdvisoryActionsAreSanitized(t *testing.T) {
	advisor := &fakeAdvisor{candidate: &domain.AdvisoryCandidate{
		ForecastDemand: ptr(101.0),
		Actions: []domain.ActionItem{
			{What: "Expedite the open order", Confidence: 7.5},
			{What: "   ", Confidence: 0.9},
			{What: "Audit the shelf count", Confidence: -2},
		},
	}}
	guard := advisory.NewGuard(advisor, advisory.GuardConfig{Enabled: true})
	svc := NewService(stubResolver{monthlyBaseline()}, guard, DefaultConfig()).
		WithPlans(actionplan.NewService(actionplan.NewMemoryStore(), nil))

	got, err := svc.Evaluate(context.Background(), EvaluateRequest{SKU: "SKU-1", Stock: domain.StockState{OnHand: 10}})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got.Plan == nil || got.Plan.Source != domain.PlanSourceLLM {
		t.Fatalf("plan = %+v, want llm plan", got.Plan)
	}
	if len(got.Plan.Items) != 2 {
		t.Fatalf("items = %+v, want the blank action dropped", got.Plan.Items)
	}
	if got.Plan.Items[0].Confidence != 1 || got.Plan.Items[1].Confidence != 0 {
		t.Errorf("confidences = %v, %v, want 1 and 0", got.Plan.Items[0].Confidence, got.Plan.Items[1].Confidence)
	}
}

func TestEvaluate_BlankAdvisoryActionsFallBackToManualPlan(t *testing.T) {
	advisor := &fakeAdvisor{candidate: &domain.AdvisoryCandidate{
		ForecastDemand: ptr(101.0),
		Actions:        []domain.ActionItem{{What: "", Confidence: 0.4}},
	}}
	guard := advisory.NewGuard(advisor, advisory.GuardConfig{Enabled: true})
	svc := NewService(stubResolver{monthlyBaseline()}, guard, DefaultConfig()).
		WithPlans(actionplan.NewService(actionplan.NewMemoryStore(), nil))

	got, err := svc.Evaluate(context.Background(), EvaluateRequest{SKU: "SKU-1", Stock: domain.StockState{OnHand: 10}})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got.Plan == nil || got.Plan.Source != domain.PlanSourceManual {
		t.Fatalf("plan = %+v, want manual fallback plan", got.Plan)
	}
}

func TestEvaluate_ZeroLeadTimeWeeklyNotComputable(t *testing.T) {
	svc := NewService(stubResolver{monthlyBaseline()}, nil, DefaultConfig()).
		WithHistory(&fakeHistory{weekly: flatWeeks(4, 70)})

	got, err := svc.Evaluate(context.Background(), EvaluateRequest{
		SKU:     "SKU-1",
		Metrics: &domain.RequestMetrics{LeadTimeDays: ptr(0.0)},
		Stock:   domain.StockState{OnHand: 10},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got.Weekly == nil || got.Weekly.Computable || got.Weekly.ReorderPoint != nil {
		t.Errorf("Weekly = %+v, want not computable", got.Weekly)
	}
	if !containsNote(got.Recommendation.Notes, "not computable") {
		t.Errorf("notes = %v", got.Recommendation.Notes)
	}
}

func TestEvaluate_WeeklyLookupFailureIsSkipped(t *testing.T) {
	svc := NewService(stubResolver{monthlyBaseline()}, nil, DefaultConfig()).
		WithHistory(&fakeHistory{err: errors.New("connection refused")})

	got, err := svc.Evaluate(context.Background(), EvaluateRequest{SKU: "SKU-1"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got.Weekly != nil {
		t.Errorf("Weekly = %+v, want nil", got.Weekly)
	}
	if got.Daily == nil {
		t.Error("daily figures must still be produced")
	}
}

func TestEvaluate_RejectsNegativeStock(t *testing.T) {
	svc := NewService(stubResolver{monthlyBaseline()}, nil, DefaultConfig())
	_, err := svc.Evaluate(context.Background(), EvaluateRequest{SKU: "SKU-1", Stock: domain.StockState{OnHand: -1}})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestEvaluateBatch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BatchConcurrency = 2
	svc := NewService(stubResolver{monthlyBaseline()}, nil, cfg)

	reqs := []EvaluateRequest{{SKU: "A"}, {SKU: ""}, {SKU: "C"}, {SKU: "D"}}
	got := svc.EvaluateBatch(context.Background(), reqs)

	if len(got) != len(reqs) {
		t.Fatalf("results = %d, want %d", len(got), len(reqs))
	}
	for i, r := range got {
		if r.SKU != reqs[i].SKU {
			t.Errorf("results[%d].SKU = %q, want %q", i, r.SKU, reqs[i].SKU)
		}
	}
	if got[1].Error == "" || got[1].Evaluation != nil {
		t.Errorf("invalid request result = %+v, want error", got[1])
	}
	if got[0].Evaluation == nil || got[3].Evaluation == nil {
		t.Error("valid requests must be evaluated")
	}
}

func TestBuildActionItems(t *testing.T) {
	tests := []struct {
		name  string
		rec   *domain.RecommendationResult
		daily *domain.ReplenishmentMetrics
		want  []string
	}{
		{
			name:  "nothing to do",
			rec:   &domain.RecommendationResult{SKU: "S", ForecastDemand: ptr(10), Method: domain.MethodFormulaMonthly, LeadTimeDays: 7},
			daily: &domain.ReplenishmentMetrics{ReorderPoint: 80, AvailableStock: 100},
		},
		{
			name:  "reorder",
			rec:   &domain.RecommendationResult{SKU: "S", ForecastDemand: ptr(10), Method: domain.MethodFormulaMonthly, LeadTimeDays: 7},
			daily: &domain.ReplenishmentMetrics{ReorderPoint: 80, AvailableStock: 30, RecommendedOrderQuantity: 50},
			want:  []string{"Raise a purchase order for 50 units of S"},
		},
		{
			name: "no demand and no lead time",
			rec:  &domain.RecommendationResult{SKU: "S"},
			want: []string{"Record outbound history or a manual daily average for S", "Confirm the supplier lead time for S"},
		},
		{
			name: "proxy estimate",
			rec:  &domain.RecommendationResult{SKU: "S", ForecastDemand: ptr(10), Method: domain.MethodCategoryPeerMedian, LeadTimeDays: 7},
			want: []string{"Review the safety stock of S"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := BuildActionItems(tt.rec, tt.daily)
			if len(items) != len(tt.want) {
				t.Fatalf("items = %+v, want %d", items, len(tt.want))
			}
			for i, item := range items {
				if item.What != tt.want[i] {
					t.Errorf("items[%d].What = %q, want %q", i, item.What, tt.want[i])
				}
				if item.Confidence <= 0 || item.KPI.Name == "" {
					t.Errorf("items[%d] missing confidence or KPI: %+v", i, item)
				}
			}
		})
	}
}
