package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andresuchdata/autopo-replenish/internal/config"
	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/andresuchdata/autopo-replenish/internal/recommendation"
	"gopkg.in/yaml.v3"
)

func TestDecodeEvaluateInput(t *testing.T) {
	in := `
requests:
  - sku: SKU-1
    metrics:
      daily_avg: 12.5
      lead_time_days: 9
    stock:
      on_hand: 40
      reserved: 5
  - sku: SKU-2
`
	reqs, err := decodeEvaluateInput(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("requests = %d", len(reqs))
	}
	if reqs[0].Metrics == nil || *reqs[0].Metrics.DailyAvg != 12.5 || reqs[0].Stock.Reserved != 5 {
		t.Errorf("first request = %+v", reqs[0])
	}

	if _, err := decodeEvaluateInput(strings.NewReader("requests: []\n")); err == nil {
		t.Errorf("expected an error for an empty request list")
	}
}

func TestSeedFixtureAndTouchedSKUs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	fixture := `
products:
  - sku: A
    name: Alpha
    category: snacks
    daily_avg: 4
movements:
  - {sku: A, date: "2024-03-01", quantity: 3}
  - {sku: B, date: "2024-03-01", quantity: 1}
`
	if err := os.WriteFile(path, []byte(fixture), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := readSeedFixture(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Products) != 1 || f.Products[0].DailyAvg == nil || *f.Products[0].DailyAvg != 4 {
		t.Errorf("products = %+v", f.Products)
	}
	skus := touchedSKUs(f)
	if _, ok := skus["B"]; !ok || len(skus) != 2 {
		t.Errorf("touched skus = %v", skus)
	}
}

// Offline evaluation over an in-memory SQLite database, the same path the
// evaluate command takes.
func TestOfflineEvaluation(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{}

	st, err := openStores(ctx, cfg, ":memory:")
	if err != nil {
		t.Fatalf("open stores: %v", err)
	}
	defer st.Close()

	plans, err := newPlanService(ctx, cfg, st.plans)
	if err != nil {
		t.Fatalf("plan service: %v", err)
	}

	avg, std, lead, sl := 100.0, 10.0, 9.0, 95.0
	svc := newRecommendationService(cfg, st, plans)
	results := svc.EvaluateBatch(ctx, []recommendation.EvaluateRequest{{
		SKU: "SKU-1",
		Metrics: &domain.RequestMetrics{
			DailyAvg:            &avg,
			DailyStd:            &std,
			LeadTimeDays:        &lead,
			ServiceLevelPercent: &sl,
		},
		Stock: domain.StockState{OnHand: 500, Reserved: 50},
	}})
	if len(results) != 1 || results[0].Error != "" {
		t.Fatalf("results = %+v", results)
	}
	eval := results[0].Evaluation
	if eval.Daily == nil || eval.Daily.ReorderPoint != 949 {
		t.Errorf("daily = %+v", eval.Daily)
	}
	if eval.Plan == nil {
		t.Fatalf("expected a plan")
	}
	stored, err := st.plans.Get(ctx, eval.Plan.ID)
	if err != nil || stored.SKU != "SKU-1" {
		t.Errorf("stored plan = %+v, err %v", stored, err)
	}

	var buf bytes.Buffer
	if err := writeYAML(&buf, map[string]any{"results": results}); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	var decoded map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not yaml: %v", err)
	}
}
