package replenishment

import (
	"math"
	"testing"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
)

func TestAvailableStock(t *testing.T) {
	tests := []struct {
		onHand, reserved float64
		want             int
	}{
		{500, 50, 450},
		{10, 50, 0},
		{0, 0, 0},
		{10.5, 0, 11},
	}
	for _, tt := range tests {
		if got := AvailableStock(tt.onHand, tt.reserved); got != tt.want {
			t.Errorf("AvailableStock(%v, %v) = %d, want %d", tt.onHand, tt.reserved, got, tt.want)
		}
	}
}

func TestSafetyStock(t *testing.T) {
	tests := []struct {
		name                string
		z, sigma, lead, rho float64
		want                int
	}{
		{"independent demand", 1.645, 10, 9, 0, 49},
		{"correlated demand", 1.645, 10, 9, 0.44, 59},
		{"zero lead time", 1.645, 10, 0, 0, 0},
		{"zero sigma", 1.645, 0, 9, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafetyStock(tt.z, tt.sigma, tt.lead, tt.rho); got != tt.want {
				t.Errorf("SafetyStock = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReorderPointAndOrderQuantity(t *testing.T) {
	available := AvailableStock(500, 50)
	rop := ReorderPoint(600, 100, 7, 80)
	if rop != 780 {
		t.Fatalf("ReorderPoint = %d, want 780", rop)
	}
	if qty := RecommendedOrderQuantity(rop, available); qty != 330 {
		t.Errorf("RecommendedOrderQuantity = %d, want 330", qty)
	}

	// A manually raised floor is never lowered by the formula.
	if got := ReorderPoint(1000, 100, 7, 80); got != 1000 {
		t.Errorf("ReorderPoint with high floor = %d, want 1000", got)
	}
}

func TestRecommendedOrderQuantityNeverNegative(t *testing.T) {
	for _, available := range []int{0, 100, 780, 781, 5000} {
		got := RecommendedOrderQuantity(780, available)
		if got < 0 {
			t.Errorf("RecommendedOrderQuantity(780, %d) = %d, want >= 0", available, got)
		}
		if available >= 780 && got != 0 {
			t.Errorf("RecommendedOrderQuantity(780, %d) = %d, want 0", available, got)
		}
	}
}

func TestCompute(t *testing.T) {
	got := Compute(
		domain.DemandEstimate{AvgDailyDemand: 100, DemandStdDev: 10},
		domain.Policy{LeadTimeDays: 9, ServiceLevelZ: 1.645},
		domain.StockState{OnHand: 500, Reserved: 50},
	)
	want := domain.ReplenishmentMetrics{
		SafetyStock:              49,
		ReorderPoint:             949,
		RecommendedOrderQuantity: 499,
		AvailableStock:           450,
	}
	if got != want {
		t.Errorf("Compute = %+v, want %+v", got, want)
	}
}

func TestCompute_DefaultsAndClamps(t *testing.T) {
	got := Compute(
		domain.DemandEstimate{AvgDailyDemand: -5, DemandStdDev: -1},
		domain.Policy{LeadTimeDays: 7, ServiceLevelZ: 0, CorrelationRho: -2, ConfiguredReorderPoint: -10},
		domain.StockState{OnHand: 20, Reserved: 30},
	)
	if got != (domain.ReplenishmentMetrics{}) {
		t.Errorf("Compute = %+v, want all zeros", got)
	}
}

func TestComputeWeekly(t *testing.T) {
	stock := domain.StockState{OnHand: 500, Reserved: 50}
	got := ComputeWeekly(WeeklyInput{AvgWeeklyDemand: 700, WeeklyStdDev: 70, SampleSize: 26}, 14, 1.645, stock)

	if !got.Computable {
		t.Fatal("expected computable weekly figures")
	}
	if got.LeadTimeWeeks != 2 {
		t.Errorf("LeadTimeWeeks = %v, want 2", got.LeadTimeWeeks)
	}
	// 700*2 + 1.645*70*sqrt(2) = 1562.85
	if *got.ReorderPoint != 1563 {
		t.Errorf("ReorderPoint = %d, want 1563", *got.ReorderPoint)
	}
	if *got.RecommendedOrderQuantity != 1113 {
		t.Errorf("RecommendedOrderQuantity = %d, want 1113", *got.RecommendedOrderQuantity)
	}
}

func TestComputeWeekly_ZeroLeadTimeNotComputable(t *testing.T) {
	got := ComputeWeekly(WeeklyInput{AvgWeeklyDemand: 700, WeeklyStdDev: 70}, 0, 1.645, domain.StockState{OnHand: 10})
	if got.Computable {
		t.Error("expected zero lead time to be not computable")
	}
	if got.ReorderPoint != nil || got.RecommendedOrderQuantity != nil {
		t.Errorf("got reorder figures %v / %v, want nil", got.ReorderPoint, got.RecommendedOrderQuantity)
	}
	if got.AvailableStock != 10 {
		t.Errorf("AvailableStock = %d, want 10", got.AvailableStock)
	}
}

func TestZForServiceLevel(t *testing.T) {
	tests := []struct {
		percent float64
		want    float64
	}{
		{50, 0},
		{90, 1.2816},
		{95, 1.6449},
		{99, 2.3263},
		{99.9, 3.0902},
		{1, -2.3263},
		{0, DefaultServiceLevelZ},
		{100, DefaultServiceLevelZ},
	}
	for _, tt := range tests {
		if got := ZForServiceLevel(tt.percent); math.Abs(got-tt.want) > 1e-3 {
			t.Errorf("ZForServiceLevel(%v) = %v, want %v", tt.percent, got, tt.want)
		}
	}
}
