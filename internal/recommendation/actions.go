package recommendation

import (
	"fmt"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
)

// BuildActionItems derives action items from a recommendation without the advisory
// service. The output depends only on its inputs.
func BuildActionItems(rec *domain.RecommendationResult, daily *domain.ReplenishmentMetrics) []domain.ActionItem {
	if rec == nil {
		return nil
	}
	var items []domain.ActionItem

	if daily != nil && daily.RecommendedOrderQuantity > 0 {
		items = append(items, domain.ActionItem{
			Who:  "buyer",
			What: fmt.Sprintf("Raise a purchase order for %d units of %s", daily.RecommendedOrderQuantity, rec.SKU),
			When: "within 2 business days",
			Rationale: fmt.Sprintf("Available stock %d is below the reorder point %d.",
				daily.AvailableStock, daily.ReorderPoint),
			Confidence: confidenceFor(rec.Method),
			KPI:        domain.KPI{Name: "stockout_days", Target: "0", Window: fmt.Sprintf("next %d days", max(rec.LeadTimeDays, 7))},
		})
	}

	switch {
	case rec.ForecastDemand == nil:
		items = append(items, domain.ActionItem{
			Who:        "demand planner",
			What:       fmt.Sprintf("Record outbound history or a manual daily average for %s", rec.SKU),
			When:       "this week",
			Rationale:  "No demand estimate could be produced, so no reorder point is available.",
			Confidence: 0.5,
			KPI:        domain.KPI{Name: "forecast_coverage", Target: "1 estimate", Window: "7 days"},
		})
	case rec.Method == domain.MethodCategoryPeerMedian || rec.Method == domain.MethodMetricsFallback:
		items = append(items, domain.ActionItem{
			Who:        "demand planner",
			What:       fmt.Sprintf("Review the safety stock of %s", rec.SKU),
			When:       "this week",
			Rationale:  fmt.Sprintf("Demand comes from %s rather than the SKU's own history.", rec.Method),
			Confidence: 0.6,
			KPI:        domain.KPI{Name: "forecast_error", Target: "<= 20%", Window: "30 days"},
		})
	}

	if rec.LeadTimeDays == 0 {
		items = append(items, domain.ActionItem{
			Who:        "buyer",
			What:       fmt.Sprintf("Confirm the supplier lead time for %s", rec.SKU),
			When:       "before the next order",
			Rationale:  "A zero-day lead time leaves no safety stock.",
			Confidence: 0.7,
			KPI:        domain.KPI{Name: "lead_time_recorded", Target: "yes", Window: "14 days"},
		})
	}

	return items
}

func confidenceFor(method domain.Method) float64 {
	switch method {
	case domain.MethodFormulaMonthly:
		return 0.85
	case domain.MethodFormulaMonthlyPartial, domain.MethodDailyEWMA:
		return 0.75
	case domain.MethodCategoryPeerMedian:
		return 0.6
	default:
		return 0.5
	}
}
