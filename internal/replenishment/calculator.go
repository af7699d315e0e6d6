// Package replenishment turns a demand estimate and stocking policy into safety
// stock, reorder point and order quantity figures. Everything here is pure.
package replenishment

import (
	"math"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/andresuchdata/autopo-replenish/internal/forecast/stats"
)

// DefaultServiceLevelZ is the standard-normal quantile for a ~95% service level.
const DefaultServiceLevelZ = 1.645

// AvailableStock = max(onHand - reserved, 0)
func AvailableStock(onHand, reserved float64) int {
	return stats.RoundNonNegative(math.Max(onHand-reserved, 0))
}

// SafetyStock = round(Z * sigma * sqrt(L * (1 + rho)))
func SafetyStock(z, sigma, leadTimeDays, rho float64) int {
	if leadTimeDays <= 0 || sigma <= 0 || z <= 0 {
		return 0
	}
	return stats.RoundNonNegative(z * sigma * math.Sqrt(leadTimeDays*(1+rho)))
}

// ReorderPoint = max(configured, round(avgDaily * L + safetyStock)). The configured
// value only ever raises the result.
func ReorderPoint(configured int, avgDaily, leadTimeDays float64, safetyStock int) int {
	computed := stats.RoundNonNegative(avgDaily*math.Max(leadTimeDays, 0) + float64(safetyStock))
	if configured > computed {
		return configured
	}
	return computed
}

// RecommendedOrderQuantity = max(reorderPoint - available, 0)
func RecommendedOrderQuantity(reorderPoint, available int) int {
	if reorderPoint <= available {
		return 0
	}
	return reorderPoint - available
}

// Compute derives the daily replenishment figures for one SKU.
func Compute(estimate domain.DemandEstimate, policy domain.Policy, stock domain.StockState) domain.ReplenishmentMetrics {
	z := policy.ServiceLevelZ
	if !(z > 0) || math.IsInf(z, 0) {
		z = DefaultServiceLevelZ
	}
	rho := clampRho(policy.CorrelationRho)

	available := AvailableStock(stock.OnHand, stock.Reserved)
	safety := SafetyStock(z, math.Max(estimate.DemandStdDev, 0), policy.LeadTimeDays, rho)
	configured := policy.ConfiguredReorderPoint
	if configured < 0 {
		configured = 0
	}
	rop := ReorderPoint(configured, math.Max(estimate.AvgDailyDemand, 0), policy.LeadTimeDays, safety)

	return domain.ReplenishmentMetrics{
		SafetyStock:              safety,
		ReorderPoint:             rop,
		RecommendedOrderQuantity: RecommendedOrderQuantity(rop, available),
		AvailableStock:           available,
	}
}

// WeeklyInput carries the weekly model's summary statistics.
type WeeklyInput struct {
	AvgWeeklyDemand float64
	WeeklyStdDev    float64
	SampleSize      int
}

// ComputeWeekly repeats the reorder calculation on a weekly grain. A zero-week lead
// time is reported as not computable rather than as a zero reorder point.
func ComputeWeekly(in WeeklyInput, leadTimeDays, z float64, stock domain.StockState) domain.WeeklyReplenishment {
	if !(z > 0) || math.IsInf(z, 0) {
		z = DefaultServiceLevelZ
	}
	available := AvailableStock(stock.OnHand, stock.Reserved)
	weeks := math.Max(leadTimeDays, 0) / 7

	out := domain.WeeklyReplenishment{
		LeadTimeWeeks:   weeks,
		AvgWeeklyDemand: in.AvgWeeklyDemand,
		WeeklyStdDev:    in.WeeklyStdDev,
		SampleSize:      in.SampleSize,
		AvailableStock:  available,
	}
	if weeks == 0 {
		return out
	}

	rop := stats.RoundNonNegative(math.Max(in.AvgWeeklyDemand, 0)*weeks + z*math.Max(in.WeeklyStdDev, 0)*math.Sqrt(weeks))
	qty := RecommendedOrderQuantity(rop, available)
	out.Computable = true
	out.ReorderPoint = &rop
	out.RecommendedOrderQuantity = &qty
	return out
}

func clampRho(rho float64) float64 {
	if math.IsNaN(rho) || rho < 0 {
		return 0
	}
	if rho >= 1 {
		return math.Nextafter(1, 0)
	}
	return rho
}
