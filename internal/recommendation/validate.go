package recommendation

import (
	"fmt"
	"math"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
)

func validate(sku string, history []domain.HistoryPoint, metrics *domain.RequestMetrics) error {
	if sku == "" {
		return &domain.ValidationError{Field: "sku", Reason: "must not be empty"}
	}
	for i, p := range history {
		if err := checkQuantity(fmt.Sprintf("history[%d].actual", i), p.Actual); err != nil {
			return err
		}
	}
	if metrics == nil {
		return nil
	}

	fields := []struct {
		name  string
		value *float64
	}{
		{"metrics.daily_avg", metrics.DailyAvg},
		{"metrics.avg_outbound_7d", metrics.AvgOutbound7d},
		{"metrics.daily_std", metrics.DailyStd},
		{"metrics.lead_time_days", metrics.LeadTimeDays},
		{"metrics.service_level_percent", metrics.ServiceLevelPercent},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if err := checkQuantity(f.name, *f.value); err != nil {
			return err
		}
	}
	return nil
}

func checkQuantity(field string, v float64) error {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return &domain.ValidationError{Field: field, Reason: "must be a finite number"}
	case v < 0:
		return &domain.ValidationError{Field: field, Reason: "must not be negative"}
	}
	return nil
}

func validateStock(stock domain.StockState) error {
	if err := checkQuantity("stock.on_hand", stock.OnHand); err != nil {
		return err
	}
	return checkQuantity("stock.reserved", stock.Reserved)
}
