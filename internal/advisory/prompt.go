package advisory

import (
	"encoding/json"
	"strings"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
)

// Prompt is a system/user message pair sent to the advisory model.
type Prompt struct {
	System string
	User   string
}

const systemPrompt = `You are an inventory planning assistant. Given a SKU's demand baseline and context,
reply with a single JSON object with these keys:
  forecast_demand (number, units per day, or null),
  demand_std_dev (number, units per day, or null),
  lead_time_days (number or null),
  service_level_percent (number between 50 and 99.9, or null),
  notes (array of short strings),
  summary (string),
  actions (array of objects with who, what, when, rationale, confidence 0-1,
           kpi {name, target, window}).
Only deviate from the baseline when the context clearly justifies it.`

type promptContext struct {
	SKU      string                   `json:"sku"`
	Baseline *domain.BaselineEstimate `json:"baseline"`
	Metrics  *domain.RequestMetrics   `json:"metrics,omitempty"`
	Notes    []string                 `json:"notes,omitempty"`
}

// BuildPrompt renders the advisory request for a SKU.
func BuildPrompt(sku string, baseline *domain.BaselineEstimate, metrics *domain.RequestMetrics, notes []string) Prompt {
	ctx := promptContext{SKU: sku, Metrics: metrics, Notes: notes}
	if baseline != nil {
		trimmed := *baseline
		// Raw values add tokens without helping the model.
		trimmed.RawDailyValues = nil
		ctx.Baseline = &trimmed
	}

	payload, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		payload = []byte(`{"sku":"` + strings.ReplaceAll(sku, `"`, `'`) + `"}`)
	}

	return Prompt{
		System: systemPrompt,
		User:   "Demand context:\n" + string(payload),
	}
}
