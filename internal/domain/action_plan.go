package domain

import "time"

// PlanStatus is the approval state of an action plan.
type PlanStatus string

const (
	PlanStatusDraft    PlanStatus = "draft"
	PlanStatusReviewed PlanStatus = "reviewed"
	PlanStatusApproved PlanStatus = "approved"
)

// PlanSource records where a plan's items came from.
type PlanSource string

const (
	PlanSourceLLM    PlanSource = "llm"
	PlanSourceManual PlanSource = "manual"
)

// KPI describes how an action item's effect is measured.
type KPI struct {
	Name   string `json:"name"`
	Target string `json:"target"`
	Window string `json:"window"`
}

// ActionItem is immutable once attached to a plan.
type ActionItem struct {
	ID         string  `json:"id"`
	Who        string  `json:"who"`
	What       string  `json:"what"`
	When       string  `json:"when"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
	KPI        KPI     `json:"kpi"`
}

// ActionPlan groups the recommended actions for one SKU.
type ActionPlan struct {
	ID        string       `json:"id"`
	SKU       string       `json:"sku"`
	ProductID string       `json:"product_id"`
	Items     []ActionItem `json:"items"`
	Status    PlanStatus   `json:"status"`
	Source    PlanSource   `json:"source"`
	Language  string       `json:"language"`
	Version   int          `json:"version"`
	CreatedBy string       `json:"created_by"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
