// internal/repository/repository.go
package repository

import (
	"context"

	"github.com/andresuchdata/autopo-replenish/internal/actionplan"
	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/andresuchdata/autopo-replenish/internal/forecast"
)

type HistoryRepository interface {
	forecast.HistoryLookup
	RecordMovements(ctx context.Context, movements []domain.Movement) error
}

type ProductRepository interface {
	forecast.PeerRegistry
	UpsertProducts(ctx context.Context, products []domain.Product) error
}

type PolicyRepository interface {
	// UpsertDraft inserts the draft for a new SKU, or refreshes an existing one
	// when the product display name changed. It returns the stored draft.
	UpsertDraft(ctx context.Context, draft *domain.PolicyDraft) (*domain.PolicyDraft, error)
	GetDraft(ctx context.Context, sku string) (*domain.PolicyDraft, error)
	// SaveDrafts commits a bulk edit unconditionally.
	SaveDrafts(ctx context.Context, drafts []domain.PolicyDraft) error
}

type ActionPlanRepository interface {
	actionplan.Store
	ListBySKU(ctx context.Context, sku string) ([]*domain.ActionPlan, error)
}
