package forecast

import (
	"context"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
)

// HistoryLookup returns outbound history for a SKU. Implementations return an
// empty slice, not an error, when the SKU has no movements.
type HistoryLookup interface {
	DailyHistory(ctx context.Context, sku string, days int) ([]domain.DemandSample, error)
	WeeklyHistory(ctx context.Context, sku string, days int) ([]domain.WeeklySample, error)
}

// PeerRegistry exposes the registered demand profile of products by category.
type PeerRegistry interface {
	ListProductsByCategory(ctx context.Context, category string) ([]domain.PeerProduct, error)
	ProductCategory(ctx context.Context, sku string) (string, error)
}
