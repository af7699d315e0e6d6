package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
)

// PlanArchiver writes approved plan snapshots as JSON objects keyed by
// <prefix>/<sku>/<plan id>-v<version>.json.
type PlanArchiver struct {
	store  ObjectStorage
	prefix string
}

func NewPlanArchiver(store ObjectStorage, prefix string) *PlanArchiver {
	return &PlanArchiver{store: store, prefix: strings.Trim(prefix, "/")}
}

func (a *PlanArchiver) ArchivePlan(ctx context.Context, plan *domain.ActionPlan) error {
	if plan == nil {
		return fmt.Errorf("archive: nil plan")
	}
	payload, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("archive: encode plan %s: %w", plan.ID, err)
	}
	return a.store.UploadObject(ctx, a.key(plan), payload, "application/json")
}

// ArchivedPlans lists the archived snapshots of a SKU.
func (a *PlanArchiver) ArchivedPlans(ctx context.Context, sku string) ([]domain.ActionPlan, error) {
	objects, err := a.store.ListObjects(ctx, path.Join(a.prefix, sku)+"/")
	if err != nil {
		return nil, err
	}

	plans := make([]domain.ActionPlan, 0, len(objects))
	for _, obj := range objects {
		data, err := a.store.GetObject(ctx, obj.Key)
		if err != nil {
			return nil, err
		}
		var plan domain.ActionPlan
		if err := json.Unmarshal(data, &plan); err != nil {
			return nil, fmt.Errorf("archive: decode %s: %w", obj.Key, err)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func (a *PlanArchiver) key(plan *domain.ActionPlan) string {
	return path.Join(a.prefix, plan.SKU, fmt.Sprintf("%s-v%d.json", plan.ID, plan.Version))
}
