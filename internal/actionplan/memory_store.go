package actionplan

import (
	"context"
	"sync"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
)

// MemoryStore is a process-local Store for offline runs and tests.
type MemoryStore struct {
	mu    sync.Mutex
	plans map[string]domain.ActionPlan
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{plans: make(map[string]domain.ActionPlan)}
}

func (m *MemoryStore) Create(_ context.Context, plan *domain.ActionPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.plans[plan.ID]; exists {
		return domain.ErrDuplicatePlan
	}
	m.plans[plan.ID] = clonePlan(*plan)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*domain.ActionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan, ok := m.plans[id]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	out := clonePlan(plan)
	return &out, nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, id string, from, to domain.PlanStatus, updatedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan, ok := m.plans[id]
	if !ok {
		return false, domain.ErrPlanNotFound
	}
	if plan.Status != from {
		return false, nil
	}
	plan.Status = to
	plan.UpdatedAt = updatedAt
	m.plans[id] = plan
	return true, nil
}

// List returns every stored plan in no particular order.
func (m *MemoryStore) List() []domain.ActionPlan {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ActionPlan, 0, len(m.plans))
	for _, plan := range m.plans {
		out = append(out, clonePlan(plan))
	}
	return out
}

func clonePlan(p domain.ActionPlan) domain.ActionPlan {
	p.Items = append([]domain.ActionItem(nil), p.Items...)
	return p
}

var _ Store = (*MemoryStore)(nil)
