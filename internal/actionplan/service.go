package actionplan

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store persists plans. UpdateStatus must only write when the stored status still
// equals from, and reports whether a row was changed.
type Store interface {
	Create(ctx context.Context, plan *domain.ActionPlan) error
	Get(ctx context.Context, id string) (*domain.ActionPlan, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.PlanStatus, updatedAt time.Time) (bool, error)
}

// Archiver keeps a copy of approved plans outside the database.
type Archiver interface {
	ArchivePlan(ctx context.Context, plan *domain.ActionPlan) error
}

// NewPlan is the input to Service.Create.
type NewPlan struct {
	SKU       string              `json:"sku"`
	ProductID string              `json:"product_id"`
	Items     []domain.ActionItem `json:"items"`
	Source    domain.PlanSource   `json:"source"`
	Language  string              `json:"language"`
	CreatedBy string              `json:"created_by"`
}

type Service struct {
	store    Store
	archiver Archiver
	now      func() time.Time
	newID    func() string
}

// NewService builds the lifecycle service. archiver may be nil.
func NewService(store Store, archiver Archiver) *Service {
	return &Service{
		store:    store,
		archiver: archiver,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.NewString() },
	}
}

// Create stores a new draft plan at version 1.
func (s *Service) Create(ctx context.Context, in NewPlan) (*domain.ActionPlan, error) {
	sku := strings.TrimSpace(in.SKU)
	if sku == "" {
		return nil, &domain.ValidationError{Field: "sku", Reason: "must not be empty"}
	}
	if len(in.Items) == 0 {
		return nil, &domain.ValidationError{Field: "items", Reason: "a plan needs at least one item"}
	}

	source := in.Source
	switch source {
	case "":
		source = domain.PlanSourceManual
	case domain.PlanSourceLLM, domain.PlanSourceManual:
	default:
		return nil, &domain.ValidationError{Field: "source", Reason: "must be llm or manual"}
	}

	language := in.Language
	if language == "" {
		language = "en"
	}

	items := make([]domain.ActionItem, len(in.Items))
	for i, item := range in.Items {
		if strings.TrimSpace(item.What) == "" {
			return nil, &domain.ValidationError{Field: fmt.Sprintf("items[%d].what", i), Reason: "must not be empty"}
		}
		if math.IsNaN(item.Confidence) || item.Confidence < 0 || item.Confidence > 1 {
			return nil, &domain.ValidationError{Field: fmt.Sprintf("items[%d].confidence", i), Reason: "must be between 0 and 1"}
		}
		if item.ID == "" {
			item.ID = s.newID()
		}
		items[i] = item
	}

	now := s.now()
	plan := &domain.ActionPlan{
		ID:        s.newID(),
		SKU:       sku,
		ProductID: in.ProductID,
		Items:     items,
		Status:    domain.PlanStatusDraft,
		Source:    source,
		Language:  language,
		Version:   1,
		CreatedBy: in.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Create(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.ActionPlan, error) {
	return s.store.Get(ctx, id)
}

// Submit moves a draft plan to reviewed.
func (s *Service) Submit(ctx context.Context, id string) (*domain.ActionPlan, error) {
	return s.transition(ctx, id, EventSubmit)
}

// Approve moves a reviewed plan to approved and archives it when an archiver is set.
func (s *Service) Approve(ctx context.Context, id string) (*domain.ActionPlan, error) {
	plan, err := s.transition(ctx, id, EventApprove)
	if err != nil {
		return nil, err
	}

	if s.archiver != nil {
		if err := s.archiver.ArchivePlan(ctx, plan); err != nil {
			log.Warn().Err(err).Str("plan_id", plan.ID).Msg("failed to archive approved plan")
		}
	}
	return plan, nil
}

func (s *Service) transition(ctx context.Context, id string, event Event) (*domain.ActionPlan, error) {
	plan, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := Next(plan.Status, event)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updated, err := s.store.UpdateStatus(ctx, id, plan.Status, next, now)
	if err != nil {
		return nil, err
	}
	if !updated {
		// Another writer moved the plan first.
		current, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &TransitionError{From: current.Status, Event: event}
	}

	plan.Status = next
	plan.UpdatedAt = now
	return plan, nil
}
