package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/gin-gonic/gin"
)

type ActionPlanService interface {
	Get(ctx context.Context, id string) (*domain.ActionPlan, error)
	Submit(ctx context.Context, id string) (*domain.ActionPlan, error)
	Approve(ctx context.Context, id string) (*domain.ActionPlan, error)
}

// PlanLister lists stored plans of one SKU.
type PlanLister interface {
	ListBySKU(ctx context.Context, sku string) ([]*domain.ActionPlan, error)
}

type ActionPlanHandler struct {
	service ActionPlanService
	lister  PlanLister
}

// NewActionPlanHandler builds the handler. lister may be nil, which disables List.
func NewActionPlanHandler(service ActionPlanService, lister PlanLister) *ActionPlanHandler {
	return &ActionPlanHandler{service: service, lister: lister}
}

// List returns the plans of the SKU given in the sku query parameter.
func (h *ActionPlanHandler) List(c *gin.Context) {
	if h.lister == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "plan listing is not available"})
		return
	}
	sku := strings.TrimSpace(c.Query("sku"))
	if sku == "" {
		badRequest(c, "sku query parameter is required")
		return
	}

	plans, err := h.lister.ListBySKU(c.Request.Context(), sku)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (h *ActionPlanHandler) Get(c *gin.Context) {
	h.respond(c, h.service.Get)
}

func (h *ActionPlanHandler) Submit(c *gin.Context) {
	h.respond(c, h.service.Submit)
}

func (h *ActionPlanHandler) Approve(c *gin.Context) {
	h.respond(c, h.service.Approve)
}

func (h *ActionPlanHandler) respond(c *gin.Context, op func(context.Context, string) (*domain.ActionPlan, error)) {
	plan, err := op(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}
