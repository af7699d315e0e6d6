package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/gin-gonic/gin"
)

type PolicyStore interface {
	GetDraft(ctx context.Context, sku string) (*domain.PolicyDraft, error)
	SaveDrafts(ctx context.Context, drafts []domain.PolicyDraft) error
}

type PolicyHandler struct {
	store PolicyStore
}

func NewPolicyHandler(store PolicyStore) *PolicyHandler {
	return &PolicyHandler{store: store}
}

func (h *PolicyHandler) Get(c *gin.Context) {
	draft, err := h.store.GetDraft(c.Request.Context(), c.Param("sku"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

type saveDraftsRequest struct {
	Drafts []domain.PolicyDraft `json:"drafts"`
}

// Save commits a bulk edit of policy drafts.
func (h *PolicyHandler) Save(c *gin.Context) {
	var req saveDraftsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	for i := range req.Drafts {
		req.Drafts[i].SKU = strings.TrimSpace(req.Drafts[i].SKU)
		if req.Drafts[i].SKU == "" {
			respondError(c, &domain.ValidationError{Field: fmt.Sprintf("drafts[%d].sku", i), Reason: "must not be empty"})
			return
		}
	}

	if err := h.store.SaveDrafts(c.Request.Context(), req.Drafts); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": len(req.Drafts)})
}
