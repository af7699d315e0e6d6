// internal/api/handlers/recommendation_handler.go
package handlers

import (
	"context"
	"math"
	"net/http"
	"strings"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/andresuchdata/autopo-replenish/internal/recommendation"
	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
	"github.com/gin-gonic/gin"
)

const maxBatchSize = 200

type RecommendationService interface {
	ResolveRecommendation(ctx context.Context, sku string, history []domain.HistoryPoint, metrics *domain.RequestMetrics) (*domain.RecommendationResult, error)
	ComputeReplenishment(estimate domain.DemandEstimate, policy domain.Policy, stock domain.StockState) domain.ReplenishmentMetrics
	Evaluate(ctx context.Context, req recommendation.EvaluateRequest) (*recommendation.Evaluation, error)
	EvaluateBatch(ctx context.Context, reqs []recommendation.EvaluateRequest) []recommendation.BatchResult
}

type RecommendationHandler struct {
	service RecommendationService
}

func NewRecommendationHandler(service RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{service: service}
}

type recommendationRequest struct {
	History []domain.HistoryPoint  `json:"history"`
	Metrics *domain.RequestMetrics `json:"metrics"`
}

// Resolve returns the demand recommendation of one SKU.
func (h *RecommendationHandler) Resolve(c *gin.Context) {
	var req recommendationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}

	result, err := h.service.ResolveRecommendation(c.Request.Context(), c.Param("sku"), req.History, req.Metrics)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type batchRequest struct {
	SKUs []string `json:"skus"`
}

// Batch runs a full evaluation for each requested SKU.
func (h *RecommendationHandler) Batch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if len(req.SKUs) == 0 {
		badRequest(c, "skus must not be empty")
		return
	}
	if len(req.SKUs) > maxBatchSize {
		badRequest(c, "too many skus in one batch")
		return
	}

	reqs := make([]recommendation.EvaluateRequest, 0, len(req.SKUs))
	for _, sku := range req.SKUs {
		reqs = append(reqs, recommendation.EvaluateRequest{SKU: strings.TrimSpace(sku)})
	}
	c.JSON(http.StatusOK, gin.H{"results": h.service.EvaluateBatch(c.Request.Context(), reqs)})
}

type replenishmentRequest struct {
	Estimate            domain.DemandEstimate `json:"estimate"`
	Policy              domain.Policy         `json:"policy"`
	Stock               domain.StockState     `json:"stock"`
	ServiceLevelPercent *float64              `json:"service_level_percent"`
}

// Replenishment computes stocking thresholds for a caller-supplied estimate.
func (h *RecommendationHandler) Replenishment(c *gin.Context) {
	var req replenishmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	checks := []struct {
		field string
		value float64
	}{
		{"estimate.avg_daily_demand", req.Estimate.AvgDailyDemand},
		{"estimate.demand_std_dev", req.Estimate.DemandStdDev},
		{"policy.lead_time_days", req.Policy.LeadTimeDays},
		{"stock.on_hand", req.Stock.OnHand},
		{"stock.reserved", req.Stock.Reserved},
	}
	for _, check := range checks {
		if check.value < 0 || math.IsNaN(check.value) || math.IsInf(check.value, 0) {
			respondError(c, &domain.ValidationError{Field: check.field, Reason: "must be a non-negative number"})
			return
		}
	}

	policy := req.Policy
	if policy.ServiceLevelZ == 0 && req.ServiceLevelPercent != nil {
		policy.ServiceLevelZ = replenishment.ZForServiceLevel(domain.ClampServiceLevel(*req.ServiceLevelPercent))
	}
	c.JSON(http.StatusOK, h.service.ComputeReplenishment(req.Estimate, policy, req.Stock))
}

// Evaluate runs the full pipeline for one SKU.
func (h *RecommendationHandler) Evaluate(c *gin.Context) {
	var req recommendation.EvaluateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}
	req.SKU = c.Param("sku")

	eval, err := h.service.Evaluate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, eval)
}
