// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/api/handlers"
	"github.com/andresuchdata/autopo-replenish/internal/api/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Recommendation handlers.RecommendationService
	Plans          handlers.ActionPlanService
	PlanHistory    handlers.PlanLister
	Policies       handlers.PolicyStore
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.Recommendation != nil {
			recHandler := handlers.NewRecommendationHandler(services.Recommendation)
			recGroup := apiGroup.Group("/recommendations")
			{
				recGroup.POST("/batch", recHandler.Batch)
				recGroup.POST("/:sku", recHandler.Resolve)
			}
			apiGroup.POST("/replenishment", recHandler.Replenishment)
			apiGroup.POST("/evaluations/:sku", recHandler.Evaluate)
		}

		if services.Plans != nil {
			planHandler := handlers.NewActionPlanHandler(services.Plans, services.PlanHistory)
			planGroup := apiGroup.Group("/action-plans")
			{
				planGroup.GET("", planHandler.List)
				planGroup.GET("/:id", planHandler.Get)
				planGroup.POST("/:id/submit", planHandler.Submit)
				planGroup.POST("/:id/approve", planHandler.Approve)
			}
		}

		if services.Policies != nil {
			policyHandler := handlers.NewPolicyHandler(services.Policies)
			policyGroup := apiGroup.Group("/policies")
			{
				policyGroup.GET("/:sku", policyHandler.Get)
				policyGroup.PUT("", policyHandler.Save)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
