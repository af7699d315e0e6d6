package handlers

import (
	"errors"
	"net/http"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// respondError maps domain errors to a status and hides internal failures.
func respondError(c *gin.Context, err error) {
	status := domain.MapHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(status, gin.H{"error": http.StatusText(status)})
		return
	}

	body := gin.H{"error": err.Error()}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		body["field"] = ve.Field
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
