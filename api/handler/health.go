package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/skuforge/models"
	"github.com/use-agent/skuforge/store"
	"github.com/use-agent/skuforge/taxonomy"
)

// Health returns a handler for GET /api/v1/health.
func Health(st *store.Store, vocab *taxonomy.Vocabulary, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:        "healthy",
			UptimeSeconds: int64(time.Since(startTime).Seconds()),
			Products:      st.Len(),
			TaxonomySize:  vocab.Len(),
		})
	}
}
