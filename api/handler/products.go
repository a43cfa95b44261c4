package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/skuforge/models"
	"github.com/use-agent/skuforge/store"
)

// ListProducts returns a handler for GET /api/v1/products.
func ListProducts(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.ListResponse{
			Products: st.List(),
		})
	}
}

// GetProduct returns a handler for GET /api/v1/products/:id.
func GetProduct(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		product, ok := st.Get(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeNotFound,
					Message: "product not found",
				},
			})
			return
		}
		c.JSON(http.StatusOK, product)
	}
}
