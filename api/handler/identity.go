package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/skuforge/identity"
	"github.com/use-agent/skuforge/models"
	"github.com/use-agent/skuforge/store"
)

// ResolveIdentities returns a handler for POST /api/v1/resolve-identities.
// It runs the batch identity pass over every stored product and persists the
// updated canonical ids and match decisions.
func ResolveIdentities(st *store.Store, resolver *identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		products := st.All()
		resolver.Resolve(products)

		clusters := make(map[string]struct{})
		for id, product := range products {
			if err := st.Put(id, product); err != nil {
				c.JSON(http.StatusInternalServerError, models.IdentityResponse{
					Success: false,
					Error: &models.ErrorDetail{
						Code:    models.ErrCodeInternal,
						Message: "failed to persist resolved product",
					},
				})
				return
			}
			clusters[product.CanonicalProductID] = struct{}{}
		}

		c.JSON(http.StatusOK, models.IdentityResponse{
			Success:  true,
			Resolved: len(products),
			Clusters: len(clusters),
		})
	}
}
