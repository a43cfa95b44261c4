package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/skuforge/models"
	"github.com/use-agent/skuforge/pipeline"
	"github.com/use-agent/skuforge/store"
)

// Extract returns a handler for POST /api/v1/extract.
//
// Flow:
//  1. Parse & validate ExtractRequest.
//  2. Run both extraction passes and the category pre-filter.
//  3. Assemble a validated Product via the resolution service.
//  4. Optionally persist the product, then respond with timing.
func Extract(p *pipeline.Pipeline, st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ExtractResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		product, timing, err := p.Run(c.Request.Context(), req.HTML, req.PageURL)
		if err != nil {
			respondExtractError(c, err, *timing)
			return
		}

		// The record id derives from the page URL; markup-only requests fall
		// back to hashing the markup itself.
		source := req.PageURL
		if source == "" {
			source = req.HTML
		}
		id := pipeline.ProductID(source)

		if req.Store {
			if err := st.Put(id, product); err != nil {
				respondExtractError(c, models.NewExtractError(models.ErrCodeInternal, "failed to persist product", err), *timing)
				return
			}
		}

		c.JSON(http.StatusOK, models.ExtractResponse{
			Success: true,
			ID:      id,
			Product: product,
			Timing:  *timing,
		})
	}
}

// respondExtractError maps an ExtractError to the correct HTTP status and
// writes a structured JSON error response.
func respondExtractError(c *gin.Context, err error, timing models.ExtractTimingInfo) {
	var extractErr *models.ExtractError
	if !errors.As(err, &extractErr) {
		extractErr = models.NewExtractError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(statusForCode(extractErr.Code), models.ExtractResponse{
		Success: false,
		Error:   extractErr.ToDetail(),
		Timing:  timing,
	})
}

// statusForCode maps internal error codes to HTTP statuses.
func statusForCode(code string) int {
	switch code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case models.ErrCodeNotFound:
		return http.StatusNotFound
	case models.ErrCodeValidation, models.ErrCodeRecordSkipped:
		return http.StatusUnprocessableEntity
	case models.ErrCodeResolverAuthFailure:
		return http.StatusBadGateway
	case models.ErrCodeResolverRateLimited:
		return http.StatusServiceUnavailable
	case models.ErrCodeResolverFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
