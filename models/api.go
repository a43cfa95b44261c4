package models

// ExtractRequest is the body for POST /api/v1/extract. HTML is the raw page
// markup; PageURL is optional and only used for absolute-URL resolution.
type ExtractRequest struct {
	HTML    string `json:"html" binding:"required"`
	PageURL string `json:"page_url"`

	// Store controls whether the assembled product is persisted to the
	// product store in addition to being returned.
	Store bool `json:"store"`
}

// ExtractTimingInfo breaks down where time was spent during an extract call.
type ExtractTimingInfo struct {
	TotalMs      int64 `json:"total_ms"`
	ExtractionMs int64 `json:"extraction_ms"`
	PrefilterMs  int64 `json:"prefilter_ms"`
	AssemblyMs   int64 `json:"assembly_ms"`
}

// ExtractResponse is the response body for POST /api/v1/extract.
type ExtractResponse struct {
	Success bool              `json:"success"`
	ID      string            `json:"id,omitempty"`
	Product *Product          `json:"product,omitempty"`
	Error   *ErrorDetail      `json:"error,omitempty"`
	Timing  ExtractTimingInfo `json:"timing"`
}

// ListResponse is the response body for GET /api/v1/products.
type ListResponse struct {
	Products []ProductSummary `json:"products"`
}

// IdentityResponse is the response body for POST /api/v1/resolve-identities.
type IdentityResponse struct {
	Success  bool         `json:"success"`
	Resolved int          `json:"resolved"`
	Clusters int          `json:"clusters"`
	Error    *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is the response body for GET /api/v1/health.
type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Products      int    `json:"products"`
	TaxonomySize  int    `json:"taxonomy_size"`
}
