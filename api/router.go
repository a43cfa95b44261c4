package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/skuforge/api/handler"
	"github.com/use-agent/skuforge/api/middleware"
	"github.com/use-agent/skuforge/config"
	"github.com/use-agent/skuforge/identity"
	"github.com/use-agent/skuforge/pipeline"
	"github.com/use-agent/skuforge/store"
	"github.com/use-agent/skuforge/taxonomy"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(p *pipeline.Pipeline, st *store.Store, vocab *taxonomy.Vocabulary, resolver *identity.Resolver, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(st, vocab, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Extraction
	protected.POST("/extract", handler.Extract(p, st))

	// Product reads
	protected.GET("/products", handler.ListProducts(st))
	protected.GET("/products/:id", handler.GetProduct(st))

	// Identity
	protected.POST("/resolve-identities", handler.ResolveIdentities(st, resolver))

	return r
}
