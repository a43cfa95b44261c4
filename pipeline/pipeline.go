// Package pipeline wires the extraction passes, category pre-filter, and
// assembler into the per-page flow, and drives the concurrent batch pass
// used for corpus seeding.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/use-agent/skuforge/assemble"
	"github.com/use-agent/skuforge/extract"
	"github.com/use-agent/skuforge/identity"
	"github.com/use-agent/skuforge/models"
	"github.com/use-agent/skuforge/store"
	"github.com/use-agent/skuforge/taxonomy"
)

// Pipeline runs markup through extraction, pre-filtering, and assembly.
type Pipeline struct {
	prefilter *taxonomy.Prefilter
	assembler *assemble.Assembler
}

// New assembles the per-page pipeline from its stages.
func New(prefilter *taxonomy.Prefilter, assembler *assemble.Assembler) *Pipeline {
	return &Pipeline{prefilter: prefilter, assembler: assembler}
}

// ProductID derives a stable content id from the page URL (or the corpus
// filename when no URL is known).
func ProductID(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])[:12]
}

// Run extracts one page into a validated Product. The two extraction passes
// always both run; structured data and DOM heuristics contribute candidates
// to the same append-only context.
func (p *Pipeline) Run(ctx context.Context, htmlText, pageURL string) (*models.Product, *models.ExtractTimingInfo, error) {
	totalStart := time.Now()

	extractStart := time.Now()
	ec := extract.ExtractSignals(htmlText, pageURL)
	extract.ExtractDOMSignals(htmlText, ec)
	extractionMs := time.Since(extractStart).Milliseconds()

	prefilterStart := time.Now()
	candidates := p.prefilter.SelectCandidates(ec, taxonomy.DefaultTopK)
	prefilterMs := time.Since(prefilterStart).Milliseconds()

	assemblyStart := time.Now()
	product, err := p.assembler.Assemble(ctx, ec, candidates)
	assemblyMs := time.Since(assemblyStart).Milliseconds()

	timing := &models.ExtractTimingInfo{
		TotalMs:      time.Since(totalStart).Milliseconds(),
		ExtractionMs: extractionMs,
		PrefilterMs:  prefilterMs,
		AssemblyMs:   assemblyMs,
	}
	if err != nil {
		return nil, timing, err
	}
	return product, timing, nil
}

// SeedResult summarizes one batch seeding run.
type SeedResult struct {
	Total     int
	Succeeded int
	Failed    int
}

// Seed runs the pipeline over a saved page corpus with bounded concurrency,
// persists the resulting products, then runs the identity pass over
// everything in the store. A failed page is logged and skipped; one bad
// record never aborts the batch.
func (p *Pipeline) Seed(ctx context.Context, pages []store.Page, st *store.Store, resolver *identity.Resolver, maxConcurrent int) (*SeedResult, error) {
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	sem := make(chan struct{}, maxConcurrent)

	var wg sync.WaitGroup
	var succeeded atomic.Int32
	var failed atomic.Int32

	for _, page := range pages {
		wg.Add(1)
		go func(pg store.Page) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			source := pg.URL
			if source == "" {
				source = pg.Filename
			}

			product, timing, err := p.Run(ctx, pg.HTML, pg.URL)
			if err != nil {
				failed.Add(1)
				slog.Error("page extraction failed",
					"file", pg.Filename,
					"url", pg.URL,
					"error", err,
				)
				return
			}

			id := ProductID(source)
			if err := st.Put(id, product); err != nil {
				failed.Add(1)
				slog.Error("product write failed", "id", id, "error", err)
				return
			}
			succeeded.Add(1)
			slog.Info("page extracted",
				"id", id,
				"file", pg.Filename,
				"name", product.Name,
				"total_ms", timing.TotalMs,
			)
		}(page)
	}
	wg.Wait()

	// Identity pass runs over the whole store, not just this batch, so
	// reseeding folds new records into existing clusters.
	products := st.All()
	resolver.Resolve(products)
	for id, product := range products {
		if err := st.Put(id, product); err != nil {
			return nil, err
		}
	}

	result := &SeedResult{
		Total:     len(pages),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
	}
	slog.Info("seed batch finished",
		"total", result.Total,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"clusters", countClusters(products),
	)
	return result, nil
}

func countClusters(products map[string]*models.Product) int {
	seen := make(map[string]struct{})
	for _, p := range products {
		seen[p.CanonicalProductID] = struct{}{}
	}
	return len(seen)
}
