// Command skuforge-seed runs the extraction pipeline over a directory of
// saved product pages, writes the resulting product records to the store,
// and finishes with the batch identity pass.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/use-agent/skuforge/assemble"
	"github.com/use-agent/skuforge/config"
	"github.com/use-agent/skuforge/identity"
	"github.com/use-agent/skuforge/pipeline"
	"github.com/use-agent/skuforge/resolve"
	"github.com/use-agent/skuforge/store"
	"github.com/use-agent/skuforge/taxonomy"
)

func main() {
	cfg := config.Load()

	corpusDir := flag.String("pages", cfg.Store.CorpusDir, "directory of saved HTML pages (with optional pages.json manifest)")
	productsDir := flag.String("out", cfg.Store.ProductsDir, "directory for product JSON records")
	concurrency := flag.Int("concurrency", cfg.Pipeline.MaxConcurrent, "max concurrent page pipelines")
	logFormat := flag.String("log-format", "text", "log format: text or json")
	flag.Parse()

	initLogger(config.LogConfig{Level: cfg.Log.Level, Format: *logFormat})

	vocab, err := taxonomy.LoadFile(cfg.Taxonomy.Path)
	if err != nil {
		slog.Error("failed to load taxonomy", "path", cfg.Taxonomy.Path, "error", err)
		os.Exit(1)
	}

	pages, err := store.LoadCorpus(*corpusDir)
	if err != nil {
		slog.Error("failed to load page corpus", "dir", *corpusDir, "error", err)
		os.Exit(1)
	}
	if len(pages) == 0 {
		slog.Error("no pages found in corpus", "dir", *corpusDir)
		os.Exit(1)
	}
	slog.Info("corpus loaded", "dir", *corpusDir, "pages", len(pages))

	st, err := store.Open(*productsDir)
	if err != nil {
		slog.Error("failed to open product store", "dir", *productsDir, "error", err)
		os.Exit(1)
	}

	client := resolve.NewClient(resolve.Params{
		APIKey:  cfg.Resolver.APIKey,
		Model:   cfg.Resolver.Model,
		BaseURL: cfg.Resolver.BaseURL,
		Timeout: cfg.Resolver.Timeout,
	})
	assembler, err := assemble.New(client, vocab)
	if err != nil {
		slog.Error("failed to initialise assembler", "error", err)
		os.Exit(1)
	}

	resolver, err := identity.NewResolver(cfg.Identity)
	if err != nil {
		slog.Error("invalid identity configuration", "error", err)
		os.Exit(1)
	}

	p := pipeline.New(taxonomy.NewPrefilter(vocab), assembler)
	result, err := p.Seed(context.Background(), pages, st, resolver, *concurrency)
	if err != nil {
		slog.Error("seed run failed", "error", err)
		os.Exit(1)
	}

	if result.Failed == result.Total {
		os.Exit(1)
	}
}

func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
