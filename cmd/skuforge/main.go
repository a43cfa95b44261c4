package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/skuforge/api"
	"github.com/use-agent/skuforge/assemble"
	"github.com/use-agent/skuforge/config"
	"github.com/use-agent/skuforge/identity"
	"github.com/use-agent/skuforge/pipeline"
	"github.com/use-agent/skuforge/resolve"
	"github.com/use-agent/skuforge/store"
	"github.com/use-agent/skuforge/taxonomy"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("skuforge starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
	)

	// ── 3. Load taxonomy vocabulary ─────────────────────────────────
	vocab, err := taxonomy.LoadFile(cfg.Taxonomy.Path)
	if err != nil {
		slog.Error("failed to load taxonomy", "path", cfg.Taxonomy.Path, "error", err)
		os.Exit(1)
	}
	slog.Info("taxonomy loaded", "path", cfg.Taxonomy.Path, "categories", vocab.Len())

	// ── 4. Open product store ───────────────────────────────────────
	st, err := store.Open(cfg.Store.ProductsDir)
	if err != nil {
		slog.Error("failed to open product store", "dir", cfg.Store.ProductsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("product store opened", "dir", cfg.Store.ProductsDir, "products", st.Len())

	// ── 5. Build the pipeline ───────────────────────────────────────
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
	p := pipeline.New(taxonomy.NewPrefilter(vocab), assembler)

	resolver, err := identity.NewResolver(cfg.Identity)
	if err != nil {
		slog.Error("invalid identity configuration", "error", err)
		os.Exit(1)
	}

	// ── 6. Setup router and HTTP server ─────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(p, st, vocab, resolver, cfg, startTime)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("skuforge stopped")
}

// initLogger configures slog based on the LogConfig.
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
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
