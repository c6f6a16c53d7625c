package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Indranil2020/search/internal/config"
	delivery "github.com/Indranil2020/search/internal/delivery/http"
	"github.com/Indranil2020/search/internal/domain"
	"github.com/Indranil2020/search/internal/search"
	"github.com/Indranil2020/search/pkg/arxiv"
	"github.com/Indranil2020/search/pkg/basesearch"
	"github.com/Indranil2020/search/pkg/coreac"
	"github.com/Indranil2020/search/pkg/crossref"
	"github.com/Indranil2020/search/pkg/europepmc"
	"github.com/Indranil2020/search/pkg/openalex"
	"github.com/Indranil2020/search/pkg/pubmed"
	"github.com/Indranil2020/search/pkg/semanticscholar"
	"github.com/Indranil2020/search/pkg/unpaywall"
)

func main() {
	cfg := config.Load()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "search",
	})
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	s2 := semanticscholar.NewClient(cfg.Keys.SemanticScholar)

	sources := []domain.Source{
		pubmed.NewClient(cfg.Keys.NCBI, cfg.Email),
		s2,
		arxiv.NewClient(),
		openalex.NewClient(cfg.Email),
		crossref.NewClient(cfg.Email),
		coreac.NewClient(cfg.Keys.CORE),
		basesearch.NewClient(),
		europepmc.NewClient(),
	}

	var access *unpaywall.Client
	if cfg.Email != "" {
		access = unpaywall.NewClient(cfg.Email)
	} else {
		logger.Warn("SEARCH_EMAIL not set, access enrichment disabled")
	}

	engine := search.NewEngine(search.DefaultConfig(), sources, s2, access, logger)

	handler := delivery.NewHandler(engine, logger)
	router := delivery.NewRouter(handler, cfg.CORS.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port, "sources", engine.SourceNames())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("forced shutdown", "error", err)
	}

	logger.Info("server stopped")
}
