// Package search federates queries across bibliographic sources and folds
// the results into one deduplicated, scored, ranked set.
package search

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Indranil2020/search/internal/domain"
	"github.com/Indranil2020/search/pkg/unpaywall"
)

// Config tunes the engine pipeline.
type Config struct {
	// MaxPerSource caps how many records each source may contribute.
	MaxPerSource int
	// CitationSeeds is how many top-cited results seed citation expansion.
	CitationSeeds int
	// CitationsPerSeed caps citing and cited records kept per seed.
	CitationsPerSeed int
	// EnrichTop is how many ranked results get an access lookup.
	EnrichTop int
}

// DefaultConfig returns the production pipeline settings.
func DefaultConfig() Config {
	return Config{
		MaxPerSource:     100,
		CitationSeeds:    20,
		CitationsPerSeed: 5,
		EnrichTop:        50,
	}
}

// Request is one federated search. IncludePreprints and ExpandCitations
// default to true when absent from the request body.
type Request struct {
	Query            string  `json:"query"`
	MaxPerSource     int     `json:"maxPerSource"`
	YearStart        int     `json:"yearStart"`
	YearEnd          int     `json:"yearEnd"`
	MinReliability   float64 `json:"minReliability"`
	IncludePreprints *bool   `json:"includePreprints"`
	ExpandCitations  *bool   `json:"expandCitations"`
}

func (r Request) excludePreprints() bool {
	return r.IncludePreprints != nil && !*r.IncludePreprints
}

func (r Request) expandCitations() bool {
	return r.ExpandCitations == nil || *r.ExpandCitations
}

// Engine owns the source registry and runs the search pipeline. It is safe
// for concurrent use; all per-search state lives on the stack.
type Engine struct {
	cfg       Config
	sources   []domain.Source
	citations domain.CitationSource
	access    *unpaywall.Client
	logger    *log.Logger
}

// NewEngine creates an engine over the registered sources. citations and
// access may be nil, disabling citation expansion and access enrichment.
func NewEngine(cfg Config, sources []domain.Source, citations domain.CitationSource, access *unpaywall.Client, logger *log.Logger) *Engine {
	if cfg.MaxPerSource <= 0 {
		cfg.MaxPerSource = DefaultConfig().MaxPerSource
	}
	if cfg.CitationSeeds <= 0 {
		cfg.CitationSeeds = DefaultConfig().CitationSeeds
	}
	if cfg.CitationsPerSeed <= 0 {
		cfg.CitationsPerSeed = DefaultConfig().CitationsPerSeed
	}
	if cfg.EnrichTop <= 0 {
		cfg.EnrichTop = DefaultConfig().EnrichTop
	}
	return &Engine{
		cfg:       cfg,
		sources:   sources,
		citations: citations,
		access:    access,
		logger:    logger,
	}
}

// SourceNames returns the registered source names in registration order.
func (e *Engine) SourceNames() []string {
	names := make([]string, len(e.sources))
	for i, s := range e.sources {
		names[i] = s.Name()
	}
	return names
}

// GetByID asks the named source for one record.
func (e *Engine) GetByID(ctx context.Context, sourceName, id string) (*domain.Paper, error) {
	for _, s := range e.sources {
		if s.Name() == sourceName {
			return s.GetByID(ctx, id)
		}
	}
	return nil, nil
}

// Search runs the full pipeline: fan out to every source, optionally expand
// citations, deduplicate, rescore, enrich, rank and filter. Individual
// source failures are reported through progress and logged but never fail
// the search. progress may be nil.
func (e *Engine) Search(ctx context.Context, req Request, progress ProgressFunc) (*SearchResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	started := time.Now()
	logger := e.logger.With("search", uuid.NewString()[:8], "query", req.Query)

	var mu sync.Mutex
	notify := func(u ProgressUpdate) {
		if progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		progress(u)
	}

	maxPerSource := req.MaxPerSource
	if maxPerSource <= 0 || maxPerSource > e.cfg.MaxPerSource {
		maxPerSource = e.cfg.MaxPerSource
	}

	papers, searched := e.fanOut(ctx, logger, req.Query, maxPerSource, notify)
	logger.Info("sources done", "papers", len(papers), "sources", len(searched))

	if req.expandCitations() && e.citations != nil {
		papers = append(papers, e.expandCitations(ctx, logger, papers, notify)...)
	}

	notify(ProgressUpdate{Phase: PhaseProcess, Status: StatusRunning, Message: "deduplicating and scoring"})

	unique, removed := Deduplicate(papers)
	for _, p := range unique {
		rescore(p)
	}

	Rank(unique, req.Query)

	if e.access != nil {
		e.enrich(ctx, logger, unique)
	}

	filtered := Filters{
		YearStart:        req.YearStart,
		YearEnd:          req.YearEnd,
		MinReliability:   req.MinReliability,
		ExcludePreprints: req.excludePreprints(),
	}.Apply(unique)

	rel, acc, tl := summarize(filtered)

	elapsed := math.Round(time.Since(started).Seconds()*100) / 100

	result := &SearchResult{
		Query:             req.Query,
		Papers:            filtered,
		TotalFound:        len(filtered),
		SourcesSearched:   searched,
		DuplicatesRemoved: removed,
		SearchTimeSeconds: elapsed,
		Reliability:       rel,
		Access:            acc,
		Timeline:          tl,
	}

	notify(ProgressUpdate{Phase: PhaseComplete, Status: StatusComplete, Count: len(filtered)})
	logger.Info("search complete", "results", len(filtered), "duplicates", removed, "seconds", elapsed)

	return result, nil
}

// fanOut queries every source concurrently. Results land in per-source slots
// and are concatenated in registration order so output is deterministic
// regardless of completion order. The second return value names the sources
// that answered successfully.
func (e *Engine) fanOut(ctx context.Context, logger *log.Logger, query string, maxPerSource int, notify ProgressFunc) ([]*domain.Paper, []string) {
	slots := make([][]*domain.Paper, len(e.sources))
	succeeded := make([]bool, len(e.sources))

	notify(ProgressUpdate{Phase: PhaseSearch, Status: StatusRunning, Message: "Searching all databases"})

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range e.sources {
		i, src := i, src
		g.Go(func() error {
			notify(ProgressUpdate{Phase: PhaseSearch, Source: src.Name(), Status: StatusRunning})

			found, err := src.Search(gctx, query, maxPerSource)
			if err != nil {
				logger.Warn("source failed", "source", src.Name(), "error", err)
				notify(ProgressUpdate{Phase: PhaseSearch, Source: src.Name(), Status: StatusError, Message: err.Error()})
				return nil
			}

			slots[i] = found
			succeeded[i] = true
			notify(ProgressUpdate{Phase: PhaseSearch, Source: src.Name(), Status: StatusComplete, Count: len(found)})
			return nil
		})
	}
	// Goroutines report failures through progress, never as errors.
	_ = g.Wait()

	var papers []*domain.Paper
	searched := make([]string, 0, len(e.sources))
	for i, slot := range slots {
		papers = append(papers, slot...)
		if succeeded[i] {
			searched = append(searched, e.sources[i].Name())
		}
	}
	return papers, searched
}

// expandCitations walks citation edges for the most-cited results. Zero-cited
// papers never seed expansion and edge failures are non-fatal.
func (e *Engine) expandCitations(ctx context.Context, logger *log.Logger, papers []*domain.Paper, notify ProgressFunc) []*domain.Paper {
	seeds := make([]*domain.Paper, 0, len(papers))
	for _, p := range papers {
		if p.CitationCount > 0 {
			seeds = append(seeds, p)
		}
	}
	sort.SliceStable(seeds, func(i, j int) bool {
		return seeds[i].CitationCount > seeds[j].CitationCount
	})
	if len(seeds) > e.cfg.CitationSeeds {
		seeds = seeds[:e.cfg.CitationSeeds]
	}

	notify(ProgressUpdate{Phase: PhaseCitations, Status: StatusRunning, Count: len(seeds)})

	var extra []*domain.Paper
	for _, seed := range seeds {
		citing, err := e.citations.Citations(ctx, seed)
		if err != nil {
			logger.Debug("citation lookup failed", "paper", seed.ID, "error", err)
		} else {
			extra = append(extra, firstN(citing, e.cfg.CitationsPerSeed)...)
		}

		cited, err := e.citations.References(ctx, seed)
		if err != nil {
			logger.Debug("reference lookup failed", "paper", seed.ID, "error", err)
		} else {
			extra = append(extra, firstN(cited, e.cfg.CitationsPerSeed)...)
		}
	}

	notify(ProgressUpdate{Phase: PhaseCitations, Status: StatusComplete, Count: len(extra)})
	return extra
}

func firstN(papers []*domain.Paper, n int) []*domain.Paper {
	if len(papers) > n {
		return papers[:n]
	}
	return papers
}

// rescore recomputes reliability after merging, when the verification
// evidence (how many sources agree) is finally known.
func rescore(p *domain.Paper) {
	p.Reliability = domain.CalculateReliability(p, domain.ReliabilityInput{
		PeerReviewed:  p.SourceType == domain.SourcePeerReviewed,
		JournalName:   p.Journal,
		CitationCount: p.CitationCount,
		SourcesFound:  len(p.SourcesFoundIn),
		Year:          p.Year,
		Retracted:     p.Reliability.IsRetracted,
	})
}

// enrich resolves open access status for the top ranked papers that still
// lack a readable copy.
func (e *Engine) enrich(ctx context.Context, logger *log.Logger, papers []*domain.Paper) {
	n := min(e.cfg.EnrichTop, len(papers))
	for _, p := range papers[:n] {
		if p.AccessType == domain.AccessOpen || p.DOI == "" {
			continue
		}
		if err := e.access.Enrich(ctx, p); err != nil {
			logger.Debug("access lookup failed", "doi", p.DOI, "error", err)
		}
	}
}
