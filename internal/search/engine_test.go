package search

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Indranil2020/search/internal/domain"
)

type stubSource struct {
	name   string
	papers []*domain.Paper
	err    error

	citing []*domain.Paper
	cited  []*domain.Paper
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Search(ctx context.Context, query string, maxResults int) ([]*domain.Paper, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.papers, nil
}

func (s *stubSource) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	for _, p := range s.papers {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (s *stubSource) Citations(ctx context.Context, p *domain.Paper) ([]*domain.Paper, error) {
	return s.citing, nil
}

func (s *stubSource) References(ctx context.Context, p *domain.Paper) ([]*domain.Paper, error) {
	return s.cited, nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func paper(id, title, doi, source string, citations int) *domain.Paper {
	return &domain.Paper{
		ID:             id,
		Title:          title,
		DOI:            doi,
		Source:         source,
		SourcesFoundIn: []string{source},
		CitationCount:  citations,
		SourceType:     domain.SourcePeerReviewed,
	}
}

func TestEngineSearchMergesAcrossSources(t *testing.T) {
	t.Parallel()

	a := &stubSource{name: "A", papers: []*domain.Paper{
		paper("a_1", "Protein folding dynamics", "10.1/dup", "A", 10),
		paper("a_2", "Unique to A", "10.1/a2", "A", 0),
	}}
	b := &stubSource{name: "B", papers: []*domain.Paper{
		paper("b_1", "Protein Folding Dynamics!", "10.1/DUP", "B", 50),
	}}

	engine := NewEngine(DefaultConfig(), []domain.Source{a, b}, nil, nil, testLogger())

	result, err := engine.Search(context.Background(), Request{Query: "protein folding"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalFound)
	assert.Equal(t, 1, result.DuplicatesRemoved)
	assert.Equal(t, []string{"A", "B"}, result.SourcesSearched)

	// The merged paper carries both provenances and the higher citation count.
	var merged *domain.Paper
	for _, p := range result.Papers {
		if p.ID == "a_1" {
			merged = p
		}
	}
	require.NotNil(t, merged)
	assert.Equal(t, []string{"A", "B"}, merged.SourcesFoundIn)
	assert.Equal(t, 50, merged.CitationCount)
	// Verification was rescored with two agreeing sources.
	assert.Equal(t, 0.10, merged.Reliability.Verification)
}

func TestEngineSearchToleratesSourceFailure(t *testing.T) {
	t.Parallel()

	ok := &stubSource{name: "OK", papers: []*domain.Paper{
		paper("ok_1", "A result", "10.1/ok", "OK", 1),
	}}
	broken := &stubSource{name: "Broken", err: errors.New("upstream down")}

	engine := NewEngine(DefaultConfig(), []domain.Source{ok, broken}, nil, nil, testLogger())

	var mu sync.Mutex
	var updates []ProgressUpdate
	progress := func(u ProgressUpdate) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, u)
	}

	result, err := engine.Search(context.Background(), Request{Query: "anything"}, progress)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalFound)
	assert.Equal(t, []string{"OK"}, result.SourcesSearched, "failed sources are not listed as searched")

	var sawBanner, sawError, sawComplete bool
	for _, u := range updates {
		if u.Phase == PhaseSearch && u.Source == "" && u.Status == StatusRunning {
			sawBanner = true
		}
		if u.Phase == PhaseSearch && u.Source == "Broken" && u.Status == StatusError {
			sawError = true
		}
		if u.Phase == PhaseComplete && u.Status == StatusComplete {
			sawComplete = true
		}
	}
	assert.True(t, sawBanner, "expected a phase-level update before per-source ones")
	assert.True(t, sawError, "expected an error update for the broken source")
	assert.True(t, sawComplete, "expected a terminal complete update")
}

func TestEngineSearchRejectsEmptyQuery(t *testing.T) {
	t.Parallel()

	engine := NewEngine(DefaultConfig(), nil, nil, nil, testLogger())

	_, err := engine.Search(context.Background(), Request{}, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)

	_, err = engine.Search(context.Background(), Request{Query: "   "}, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyQuery, "whitespace-only queries are empty")
}

func TestEngineCitationExpansion(t *testing.T) {
	t.Parallel()

	seedPaper := paper("s2_seed", "Seminal work", "10.1/seed", "S2", 100)
	zeroCited := paper("s2_zero", "Never cited", "10.1/zero", "S2", 0)

	src := &stubSource{
		name:   "S2",
		papers: []*domain.Paper{seedPaper, zeroCited},
		citing: []*domain.Paper{paper("s2_c1", "Cites the seminal work", "10.1/c1", "S2", 3)},
		cited:  []*domain.Paper{paper("s2_r1", "Cited by the seminal work", "10.1/r1", "S2", 7)},
	}

	engine := NewEngine(DefaultConfig(), []domain.Source{src}, src, nil, testLogger())

	// expandCitations defaults to true when absent.
	result, err := engine.Search(context.Background(), Request{Query: "seminal"}, nil)
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, p := range result.Papers {
		ids[p.ID] = true
	}
	assert.True(t, ids["s2_c1"], "citing paper should be in the result")
	assert.True(t, ids["s2_r1"], "referenced paper should be in the result")
	assert.Equal(t, 4, result.TotalFound)

	off := false
	resultOff, err := engine.Search(context.Background(), Request{Query: "seminal", ExpandCitations: &off}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, resultOff.TotalFound, "expansion disabled leaves only direct hits")
}

func TestEngineSearchAppliesFilters(t *testing.T) {
	t.Parallel()

	recent := paper("a_1", "Recent work", "10.1/r", "A", 5)
	recent.Year = domain.YearOf(2024)
	ancient := paper("a_2", "Ancient work", "10.1/o", "A", 500)
	ancient.Year = domain.YearOf(1980)

	preprint := paper("a_3", "Preprint work", "10.1/p", "A", 2)
	preprint.Year = domain.YearOf(2024)
	preprint.SourceType = domain.SourcePreprint

	src := &stubSource{name: "A", papers: []*domain.Paper{recent, ancient, preprint}}
	engine := NewEngine(DefaultConfig(), []domain.Source{src}, nil, nil, testLogger())

	includePreprints := false
	result, err := engine.Search(context.Background(), Request{
		Query:            "work",
		YearStart:        2000,
		IncludePreprints: &includePreprints,
	}, nil)
	require.NoError(t, err)

	require.Equal(t, 1, result.TotalFound)
	assert.Equal(t, "a_1", result.Papers[0].ID)
}

func TestEngineGetByID(t *testing.T) {
	t.Parallel()

	src := &stubSource{name: "A", papers: []*domain.Paper{
		paper("a_1", "Some record", "10.1/x", "A", 0),
	}}
	engine := NewEngine(DefaultConfig(), []domain.Source{src}, nil, nil, testLogger())

	got, err := engine.GetByID(context.Background(), "A", "a_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a_1", got.ID)

	missing, err := engine.GetByID(context.Background(), "A", "a_404")
	require.NoError(t, err)
	assert.Nil(t, missing)

	unknown, err := engine.GetByID(context.Background(), "Nope", "a_1")
	require.NoError(t, err)
	assert.Nil(t, unknown)
}
