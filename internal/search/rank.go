package search

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Indranil2020/search/internal/domain"
)

// queryTerms tokenizes a query through the same normalization used for
// titles, so stopwords and punctuation never shift overlap scores.
func queryTerms(query string) map[string]bool {
	terms := map[string]bool{}
	for _, w := range strings.Fields(NormalizeTitle(query)) {
		terms[w] = true
	}
	return terms
}

// relevance scores a paper against a query. Components: title term overlap
// (up to 30), abstract overlap (up to 15), log-scaled citations (up to 20),
// reliability (up to 20), recency (up to 10), open access bonus (5).
func relevance(p *domain.Paper, terms map[string]bool) float64 {
	var score float64

	titleWords := strings.Fields(NormalizeTitle(p.Title))
	overlap := 0
	seen := map[string]bool{}
	for _, w := range titleWords {
		if terms[w] && !seen[w] {
			overlap++
			seen[w] = true
		}
	}
	denom := len(terms)
	if denom < 1 {
		denom = 1
	}
	score += float64(overlap) / float64(denom) * 30

	if p.Abstract != "" {
		abstractWords := strings.Fields(NormalizeTitle(p.Abstract))
		hits := 0
		seenAbs := map[string]bool{}
		for _, w := range abstractWords {
			if terms[w] && !seenAbs[w] {
				hits++
				seenAbs[w] = true
			}
		}
		score += math.Min(15, float64(hits)*3)
	}

	if p.CitationCount > 0 {
		score += math.Min(20, math.Log10(float64(p.CitationCount)+1)*5)
	}

	score += p.Reliability.Total() * 20

	if p.Year != nil {
		switch age := time.Now().Year() - *p.Year; {
		case age <= 2:
			score += 10
		case age <= 5:
			score += 7
		case age <= 10:
			score += 4
		default:
			score += 1
		}
	}

	if p.AccessType == domain.AccessOpen {
		score += 5
	}

	return score
}

// Rank assigns relevance scores and sorts descending. Ties preserve the
// incoming order.
func Rank(papers []*domain.Paper, query string) {
	terms := queryTerms(query)
	for _, p := range papers {
		p.RelevanceScore = relevance(p, terms)
	}
	sort.SliceStable(papers, func(i, j int) bool {
		return papers[i].RelevanceScore > papers[j].RelevanceScore
	})
}

// Filters narrows a ranked result set. Zero values disable each filter.
type Filters struct {
	YearStart        int
	YearEnd          int
	MinReliability   float64
	ExcludePreprints bool
}

// Apply runs the filters in order: year range, minimum reliability, preprint
// exclusion.
func (f Filters) Apply(papers []*domain.Paper) []*domain.Paper {
	out := papers[:0:0]
	for _, p := range papers {
		if f.YearStart > 0 && (p.Year == nil || *p.Year < f.YearStart) {
			continue
		}
		if f.YearEnd > 0 && (p.Year == nil || *p.Year > f.YearEnd) {
			continue
		}
		if f.MinReliability > 0 && p.Reliability.Total() < f.MinReliability {
			continue
		}
		if f.ExcludePreprints && p.SourceType == domain.SourcePreprint {
			continue
		}
		out = append(out, p)
	}
	return out
}
