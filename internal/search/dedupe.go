package search

import (
	"regexp"
	"strings"

	"github.com/Indranil2020/search/internal/domain"
)

var (
	punctRe = regexp.MustCompile(`[^\w\s]`)

	titleStopwords = map[string]bool{
		"the": true, "a": true, "an": true, "and": true, "or": true,
		"of": true, "in": true, "on": true, "for": true, "to": true,
		"with": true,
	}
)

// NormalizeTitle reduces a title to a comparison key: lowercased, stripped of
// punctuation and stopwords, with whitespace collapsed.
func NormalizeTitle(title string) string {
	lower := strings.ToLower(title)
	lower = punctRe.ReplaceAllString(lower, "")
	var kept []string
	for _, w := range strings.Fields(lower) {
		if !titleStopwords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// Deduplicate collapses records describing the same work. Papers are walked
// in arrival order and matched by DOI, then PMID, then arXiv id, then
// normalized title; the first hit wins and the later record is merged into
// the earlier one. Returns the unique papers and the number removed.
func Deduplicate(papers []*domain.Paper) ([]*domain.Paper, int) {
	var unique []*domain.Paper

	byDOI := map[string]*domain.Paper{}
	byPMID := map[string]*domain.Paper{}
	byArxiv := map[string]*domain.Paper{}
	byTitle := map[string]*domain.Paper{}

	removed := 0

	for _, p := range papers {
		doi := strings.ToLower(strings.TrimSpace(p.DOI))
		pmid := strings.TrimSpace(p.PMID)
		arxivID := strings.ToLower(strings.TrimSpace(p.ArxivID))
		titleKey := NormalizeTitle(p.Title)

		var target *domain.Paper
		switch {
		case doi != "" && byDOI[doi] != nil:
			target = byDOI[doi]
		case pmid != "" && byPMID[pmid] != nil:
			target = byPMID[pmid]
		case arxivID != "" && byArxiv[arxivID] != nil:
			target = byArxiv[arxivID]
		case titleKey != "" && byTitle[titleKey] != nil:
			target = byTitle[titleKey]
		}

		if target != nil {
			merge(target, p)
			removed++
			continue
		}

		unique = append(unique, p)
		if doi != "" {
			byDOI[doi] = p
		}
		if pmid != "" {
			byPMID[pmid] = p
		}
		if arxivID != "" {
			byArxiv[arxivID] = p
		}
		if titleKey != "" {
			byTitle[titleKey] = p
		}
	}

	return unique, removed
}

// merge folds src into dst. dst's values win except where src fills a gap,
// raises the citation count, or upgrades access to open.
func merge(dst, src *domain.Paper) {
	for _, s := range src.SourcesFoundIn {
		if !containsStr(dst.SourcesFoundIn, s) {
			dst.SourcesFoundIn = append(dst.SourcesFoundIn, s)
		}
	}

	if src.CitationCount > dst.CitationCount {
		dst.CitationCount = src.CitationCount
	}

	if dst.DOI == "" {
		dst.DOI = src.DOI
	}
	if dst.PMID == "" {
		dst.PMID = src.PMID
	}
	if dst.PMCID == "" {
		dst.PMCID = src.PMCID
	}
	if dst.ArxivID == "" {
		dst.ArxivID = src.ArxivID
	}
	if dst.Abstract == "" {
		dst.Abstract = src.Abstract
	}
	if dst.Year == nil {
		dst.Year = src.Year
	}
	if dst.Journal == "" {
		dst.Journal = src.Journal
	}
	if dst.Publisher == "" {
		dst.Publisher = src.Publisher
	}

	for _, k := range src.Keywords {
		if !containsStr(dst.Keywords, k) {
			dst.Keywords = append(dst.Keywords, k)
		}
	}

	if dst.URLs == nil {
		dst.URLs = map[string]string{}
	}
	for role, link := range src.URLs {
		dst.URLs[role] = link
	}

	if src.AccessType == domain.AccessOpen {
		dst.AccessType = domain.AccessOpen
		if src.PDFURL != "" {
			dst.PDFURL = src.PDFURL
		}
	}
}

func containsStr(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
