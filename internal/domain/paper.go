package domain

import (
	"encoding/json"
	"regexp"
	"strings"
)

// AccessType describes how a paper can be read.
type AccessType string

const (
	AccessOpen      AccessType = "open"
	AccessPaywalled AccessType = "paywalled"
	AccessUnknown   AccessType = "unknown"
)

// SourceType describes the publication venue class of a record.
type SourceType string

const (
	SourcePeerReviewed   SourceType = "peer_reviewed"
	SourcePreprint       SourceType = "preprint"
	SourceConference     SourceType = "conference"
	SourceThesis         SourceType = "thesis"
	SourceBookChapter    SourceType = "book_chapter"
	SourceGreyLiterature SourceType = "grey_literature"
	SourceTypeUnknown    SourceType = "unknown"
)

type Author struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
	Orcid       string `json:"orcid,omitempty"`
}

// Paper is the normalized bibliographic record shared by every adapter.
// IDs are prefixed with a source tag (pubmed_, s2_, arxiv_, ...) and are
// unique per source only.
type Paper struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	Authors []Author `json:"authors"`

	Year      *int   `json:"year"`
	Journal   string `json:"journal,omitempty"`
	Publisher string `json:"publisher,omitempty"`
	Volume    string `json:"volume,omitempty"`
	Issue     string `json:"issue,omitempty"`
	Pages     string `json:"pages,omitempty"`

	DOI     string `json:"doi,omitempty"`
	PMID    string `json:"pmid,omitempty"`
	PMCID   string `json:"pmcid,omitempty"`
	ArxivID string `json:"arxivId,omitempty"`

	Abstract string   `json:"abstract,omitempty"`
	Keywords []string `json:"keywords"`

	CitationCount  int `json:"citationCount"`
	ReferenceCount int `json:"referenceCount"`

	AccessType AccessType `json:"accessType"`
	PDFURL     string     `json:"pdfUrl,omitempty"`
	HTMLURL    string     `json:"htmlUrl,omitempty"`

	Source         string     `json:"source"`
	SourceType     SourceType `json:"sourceType"`
	SourcesFoundIn []string   `json:"sourcesFoundIn"`

	Reliability ReliabilityScore `json:"reliability"`

	// URLs maps a named role (doi, pdf, pmc, arxiv, scihub, ...) to a link.
	URLs map[string]string `json:"urls"`

	RelevanceScore float64 `json:"relevanceScore"`
}

// AuthorNames returns the ordered author name list.
func (p *Paper) AuthorNames() []string {
	names := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		names = append(names, a.Name)
	}
	return names
}

// AuthorString renders authors for display: up to three names, then "et al.".
func (p *Paper) AuthorString() string {
	names := p.AuthorNames()
	switch {
	case len(names) == 0:
		return "Unknown"
	case len(names) <= 3:
		return strings.Join(names, ", ")
	default:
		return strings.Join(names[:3], ", ") + " et al."
	}
}

// MarshalJSON adds the computed authorString field to the serialized record
// and rounds the relevance score to three decimals.
func (p *Paper) MarshalJSON() ([]byte, error) {
	type alias Paper
	return json.Marshal(struct {
		*alias
		AuthorString   string  `json:"authorString"`
		RelevanceScore float64 `json:"relevanceScore"`
	}{(*alias)(p), p.AuthorString(), round3(p.RelevanceScore)})
}

var yearRe = regexp.MustCompile(`\d{4}`)

// YearFromDate extracts a publication year from the first four digits of an
// upstream date string. Returns nil when no year is present.
func YearFromDate(date string) *int {
	m := yearRe.FindString(date)
	if m == "" {
		return nil
	}
	y := 0
	for _, c := range m {
		y = y*10 + int(c-'0')
	}
	return &y
}

// YearOf wraps a known-good year value.
func YearOf(y int) *int { return &y }

// CollapseSpace trims a string and collapses internal whitespace runs.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
