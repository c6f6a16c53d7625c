// Package arxiv searches the arXiv preprint server through its Atom API.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/Indranil2020/search/internal/domain"
	"github.com/Indranil2020/search/pkg/httpclient"
)

const (
	Name = "arXiv"

	baseURL = "http://export.arxiv.org/api/query"
)

// arXiv ids come in the modern 2007.12345 form or the legacy cs/0112017 form,
// optionally with a version suffix.
var (
	newIDRe = regexp.MustCompile(`(\d{4}\.\d{4,5})(v\d+)?`)
	oldIDRe = regexp.MustCompile(`([a-z-]+/\d{7})(v\d+)?`)
)

type Client struct {
	http *httpclient.Client
}

// NewClient creates an arXiv adapter. arXiv asks clients to stay at or below
// one request per second.
func NewClient() *Client {
	return &Client{http: httpclient.New(1.0)}
}

func (c *Client) Name() string { return Name }

type feed struct {
	XMLName xml.Name `xml:"feed"`
	Entries []entry  `xml:"entry"`
}

type entry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name        string `xml:"name"`
		Affiliation string `xml:"affiliation"`
	} `xml:"author"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
	PrimaryCategory struct {
		Term string `xml:"term,attr"`
	} `xml:"primary_category"`
	JournalRef string `xml:"journal_ref"`
	DOI        string `xml:"doi"`
	Links      []struct {
		Href  string `xml:"href,attr"`
		Title string `xml:"title,attr"`
		Type  string `xml:"type,attr"`
	} `xml:"link"`
}

// Search pages through the Atom feed by start offset.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]*domain.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	var papers []*domain.Paper
	start := 0
	pageSize := min(100, maxResults)

	for len(papers) < maxResults {
		batch, err := c.searchBatch(ctx, query, start, pageSize)
		if err != nil {
			if len(papers) > 0 {
				return papers, nil
			}
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		papers = append(papers, batch...)
		start += pageSize
		if len(batch) < pageSize {
			break
		}
	}

	if len(papers) > maxResults {
		papers = papers[:maxResults]
	}
	return papers, nil
}

func (c *Client) searchBatch(ctx context.Context, query string, start, pageSize int) ([]*domain.Paper, error) {
	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("start", fmt.Sprintf("%d", start))
	params.Set("max_results", fmt.Sprintf("%d", pageSize))
	params.Set("sortBy", "relevance")
	params.Set("sortOrder", "descending")

	resp, err := c.http.Get(ctx, baseURL, params, nil)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var f feed
	if err := resp.XML(&f); err != nil {
		return nil, err
	}

	papers := make([]*domain.Paper, 0, len(f.Entries))
	for i := range f.Entries {
		if p := entryToPaper(&f.Entries[i]); p != nil {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

// GetByID fetches a single record by arXiv id, with or without the arxiv_
// prefix or version suffix.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	if id == "" {
		return nil, domain.ErrEmptyID
	}
	arxivID := strings.TrimSpace(strings.TrimPrefix(id, "arxiv_"))

	params := url.Values{}
	params.Set("id_list", arxivID)
	params.Set("max_results", "1")

	resp, err := c.http.Get(ctx, baseURL, params, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	var f feed
	if err := resp.XML(&f); err != nil {
		return nil, err
	}
	if len(f.Entries) == 0 {
		return nil, nil
	}
	return entryToPaper(&f.Entries[0]), nil
}

// extractID pulls the bare arXiv id out of an Atom entry id URL, dropping
// any version suffix.
func extractID(entryID string) string {
	if m := newIDRe.FindStringSubmatch(entryID); m != nil {
		return m[1]
	}
	if m := oldIDRe.FindStringSubmatch(entryID); m != nil {
		return m[1]
	}
	return ""
}

func entryToPaper(e *entry) *domain.Paper {
	arxivID := extractID(e.ID)
	if arxivID == "" {
		return nil
	}

	title := domain.CollapseSpace(e.Title)
	if title == "" {
		title = "Unknown"
	}

	authors := make([]domain.Author, 0, len(e.Authors))
	for _, a := range e.Authors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		authors = append(authors, domain.Author{
			Name:        name,
			Affiliation: strings.TrimSpace(a.Affiliation),
		})
	}

	journal := strings.TrimSpace(e.JournalRef)
	if journal == "" {
		if e.PrimaryCategory.Term != "" {
			journal = "arXiv:" + e.PrimaryCategory.Term
		} else {
			journal = "arXiv"
		}
	}

	var keywords []string
	for _, c := range e.Categories {
		if c.Term != "" {
			keywords = append(keywords, c.Term)
		}
		if len(keywords) == 10 {
			break
		}
	}

	pdfURL := "https://arxiv.org/pdf/" + arxivID + ".pdf"

	p := &domain.Paper{
		ID:             "arxiv_" + arxivID,
		Title:          title,
		Authors:        authors,
		Year:           domain.YearFromDate(e.Published),
		Journal:        journal,
		DOI:            strings.TrimSpace(e.DOI),
		ArxivID:        arxivID,
		Abstract:       domain.CollapseSpace(e.Summary),
		Keywords:       keywords,
		Source:         Name,
		SourceType:     domain.SourcePreprint,
		SourcesFoundIn: []string{Name},
		AccessType:     domain.AccessOpen,
		PDFURL:         pdfURL,
		URLs: map[string]string{
			"arxiv":     "https://arxiv.org/abs/" + arxivID,
			"arxiv_pdf": pdfURL,
			"pdf":       pdfURL,
		},
	}

	if p.DOI != "" {
		p.URLs["doi"] = "https://doi.org/" + p.DOI
	}

	p.Reliability = domain.CalculateReliability(p, domain.ReliabilityInput{
		JournalName:  journal,
		SourcesFound: 1,
		Year:         p.Year,
	})

	return p
}
