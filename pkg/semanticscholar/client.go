// Package semanticscholar searches the Semantic Scholar Graph API and walks
// its citation edges.
package semanticscholar

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Indranil2020/search/internal/domain"
	"github.com/Indranil2020/search/pkg/httpclient"
)

const (
	Name = "Semantic Scholar"

	baseURL = "https://api.semanticscholar.org/graph/v1"
)

var fields = strings.Join([]string{
	"paperId", "title", "abstract", "year", "citationCount",
	"authors", "journal", "venue", "publicationVenue",
	"externalIds", "openAccessPdf", "fieldsOfStudy",
	"publicationTypes", "referenceCount", "isOpenAccess",
}, ",")

type Client struct {
	http   *httpclient.Client
	apiKey string
}

// NewClient creates a Semantic Scholar adapter. Without a key the public
// allowance is 100 requests per 5 minutes; a key raises it to 1/s.
func NewClient(apiKey string) *Client {
	rate := 0.33
	if apiKey != "" {
		rate = 1.0
	}
	return &Client{
		http:   httpclient.New(rate),
		apiKey: apiKey,
	}
}

func (c *Client) Name() string { return Name }

type paperResult struct {
	PaperID  string `json:"paperId"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Year     *int   `json:"year"`
	Authors  []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Venue            string `json:"venue"`
	PublicationVenue *struct {
		Name string `json:"name"`
	} `json:"publicationVenue"`
	ExternalIDs struct {
		DOI    string `json:"DOI"`
		PubMed string `json:"PubMed"`
		ArXiv  string `json:"ArXiv"`
		PMCID  string `json:"PMCID"`
	} `json:"externalIds"`
	CitationCount  int  `json:"citationCount"`
	ReferenceCount int  `json:"referenceCount"`
	IsOpenAccess   bool `json:"isOpenAccess"`
	OpenAccessPDF  *struct {
		URL string `json:"url"`
	} `json:"openAccessPdf"`
	PublicationTypes []string `json:"publicationTypes"`
	FieldsOfStudy    []string `json:"fieldsOfStudy"`
}

type searchResponse struct {
	Total int           `json:"total"`
	Data  []paperResult `json:"data"`
}

type edgeResponse struct {
	Data []struct {
		CitingPaper *paperResult `json:"citingPaper"`
		CitedPaper  *paperResult `json:"citedPaper"`
	} `json:"data"`
}

// Search pages through /paper/search until maxResults records have been
// collected. A failed page after a successful one returns the partial set.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]*domain.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	var papers []*domain.Paper
	offset := 0
	limit := min(100, maxResults)

	for len(papers) < maxResults {
		batch, err := c.searchBatch(ctx, query, limit, offset)
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
		offset += limit
		if len(batch) < limit {
			break
		}
	}

	if len(papers) > maxResults {
		papers = papers[:maxResults]
	}
	return papers, nil
}

func (c *Client) searchBatch(ctx context.Context, query string, limit, offset int) ([]*domain.Paper, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("offset", fmt.Sprintf("%d", offset))
	params.Set("fields", fields)

	resp, err := c.http.Get(ctx, baseURL+"/paper/search", params, c.header())
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var sr searchResponse
	if err := resp.JSON(&sr); err != nil {
		return nil, err
	}

	papers := make([]*domain.Paper, 0, len(sr.Data))
	for i := range sr.Data {
		if p := resultToPaper(&sr.Data[i]); p != nil {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

// GetByID resolves an s2_-prefixed id, a bare Semantic Scholar id, or a DOI.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	if id == "" {
		return nil, domain.ErrEmptyID
	}
	s2ID := strings.TrimPrefix(id, "s2_")

	params := url.Values{}
	params.Set("fields", fields)

	resp, err := c.http.Get(ctx, baseURL+"/paper/"+s2ID, params, c.header())
	if err != nil {
		return nil, nil
	}

	var pr paperResult
	if err := resp.JSON(&pr); err != nil {
		return nil, err
	}
	return resultToPaper(&pr), nil
}

// Citations returns papers citing p, resolved through its s2 id or DOI.
func (c *Client) Citations(ctx context.Context, p *domain.Paper) ([]*domain.Paper, error) {
	return c.edges(ctx, p, "citations")
}

// References returns papers cited by p.
func (c *Client) References(ctx context.Context, p *domain.Paper) ([]*domain.Paper, error) {
	return c.edges(ctx, p, "references")
}

func (c *Client) edges(ctx context.Context, p *domain.Paper, kind string) ([]*domain.Paper, error) {
	var s2ID string
	switch {
	case strings.HasPrefix(p.ID, "s2_"):
		s2ID = strings.TrimPrefix(p.ID, "s2_")
	case p.DOI != "":
		s2ID = p.DOI
	default:
		return []*domain.Paper{}, nil
	}

	params := url.Values{}
	params.Set("fields", fields)
	params.Set("limit", "100")

	resp, err := c.http.Get(ctx, fmt.Sprintf("%s/paper/%s/%s", baseURL, s2ID, kind), params, c.header())
	if err != nil {
		return nil, fmt.Errorf("%s lookup failed: %w", kind, err)
	}

	var er edgeResponse
	if err := resp.JSON(&er); err != nil {
		return nil, err
	}

	var papers []*domain.Paper
	for _, edge := range er.Data {
		pr := edge.CitingPaper
		if kind == "references" {
			pr = edge.CitedPaper
		}
		if pr == nil {
			continue
		}
		if paper := resultToPaper(pr); paper != nil {
			papers = append(papers, paper)
		}
	}
	return papers, nil
}

func (c *Client) header() http.Header {
	if c.apiKey == "" {
		return nil
	}
	h := http.Header{}
	h.Set("x-api-key", c.apiKey)
	return h
}

func resultToPaper(r *paperResult) *domain.Paper {
	if r.PaperID == "" {
		return nil
	}

	title := domain.CollapseSpace(r.Title)
	if title == "" {
		title = "Unknown"
	}

	authors := make([]domain.Author, 0, len(r.Authors))
	for _, a := range r.Authors {
		if a.Name != "" {
			authors = append(authors, domain.Author{Name: strings.TrimSpace(a.Name)})
		}
	}

	journal := r.Venue
	if r.PublicationVenue != nil && r.PublicationVenue.Name != "" {
		journal = r.PublicationVenue.Name
	}

	sourceType := domain.SourcePeerReviewed
	switch {
	case contains(r.PublicationTypes, "Preprint") || r.ExternalIDs.ArXiv != "":
		sourceType = domain.SourcePreprint
	case contains(r.PublicationTypes, "Conference"):
		sourceType = domain.SourceConference
	}

	access := domain.AccessPaywalled
	if r.IsOpenAccess {
		access = domain.AccessOpen
	}

	var pdfURL string
	if r.OpenAccessPDF != nil {
		pdfURL = r.OpenAccessPDF.URL
	}

	keywords := r.FieldsOfStudy
	if len(keywords) > 10 {
		keywords = keywords[:10]
	}

	p := &domain.Paper{
		ID:             "s2_" + r.PaperID,
		Title:          title,
		Authors:        authors,
		Year:           r.Year,
		Journal:        journal,
		DOI:            r.ExternalIDs.DOI,
		PMID:           r.ExternalIDs.PubMed,
		PMCID:          r.ExternalIDs.PMCID,
		ArxivID:        r.ExternalIDs.ArXiv,
		Abstract:       r.Abstract,
		Keywords:       keywords,
		CitationCount:  r.CitationCount,
		ReferenceCount: r.ReferenceCount,
		Source:         Name,
		SourceType:     sourceType,
		SourcesFoundIn: []string{Name},
		AccessType:     access,
		PDFURL:         pdfURL,
		URLs: map[string]string{
			"semanticscholar": "https://www.semanticscholar.org/paper/" + r.PaperID,
		},
	}

	if p.DOI != "" {
		p.URLs["doi"] = "https://doi.org/" + p.DOI
		p.URLs["scihub"] = "https://sci-hub.se/" + p.DOI
	}
	if p.ArxivID != "" {
		p.URLs["arxiv"] = "https://arxiv.org/abs/" + p.ArxivID
		p.URLs["arxiv_pdf"] = "https://arxiv.org/pdf/" + p.ArxivID + ".pdf"
	}
	if pdfURL != "" {
		p.URLs["pdf"] = pdfURL
	}

	p.Reliability = domain.CalculateReliability(p, domain.ReliabilityInput{
		PeerReviewed:  sourceType == domain.SourcePeerReviewed,
		JournalName:   journal,
		CitationCount: r.CitationCount,
		SourcesFound:  1,
		Year:          r.Year,
	})

	return p
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
