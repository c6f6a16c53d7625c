// Package openalex searches the OpenAlex works catalog.
package openalex

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/Indranil2020/search/internal/domain"
	"github.com/Indranil2020/search/pkg/httpclient"
)

const (
	Name = "OpenAlex"

	baseURL = "https://api.openalex.org/works"
)

type Client struct {
	http  *httpclient.Client
	email string
}

// NewClient creates an OpenAlex adapter. Supplying a mailto address joins
// the polite pool.
func NewClient(email string) *Client {
	return &Client{
		http:  httpclient.New(10.0),
		email: email,
	}
}

func (c *Client) Name() string { return Name }

type work struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	DOI             string `json:"doi"`
	PublicationYear *int   `json:"publication_year"`
	Type            string `json:"type"`
	IDs             struct {
		PMID string `json:"pmid"`
	} `json:"ids"`
	Authorships []struct {
		Author struct {
			DisplayName string `json:"display_name"`
			Orcid       string `json:"orcid"`
		} `json:"author"`
		Institutions []struct {
			DisplayName string `json:"display_name"`
		} `json:"institutions"`
	} `json:"authorships"`
	PrimaryLocation *struct {
		Source *struct {
			DisplayName      string `json:"display_name"`
			HostOrganization string `json:"host_organization_name"`
		} `json:"source"`
	} `json:"primary_location"`
	OpenAccess struct {
		IsOA  bool   `json:"is_oa"`
		OAURL string `json:"oa_url"`
	} `json:"open_access"`
	CitedByCount          int              `json:"cited_by_count"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
	Concepts              []struct {
		DisplayName string `json:"display_name"`
	} `json:"concepts"`
	IsRetracted bool `json:"is_retracted"`
}

type listResponse struct {
	Meta struct {
		Count int `json:"count"`
	} `json:"meta"`
	Results []work `json:"results"`
}

// Search pages through /works with page numbers.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]*domain.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	params := url.Values{}
	params.Set("search", query)
	return c.paged(ctx, params, maxResults)
}

// Citations returns works whose reference list contains the given work, via
// the cites: filter.
func (c *Client) Citations(ctx context.Context, openalexID string, maxResults int) ([]*domain.Paper, error) {
	if openalexID == "" {
		return nil, domain.ErrEmptyID
	}
	params := url.Values{}
	params.Set("filter", "cites:"+strings.TrimPrefix(openalexID, "openalex_"))
	return c.paged(ctx, params, maxResults)
}

func (c *Client) paged(ctx context.Context, params url.Values, maxResults int) ([]*domain.Paper, error) {
	var papers []*domain.Paper
	page := 1
	perPage := min(100, maxResults)

	for len(papers) < maxResults {
		batch, err := c.fetchPage(ctx, params, page, perPage)
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
		page++
		if len(batch) < perPage {
			break
		}
	}

	if len(papers) > maxResults {
		papers = papers[:maxResults]
	}
	return papers, nil
}

func (c *Client) fetchPage(ctx context.Context, base url.Values, page, perPage int) ([]*domain.Paper, error) {
	params := url.Values{}
	for k, vs := range base {
		params[k] = vs
	}
	params.Set("page", fmt.Sprintf("%d", page))
	params.Set("per-page", fmt.Sprintf("%d", perPage))
	if c.email != "" {
		params.Set("mailto", c.email)
	}

	resp, err := c.http.Get(ctx, baseURL, params, nil)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var lr listResponse
	if err := resp.JSON(&lr); err != nil {
		return nil, err
	}

	papers := make([]*domain.Paper, 0, len(lr.Results))
	for i := range lr.Results {
		if p := workToPaper(&lr.Results[i]); p != nil {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

// GetByID fetches a single work. Accepts an openalex_-prefixed id, a bare
// OpenAlex work id (W...), or a DOI.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	if id == "" {
		return nil, domain.ErrEmptyID
	}

	key := strings.TrimSpace(strings.TrimPrefix(id, "openalex_"))
	if strings.HasPrefix(key, "10.") {
		key = "https://doi.org/" + key
	}

	params := url.Values{}
	if c.email != "" {
		params.Set("mailto", c.email)
	}

	resp, err := c.http.Get(ctx, baseURL+"/"+url.PathEscape(key), params, nil)
	if err != nil {
		var herr *httpclient.Error
		if errors.As(err, &herr) && herr.StatusCode == 404 {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	var w work
	if err := resp.JSON(&w); err != nil {
		return nil, err
	}
	return workToPaper(&w), nil
}

// reconstructAbstract flattens OpenAlex's inverted index back into text.
func reconstructAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}
	type posWord struct {
		pos  int
		word string
	}
	var words []posWord
	for word, positions := range index {
		for _, pos := range positions {
			words = append(words, posWord{pos, word})
		}
	}
	sort.Slice(words, func(i, j int) bool { return words[i].pos < words[j].pos })
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.word
	}
	return strings.Join(parts, " ")
}

var typeMap = map[string]domain.SourceType{
	"article":        domain.SourcePeerReviewed,
	"journal":        domain.SourcePeerReviewed,
	"proceedings":    domain.SourceConference,
	"book-chapter":   domain.SourceBookChapter,
	"dissertation":   domain.SourceThesis,
	"preprint":       domain.SourcePreprint,
	"posted-content": domain.SourcePreprint,
	"report":         domain.SourceGreyLiterature,
}

func workToPaper(w *work) *domain.Paper {
	workID := strings.TrimPrefix(w.ID, "https://openalex.org/")
	if workID == "" {
		return nil
	}

	title := domain.CollapseSpace(w.Title)
	if title == "" {
		title = "Unknown"
	}

	authors := make([]domain.Author, 0, len(w.Authorships))
	for _, a := range w.Authorships {
		name := strings.TrimSpace(a.Author.DisplayName)
		if name == "" {
			continue
		}
		author := domain.Author{
			Name:  name,
			Orcid: strings.TrimPrefix(a.Author.Orcid, "https://orcid.org/"),
		}
		if len(a.Institutions) > 0 {
			author.Affiliation = a.Institutions[0].DisplayName
		}
		authors = append(authors, author)
	}

	var journal, publisher string
	if w.PrimaryLocation != nil && w.PrimaryLocation.Source != nil {
		journal = w.PrimaryLocation.Source.DisplayName
		publisher = w.PrimaryLocation.Source.HostOrganization
	}

	sourceType, ok := typeMap[w.Type]
	if !ok {
		sourceType = domain.SourceTypeUnknown
	}

	access := domain.AccessPaywalled
	if w.OpenAccess.IsOA {
		access = domain.AccessOpen
	}

	var keywords []string
	for _, concept := range w.Concepts {
		if concept.DisplayName != "" {
			keywords = append(keywords, concept.DisplayName)
		}
		if len(keywords) == 10 {
			break
		}
	}

	doi := strings.TrimPrefix(w.DOI, "https://doi.org/")
	pmid := strings.TrimPrefix(w.IDs.PMID, "https://pubmed.ncbi.nlm.nih.gov/")

	p := &domain.Paper{
		ID:             "openalex_" + workID,
		Title:          title,
		Authors:        authors,
		Year:           w.PublicationYear,
		Journal:        journal,
		Publisher:      publisher,
		DOI:            doi,
		PMID:           pmid,
		Abstract:       reconstructAbstract(w.AbstractInvertedIndex),
		Keywords:       keywords,
		CitationCount:  w.CitedByCount,
		Source:         Name,
		SourceType:     sourceType,
		SourcesFoundIn: []string{Name},
		AccessType:     access,
		PDFURL:         w.OpenAccess.OAURL,
		URLs: map[string]string{
			"openalex": "https://openalex.org/" + workID,
		},
	}

	if doi != "" {
		p.URLs["doi"] = "https://doi.org/" + doi
		p.URLs["scihub"] = "https://sci-hub.se/" + doi
	}
	if w.OpenAccess.OAURL != "" {
		p.URLs["pdf"] = w.OpenAccess.OAURL
	}

	p.Reliability = domain.CalculateReliability(p, domain.ReliabilityInput{
		PeerReviewed:  sourceType == domain.SourcePeerReviewed,
		JournalName:   journal,
		CitationCount: w.CitedByCount,
		SourcesFound:  1,
		Year:          w.PublicationYear,
		Retracted:     w.IsRetracted,
	})

	return p
}
