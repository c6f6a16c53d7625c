// Package crossref searches the CrossRef works registry.
package crossref

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/Indranil2020/search/internal/domain"
	"github.com/Indranil2020/search/pkg/httpclient"
)

const (
	Name = "CrossRef"

	baseURL = "https://api.crossref.org/works"
)

var selectFields = strings.Join([]string{
	"DOI", "title", "author", "issued", "container-title",
	"publisher", "volume", "issue", "page", "abstract",
	"is-referenced-by-count", "references-count", "type",
	"link", "subject", "URL",
}, ",")

// CrossRef abstracts arrive as JATS XML fragments.
var jatsTagRe = regexp.MustCompile(`<[^>]+>`)

type Client struct {
	http *httpclient.Client
}

// NewClient creates a CrossRef adapter. A mailto address in the User-Agent
// routes requests to the polite pool, which tolerates up to 50 req/s.
func NewClient(email string) *Client {
	ua := "SearchSystem/1.0"
	if email != "" {
		ua = fmt.Sprintf("SearchSystem/1.0 (mailto:%s)", email)
	}
	return &Client{http: httpclient.New(50.0, httpclient.WithUserAgent(ua))}
}

func (c *Client) Name() string { return Name }

type workItem struct {
	DOI            string     `json:"DOI"`
	Title          []string   `json:"title"`
	ContainerTitle []string   `json:"container-title"`
	Publisher      string     `json:"publisher"`
	Volume         string     `json:"volume"`
	Issue          string     `json:"issue"`
	Page           string     `json:"page"`
	Abstract       string     `json:"abstract"`
	Type           string     `json:"type"`
	Subject        []string   `json:"subject"`
	URL            string     `json:"URL"`
	CitedByCount   int        `json:"is-referenced-by-count"`
	ReferenceCount int        `json:"references-count"`
	Authors        []struct {
		Given       string `json:"given"`
		Family      string `json:"family"`
		Orcid       string `json:"ORCID"`
		Affiliation []struct {
			Name string `json:"name"`
		} `json:"affiliation"`
	} `json:"author"`
	Issued struct {
		DateParts [][]int `json:"date-parts"`
	} `json:"issued"`
	Links []struct {
		URL         string `json:"URL"`
		ContentType string `json:"content-type"`
	} `json:"link"`
}

type worksResponse struct {
	Message struct {
		TotalResults int        `json:"total-results"`
		Items        []workItem `json:"items"`
	} `json:"message"`
}

type workResponse struct {
	Message workItem `json:"message"`
}

// Search pages through /works by row offset.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]*domain.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	params := url.Values{}
	params.Set("query", query)
	return c.paged(ctx, params, maxResults)
}

// SearchByPublisher restricts a search to works from one publisher.
func (c *Client) SearchByPublisher(ctx context.Context, query, publisher string, maxResults int) ([]*domain.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("query.publisher-name", publisher)
	return c.paged(ctx, params, maxResults)
}

func (c *Client) paged(ctx context.Context, base url.Values, maxResults int) ([]*domain.Paper, error) {
	var papers []*domain.Paper
	offset := 0
	rows := min(100, maxResults)

	for len(papers) < maxResults {
		batch, err := c.fetchBatch(ctx, base, offset, rows)
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
		offset += rows
		if len(batch) < rows {
			break
		}
	}

	if len(papers) > maxResults {
		papers = papers[:maxResults]
	}
	return papers, nil
}

func (c *Client) fetchBatch(ctx context.Context, base url.Values, offset, rows int) ([]*domain.Paper, error) {
	params := url.Values{}
	for k, vs := range base {
		params[k] = vs
	}
	params.Set("rows", fmt.Sprintf("%d", rows))
	params.Set("offset", fmt.Sprintf("%d", offset))
	params.Set("select", selectFields)

	resp, err := c.http.Get(ctx, baseURL, params, nil)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var wr worksResponse
	if err := resp.JSON(&wr); err != nil {
		return nil, err
	}

	papers := make([]*domain.Paper, 0, len(wr.Message.Items))
	for i := range wr.Message.Items {
		if p := itemToPaper(&wr.Message.Items[i]); p != nil {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

// GetByID fetches a single work by DOI. The crossref_ id form encodes the
// DOI's slashes as underscores.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	if id == "" {
		return nil, domain.ErrEmptyID
	}
	doi := strings.TrimSpace(id)
	if decoded, ok := cutCrossrefPrefix(doi); ok {
		doi = decoded
	}

	resp, err := c.http.Get(ctx, baseURL+"/"+doi, nil, nil)
	if err != nil {
		return nil, nil
	}

	var wr workResponse
	if err := resp.JSON(&wr); err != nil {
		return nil, err
	}
	return itemToPaper(&wr.Message), nil
}

// cutCrossrefPrefix maps a crossref_ id back to its DOI. The id form encodes
// the DOI's first slash as an underscore.
func cutCrossrefPrefix(id string) (string, bool) {
	rest, ok := strings.CutPrefix(id, "crossref_")
	if !ok {
		return "", false
	}
	return strings.Replace(rest, "_", "/", 1), true
}

// stripJATS removes JATS markup from a CrossRef abstract.
func stripJATS(s string) string {
	return domain.CollapseSpace(jatsTagRe.ReplaceAllString(s, " "))
}

var typeMap = map[string]domain.SourceType{
	"journal-article":     domain.SourcePeerReviewed,
	"proceedings-article": domain.SourceConference,
	"book-chapter":        domain.SourceBookChapter,
	"dissertation":        domain.SourceThesis,
	"posted-content":      domain.SourcePreprint,
	"report":              domain.SourceGreyLiterature,
}

func itemToPaper(w *workItem) *domain.Paper {
	doi := strings.TrimSpace(w.DOI)
	if doi == "" {
		return nil
	}

	var title string
	if len(w.Title) > 0 {
		title = domain.CollapseSpace(w.Title[0])
	}
	if title == "" {
		title = "Unknown"
	}

	authors := make([]domain.Author, 0, len(w.Authors))
	for _, a := range w.Authors {
		name := strings.TrimSpace(strings.TrimSpace(a.Given) + " " + strings.TrimSpace(a.Family))
		if name == "" {
			continue
		}
		author := domain.Author{
			Name:  name,
			Orcid: strings.TrimPrefix(a.Orcid, "http://orcid.org/"),
		}
		if len(a.Affiliation) > 0 {
			author.Affiliation = a.Affiliation[0].Name
		}
		authors = append(authors, author)
	}

	var year *int
	if len(w.Issued.DateParts) > 0 && len(w.Issued.DateParts[0]) > 0 {
		year = domain.YearOf(w.Issued.DateParts[0][0])
	}

	var journal string
	if len(w.ContainerTitle) > 0 {
		journal = w.ContainerTitle[0]
	}

	sourceType, ok := typeMap[w.Type]
	if !ok {
		sourceType = domain.SourceTypeUnknown
	}

	var pdfURL string
	for _, link := range w.Links {
		if link.ContentType == "application/pdf" {
			pdfURL = link.URL
			break
		}
	}

	access := domain.AccessUnknown
	if pdfURL != "" {
		access = domain.AccessOpen
	}

	keywords := w.Subject
	if len(keywords) > 10 {
		keywords = keywords[:10]
	}

	p := &domain.Paper{
		ID:             "crossref_" + strings.Replace(doi, "/", "_", 1),
		Title:          title,
		Authors:        authors,
		Year:           year,
		Journal:        journal,
		Publisher:      w.Publisher,
		Volume:         w.Volume,
		Issue:          w.Issue,
		Pages:          w.Page,
		DOI:            doi,
		Abstract:       stripJATS(w.Abstract),
		Keywords:       keywords,
		CitationCount:  w.CitedByCount,
		ReferenceCount: w.ReferenceCount,
		Source:         Name,
		SourceType:     sourceType,
		SourcesFoundIn: []string{Name},
		AccessType:     access,
		PDFURL:         pdfURL,
		HTMLURL:        w.URL,
		URLs: map[string]string{
			"doi":    "https://doi.org/" + doi,
			"scihub": "https://sci-hub.se/" + doi,
		},
	}

	if pdfURL != "" {
		p.URLs["pdf"] = pdfURL
	}

	p.Reliability = domain.CalculateReliability(p, domain.ReliabilityInput{
		PeerReviewed:  sourceType == domain.SourcePeerReviewed,
		JournalName:   journal,
		CitationCount: w.CitedByCount,
		SourcesFound:  1,
		Year:          year,
	})

	return p
}
