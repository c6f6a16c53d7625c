// Package basesearch queries the BASE (Bielefeld Academic Search Engine)
// interface. BASE serves Dublin Core records whose fields may arrive as a
// scalar or a list, so decoding coerces both shapes.
package basesearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/Indranil2020/search/internal/domain"
	"github.com/Indranil2020/search/pkg/httpclient"
)

const (
	Name = "BASE"

	baseURL = "https://api.base-search.net/cgi-bin/BaseHttpSearchInterface.fcgi"

	// The interface caps hits per request at 125; there is no paging.
	maxHits = 125
)

var doiRe = regexp.MustCompile(`10\.\d{4,9}/[^\s]+`)

type Client struct {
	http *httpclient.Client
}

// NewClient creates a BASE adapter. BASE allows one request per second for
// unregistered clients.
func NewClient() *Client {
	return &Client{http: httpclient.New(1.0)}
}

func (c *Client) Name() string { return Name }

// stringList accepts both "x" and ["x", "y"] from the upstream JSON.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = stringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = stringList(many)
	return nil
}

func (s stringList) first() string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

type baseDoc struct {
	ID          string     `json:"dcdocid"`
	Title       stringList `json:"dctitle"`
	Creators    stringList `json:"dccreator"`
	Description stringList `json:"dcdescription"`
	Identifiers stringList `json:"dcidentifier"`
	Subjects    stringList `json:"dcsubject"`
	Year        string     `json:"dcyear"`
	Publisher   stringList `json:"dcpublisher"`
	OA          string     `json:"dcoa"`
	Link        string     `json:"dclink"`
}

type searchResponse struct {
	Response struct {
		NumFound int       `json:"numFound"`
		Docs     []baseDoc `json:"docs"`
	} `json:"response"`
}

// Search issues a single PerformSearch request; BASE offers no offset paging
// through this interface.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]*domain.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	params := url.Values{}
	params.Set("func", "PerformSearch")
	params.Set("query", query)
	params.Set("format", "json")
	params.Set("hits", fmt.Sprintf("%d", min(maxHits, maxResults)))

	resp, err := c.http.Get(ctx, baseURL, params, nil)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var sr searchResponse
	if err := resp.JSON(&sr); err != nil {
		return nil, err
	}

	papers := make([]*domain.Paper, 0, len(sr.Response.Docs))
	for i := range sr.Response.Docs {
		if p := docToPaper(&sr.Response.Docs[i]); p != nil {
			papers = append(papers, p)
		}
		if len(papers) == maxResults {
			break
		}
	}
	return papers, nil
}

// GetByID is unsupported; the search interface exposes no per-record lookup.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	if id == "" {
		return nil, domain.ErrEmptyID
	}
	return nil, nil
}

// scavengeDOI pulls the first DOI-shaped token out of the identifier list.
func scavengeDOI(identifiers stringList) string {
	for _, ident := range identifiers {
		if !strings.Contains(ident, "10.") {
			continue
		}
		if m := doiRe.FindString(ident); m != "" {
			return m
		}
	}
	return ""
}

func docToPaper(d *baseDoc) *domain.Paper {
	docID := strings.TrimSpace(d.ID)
	if docID == "" {
		return nil
	}

	title := domain.CollapseSpace(d.Title.first())
	if title == "" {
		title = "Unknown"
	}

	authors := make([]domain.Author, 0, len(d.Creators))
	for _, name := range d.Creators {
		if name = strings.TrimSpace(name); name != "" {
			authors = append(authors, domain.Author{Name: name})
		}
	}

	doi := scavengeDOI(d.Identifiers)

	keywords := []string(d.Subjects)
	if len(keywords) > 10 {
		keywords = keywords[:10]
	}

	access := domain.AccessUnknown
	if d.OA == "1" {
		access = domain.AccessOpen
	}

	p := &domain.Paper{
		ID:             "base_" + docID,
		Title:          title,
		Authors:        authors,
		Year:           domain.YearFromDate(d.Year),
		Publisher:      d.Publisher.first(),
		DOI:            doi,
		Abstract:       d.Description.first(),
		Keywords:       keywords,
		Source:         Name,
		SourceType:     domain.SourceGreyLiterature,
		SourcesFoundIn: []string{Name},
		AccessType:     access,
		HTMLURL:        d.Link,
		URLs:           map[string]string{},
	}

	if d.Link != "" {
		p.URLs["base"] = d.Link
	}
	if doi != "" {
		p.URLs["doi"] = "https://doi.org/" + doi
		p.URLs["scihub"] = "https://sci-hub.se/" + doi
	}

	p.Reliability = domain.CalculateReliability(p, domain.ReliabilityInput{
		SourcesFound: 1,
		Year:         p.Year,
	})

	return p
}
