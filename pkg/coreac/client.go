// Package coreac searches the CORE open access aggregator.
package coreac

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Indranil2020/search/internal/domain"
	"github.com/Indranil2020/search/pkg/httpclient"
)

const (
	Name = "CORE"

	baseURL = "https://api.core.ac.uk/v3"
)

type Client struct {
	http   *httpclient.Client
	apiKey string
}

// NewClient creates a CORE adapter. The v3 API requires a key.
func NewClient(apiKey string) *Client {
	return &Client{
		http:   httpclient.New(10.0),
		apiKey: apiKey,
	}
}

func (c *Client) Name() string { return Name }

type coreWork struct {
	ID          json.Number `json:"id"`
	Title       string      `json:"title"`
	Abstract    string      `json:"abstract"`
	YearPub     *int        `json:"yearPublished"`
	DOI         string      `json:"doi"`
	DownloadURL string      `json:"downloadUrl"`
	Publisher   string      `json:"publisher"`
	DocType     string      `json:"documentType"`
	Authors     []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Journals []struct {
		Title string `json:"title"`
	} `json:"journals"`
	CitationCount int `json:"citationCount"`
}

type searchResponse struct {
	TotalHits int        `json:"totalHits"`
	Results   []coreWork `json:"results"`
}

// Search pages through /search/works by offset.
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
	params.Set("q", query)
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("offset", fmt.Sprintf("%d", offset))

	resp, err := c.http.Get(ctx, baseURL+"/search/works", params, c.header())
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var sr searchResponse
	if err := resp.JSON(&sr); err != nil {
		return nil, err
	}

	papers := make([]*domain.Paper, 0, len(sr.Results))
	for i := range sr.Results {
		if p := workToPaper(&sr.Results[i]); p != nil {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

// GetByID fetches a single work by CORE id, with or without the core_ prefix.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	if id == "" {
		return nil, domain.ErrEmptyID
	}
	coreID := strings.TrimSpace(strings.TrimPrefix(id, "core_"))

	resp, err := c.http.Get(ctx, baseURL+"/works/"+coreID, nil, c.header())
	if err != nil {
		return nil, nil
	}

	var w coreWork
	if err := resp.JSON(&w); err != nil {
		return nil, err
	}
	return workToPaper(&w), nil
}

func (c *Client) header() http.Header {
	if c.apiKey == "" {
		return nil
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.apiKey)
	return h
}

// docTypeToSource maps CORE's free-text documentType to a venue class.
func docTypeToSource(docType string) domain.SourceType {
	lower := strings.ToLower(docType)
	switch {
	case strings.Contains(lower, "article"), strings.Contains(lower, "journal"):
		return domain.SourcePeerReviewed
	case strings.Contains(lower, "thesis"):
		return domain.SourceThesis
	case strings.Contains(lower, "conference"):
		return domain.SourceConference
	default:
		return domain.SourceTypeUnknown
	}
}

func workToPaper(w *coreWork) *domain.Paper {
	coreID := w.ID.String()
	if coreID == "" {
		return nil
	}

	title := domain.CollapseSpace(w.Title)
	if title == "" {
		title = "Unknown"
	}

	authors := make([]domain.Author, 0, len(w.Authors))
	for _, a := range w.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, domain.Author{Name: name})
		}
	}

	var journal string
	if len(w.Journals) > 0 {
		journal = w.Journals[0].Title
	}

	sourceType := docTypeToSource(w.DocType)

	access := domain.AccessUnknown
	if w.DownloadURL != "" {
		access = domain.AccessOpen
	}

	doi := strings.TrimSpace(w.DOI)

	p := &domain.Paper{
		ID:             "core_" + coreID,
		Title:          title,
		Authors:        authors,
		Year:           w.YearPub,
		Journal:        journal,
		Publisher:      w.Publisher,
		DOI:            doi,
		Abstract:       w.Abstract,
		Keywords:       []string{},
		CitationCount:  w.CitationCount,
		Source:         Name,
		SourceType:     sourceType,
		SourcesFoundIn: []string{Name},
		AccessType:     access,
		PDFURL:         w.DownloadURL,
		URLs: map[string]string{
			"core": "https://core.ac.uk/works/" + coreID,
		},
	}

	if doi != "" {
		p.URLs["doi"] = "https://doi.org/" + doi
		p.URLs["scihub"] = "https://sci-hub.se/" + doi
	}
	if w.DownloadURL != "" {
		p.URLs["pdf"] = w.DownloadURL
	}

	p.Reliability = domain.CalculateReliability(p, domain.ReliabilityInput{
		PeerReviewed:  sourceType == domain.SourcePeerReviewed,
		JournalName:   journal,
		CitationCount: w.CitationCount,
		SourcesFound:  1,
		Year:          w.YearPub,
	})

	return p
}
