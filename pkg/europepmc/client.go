// Package europepmc searches the Europe PMC literature database.
package europepmc

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Indranil2020/search/internal/domain"
	"github.com/Indranil2020/search/pkg/httpclient"
)

const (
	Name = "Europe PMC"

	baseURL = "https://www.ebi.ac.uk/europepmc/webservices/rest/search"
)

type Client struct {
	http *httpclient.Client
	base string
}

func NewClient() *Client {
	return &Client{http: httpclient.New(10.0), base: baseURL}
}

func (c *Client) Name() string { return Name }

type result struct {
	ID           string `json:"id"`
	PMID         string `json:"pmid"`
	PMCID        string `json:"pmcid"`
	DOI          string `json:"doi"`
	Title        string `json:"title"`
	AuthorString string `json:"authorString"`
	JournalTitle string `json:"journalTitle"`
	PubYear      string `json:"pubYear"`
	AbstractText string `json:"abstractText"`
	PubType      string `json:"pubType"`
	IsOpenAccess string `json:"isOpenAccess"`
	CitedByCount int    `json:"citedByCount"`
	AuthorList   struct {
		Authors []struct {
			FullName    string `json:"fullName"`
			Affiliation string `json:"affiliation"`
		} `json:"author"`
	} `json:"authorList"`
	KeywordList struct {
		Keywords []string `json:"keyword"`
	} `json:"keywordList"`
}

type searchResponse struct {
	HitCount       int    `json:"hitCount"`
	NextCursorMark string `json:"nextCursorMark"`
	ResultList     struct {
		Results []result `json:"result"`
	} `json:"resultList"`
}

// Search pages with cursor marks, stopping when the cursor stops advancing.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]*domain.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	var papers []*domain.Paper
	cursor := "*"
	pageSize := min(100, maxResults)

	for len(papers) < maxResults {
		sr, err := c.searchPage(ctx, query, cursor, pageSize)
		if err != nil {
			if len(papers) > 0 {
				return papers, nil
			}
			return nil, err
		}
		for i := range sr.ResultList.Results {
			if p := resultToPaper(&sr.ResultList.Results[i]); p != nil {
				papers = append(papers, p)
			}
		}
		if len(sr.ResultList.Results) < pageSize {
			break
		}
		if sr.NextCursorMark == "" || sr.NextCursorMark == cursor {
			break
		}
		cursor = sr.NextCursorMark
	}

	if len(papers) > maxResults {
		papers = papers[:maxResults]
	}
	return papers, nil
}

func (c *Client) searchPage(ctx context.Context, query, cursor string, pageSize int) (*searchResponse, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("format", "json")
	params.Set("resultType", "core")
	params.Set("pageSize", fmt.Sprintf("%d", pageSize))
	params.Set("cursorMark", cursor)

	resp, err := c.http.Get(ctx, c.base, params, nil)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var sr searchResponse
	if err := resp.JSON(&sr); err != nil {
		return nil, err
	}
	return &sr, nil
}

// GetByID looks up one record by PMCID or PMID, with or without the
// europmc_ prefix.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	if id == "" {
		return nil, domain.ErrEmptyID
	}
	extID := strings.TrimSpace(strings.TrimPrefix(id, "europmc_"))

	src := "MED"
	if strings.HasPrefix(extID, "PMC") {
		src = "PMC"
	}

	sr, err := c.searchPage(ctx, fmt.Sprintf("EXT_ID:%s AND SRC:%s", strings.TrimPrefix(extID, "PMC"), src), "*", 1)
	if err != nil {
		return nil, err
	}
	if len(sr.ResultList.Results) == 0 {
		return nil, nil
	}
	return resultToPaper(&sr.ResultList.Results[0]), nil
}

func resultToPaper(r *result) *domain.Paper {
	key := r.PMCID
	if key == "" {
		key = r.PMID
	}
	if key == "" {
		key = r.ID
	}
	if key == "" {
		return nil
	}

	title := domain.CollapseSpace(r.Title)
	if title == "" {
		title = "Unknown"
	}

	var authors []domain.Author
	for _, a := range r.AuthorList.Authors {
		name := strings.TrimSpace(a.FullName)
		if name == "" {
			continue
		}
		authors = append(authors, domain.Author{
			Name:        name,
			Affiliation: strings.TrimSpace(a.Affiliation),
		})
	}
	if len(authors) == 0 && r.AuthorString != "" {
		for _, name := range strings.Split(r.AuthorString, ",") {
			if name = strings.TrimSpace(strings.TrimSuffix(name, ".")); name != "" {
				authors = append(authors, domain.Author{Name: name})
			}
		}
	}

	sourceType := domain.SourcePeerReviewed
	if strings.EqualFold(r.PubType, "preprint") {
		sourceType = domain.SourcePreprint
	}

	access := domain.AccessPaywalled
	if r.IsOpenAccess == "Y" {
		access = domain.AccessOpen
	}

	keywords := r.KeywordList.Keywords
	if len(keywords) > 10 {
		keywords = keywords[:10]
	}

	p := &domain.Paper{
		ID:             "europmc_" + key,
		Title:          title,
		Authors:        authors,
		Year:           domain.YearFromDate(r.PubYear),
		Journal:        r.JournalTitle,
		DOI:            strings.TrimSpace(r.DOI),
		PMID:           r.PMID,
		PMCID:          r.PMCID,
		Abstract:       r.AbstractText,
		Keywords:       keywords,
		CitationCount:  r.CitedByCount,
		Source:         Name,
		SourceType:     sourceType,
		SourcesFoundIn: []string{Name},
		AccessType:     access,
		URLs:           map[string]string{},
	}

	if r.PMID != "" {
		p.URLs["europepmc"] = "https://europepmc.org/abstract/MED/" + r.PMID
	}
	if p.DOI != "" {
		p.URLs["doi"] = "https://doi.org/" + p.DOI
		p.URLs["scihub"] = "https://sci-hub.se/" + p.DOI
	}
	if r.PMCID != "" {
		p.URLs["pmc"] = "https://europepmc.org/article/PMC/" + r.PMCID
		p.PDFURL = fmt.Sprintf("https://europepmc.org/backend/ptpmcrender.fcgi?accid=%s&blobtype=pdf", r.PMCID)
		p.URLs["pdf"] = p.PDFURL
	}

	p.Reliability = domain.CalculateReliability(p, domain.ReliabilityInput{
		PeerReviewed:  sourceType == domain.SourcePeerReviewed,
		JournalName:   r.JournalTitle,
		CitationCount: r.CitedByCount,
		SourcesFound:  1,
		Year:          p.Year,
	})

	return p
}
