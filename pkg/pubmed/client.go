// Package pubmed searches the NCBI PubMed/MEDLINE database. Retrieval is
// two-phase: esearch returns PMIDs, efetch returns the XML records.
package pubmed

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"github.com/Indranil2020/search/internal/domain"
	"github.com/Indranil2020/search/pkg/httpclient"
)

const (
	// Name is the adapter display name used in sourcesFoundIn.
	Name = "PubMed"

	baseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
)

type Client struct {
	http   *httpclient.Client
	apiKey string
	email  string
}

// NewClient creates a PubMed adapter. An NCBI API key raises the allowed
// rate from 3 to 10 requests per second.
func NewClient(apiKey, email string) *Client {
	rate := 3.0
	if apiKey != "" {
		rate = 10.0
	}
	return &Client{
		http:   httpclient.New(rate),
		apiKey: apiKey,
		email:  email,
	}
}

func (c *Client) Name() string { return Name }

type esearchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type articleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Medline struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Title   string `xml:"ArticleTitle"`
			Journal struct {
				Title string `xml:"Title"`
				Issue struct {
					Volume  string `xml:"Volume"`
					Issue   string `xml:"Issue"`
					PubDate struct {
						Year string `xml:"Year"`
					} `xml:"PubDate"`
				} `xml:"JournalIssue"`
			} `xml:"Journal"`
			Abstract struct {
				Texts []struct {
					Label string `xml:"Label,attr"`
					Text  string `xml:",chardata"`
				} `xml:"AbstractText"`
			} `xml:"Abstract"`
			Authors []struct {
				LastName     string   `xml:"LastName"`
				ForeName     string   `xml:"ForeName"`
				Affiliations []string `xml:"AffiliationInfo>Affiliation"`
			} `xml:"AuthorList>Author"`
			Pagination struct {
				MedlinePgn string `xml:"MedlinePgn"`
			} `xml:"Pagination"`
		} `xml:"Article"`
		MeshHeadings []struct {
			Descriptor string `xml:"DescriptorName"`
		} `xml:"MeshHeadingList>MeshHeading"`
	} `xml:"MedlineCitation"`
	PubmedData struct {
		ArticleIDs []struct {
			IDType string `xml:"IdType,attr"`
			Value  string `xml:",chardata"`
		} `xml:"ArticleIdList>ArticleId"`
	} `xml:"PubmedData"`
}

// Search queries esearch for PMIDs sorted by relevance, then fetches the
// full records.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]*domain.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retmax", fmt.Sprintf("%d", maxResults))
	params.Set("retmode", "json")
	params.Set("sort", "relevance")
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	if c.email != "" {
		params.Set("email", c.email)
	}

	resp, err := c.http.Get(ctx, baseURL+"/esearch.fcgi", params, nil)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var search esearchResponse
	if err := resp.JSON(&search); err != nil {
		return nil, err
	}
	if len(search.Result.IDList) == 0 {
		return []*domain.Paper{}, nil
	}

	return c.fetch(ctx, search.Result.IDList)
}

// GetByID fetches a single record by PMID, with or without the pubmed_
// prefix. Returns (nil, nil) when the PMID is unknown.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	if id == "" {
		return nil, domain.ErrEmptyID
	}
	pmid := strings.TrimSpace(strings.TrimPrefix(id, "pubmed_"))

	papers, err := c.fetch(ctx, []string{pmid})
	if err != nil {
		return nil, err
	}
	if len(papers) == 0 {
		return nil, nil
	}
	return papers[0], nil
}

func (c *Client) fetch(ctx context.Context, pmids []string) ([]*domain.Paper, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(pmids, ","))
	params.Set("retmode", "xml")
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	resp, err := c.http.Get(ctx, baseURL+"/efetch.fcgi", params, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	var set articleSet
	if err := resp.XML(&set); err != nil {
		return nil, err
	}

	papers := make([]*domain.Paper, 0, len(set.Articles))
	for i := range set.Articles {
		if p := articleToPaper(&set.Articles[i]); p != nil {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

func articleToPaper(a *pubmedArticle) *domain.Paper {
	pmid := strings.TrimSpace(a.Medline.PMID)
	if pmid == "" {
		return nil
	}

	article := a.Medline.Article

	title := domain.CollapseSpace(article.Title)
	if title == "" {
		title = "Unknown"
	}

	authors := make([]domain.Author, 0, len(article.Authors))
	for _, au := range article.Authors {
		name := strings.TrimSpace(strings.TrimSpace(au.ForeName) + " " + strings.TrimSpace(au.LastName))
		if name == "" {
			continue
		}
		author := domain.Author{Name: name}
		if len(au.Affiliations) > 0 {
			author.Affiliation = au.Affiliations[0]
		}
		authors = append(authors, author)
	}

	year := domain.YearFromDate(article.Journal.Issue.PubDate.Year)

	var parts []string
	for _, t := range article.Abstract.Texts {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		if t.Label != "" {
			text = t.Label + ": " + text
		}
		parts = append(parts, text)
	}
	abstract := strings.Join(parts, " ")

	var doi, pmcid string
	for _, id := range a.PubmedData.ArticleIDs {
		switch id.IDType {
		case "doi":
			doi = strings.TrimSpace(id.Value)
		case "pmc":
			pmcid = strings.TrimSpace(id.Value)
		}
	}

	var keywords []string
	for _, mesh := range a.Medline.MeshHeadings {
		if mesh.Descriptor != "" {
			keywords = append(keywords, mesh.Descriptor)
		}
		if len(keywords) == 10 {
			break
		}
	}

	access := domain.AccessPaywalled
	if pmcid != "" {
		access = domain.AccessOpen
	}

	p := &domain.Paper{
		ID:             "pubmed_" + pmid,
		Title:          title,
		Authors:        authors,
		Year:           year,
		Journal:        article.Journal.Title,
		Volume:         article.Journal.Issue.Volume,
		Issue:          article.Journal.Issue.Issue,
		Pages:          article.Pagination.MedlinePgn,
		DOI:            doi,
		PMID:           pmid,
		PMCID:          pmcid,
		Abstract:       abstract,
		Keywords:       keywords,
		Source:         Name,
		SourceType:     domain.SourcePeerReviewed,
		SourcesFoundIn: []string{Name},
		AccessType:     access,
		URLs: map[string]string{
			"pubmed": fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", pmid),
		},
	}

	if doi != "" {
		p.URLs["doi"] = "https://doi.org/" + doi
		p.URLs["scihub"] = "https://sci-hub.se/" + doi
	}
	if pmcid != "" {
		p.URLs["pmc"] = fmt.Sprintf("https://www.ncbi.nlm.nih.gov/pmc/articles/%s/", pmcid)
		p.PDFURL = fmt.Sprintf("https://www.ncbi.nlm.nih.gov/pmc/articles/%s/pdf/", pmcid)
	}

	p.Reliability = domain.CalculateReliability(p, domain.ReliabilityInput{
		PeerReviewed: true,
		JournalName:  p.Journal,
		SourcesFound: 1,
		Year:         year,
	})

	return p
}
