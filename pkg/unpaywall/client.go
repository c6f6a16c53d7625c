// Package unpaywall resolves open access status for DOIs. It is an
// enrichment source, not a search source.
package unpaywall

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Indranil2020/search/internal/domain"
	"github.com/Indranil2020/search/pkg/httpclient"
)

const baseURL = "https://api.unpaywall.org/v2"

// Location is one known copy of a work.
type Location struct {
	URL       string `json:"url"`
	URLForPDF string `json:"url_for_pdf"`
	Version   string `json:"version"`
	HostType  string `json:"host_type"`
	License   string `json:"license"`
}

// Record is the Unpaywall view of one DOI.
type Record struct {
	DOI            string     `json:"doi"`
	IsOA           bool       `json:"is_oa"`
	OAStatus       string     `json:"oa_status"`
	BestOALocation *Location  `json:"best_oa_location"`
	OALocations    []Location `json:"oa_locations"`
	JournalName    string     `json:"journal_name"`
	Publisher      string     `json:"publisher"`
	Year           *int       `json:"year"`
}

type Client struct {
	http  *httpclient.Client
	email string
	base  string
}

// NewClient creates an Unpaywall client. The API requires an email address.
func NewClient(email string) *Client {
	return &Client{
		http:  httpclient.New(10.0),
		email: email,
		base:  baseURL,
	}
}

// Lookup fetches the full Unpaywall record for a DOI. Returns (nil, nil) for
// DOIs Unpaywall does not know.
func (c *Client) Lookup(ctx context.Context, doi string) (*Record, error) {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return nil, domain.ErrEmptyID
	}

	params := url.Values{}
	params.Set("email", c.email)

	resp, err := c.http.Get(ctx, c.base+"/"+doi, params, nil)
	if err != nil {
		var herr *httpclient.Error
		if errors.As(err, &herr) && herr.StatusCode == 404 {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup failed: %w", err)
	}

	var rec Record
	if err := resp.JSON(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Enrich upgrades a paper's access metadata from Unpaywall. Access status
// only moves toward open; it never downgrades a record already known to be
// readable. Lookup failures leave the paper untouched.
func (c *Client) Enrich(ctx context.Context, p *domain.Paper) error {
	if p.DOI == "" {
		return nil
	}

	rec, err := c.Lookup(ctx, p.DOI)
	if err != nil || rec == nil {
		return err
	}

	if !rec.IsOA {
		return nil
	}

	p.AccessType = domain.AccessOpen
	if loc := rec.BestOALocation; loc != nil {
		if p.PDFURL == "" && loc.URLForPDF != "" {
			p.PDFURL = loc.URLForPDF
			if p.URLs == nil {
				p.URLs = map[string]string{}
			}
			p.URLs["pdf"] = loc.URLForPDF
		}
		if p.HTMLURL == "" && loc.URL != "" {
			p.HTMLURL = loc.URL
		}
	}
	return nil
}
