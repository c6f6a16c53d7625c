package europepmc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Indranil2020/search/internal/domain"
	"github.com/Indranil2020/search/pkg/httpclient"
)

const sampleResult = `{
  "id": "33301246",
  "pmid": "33301246",
  "pmcid": "PMC7614764",
  "doi": "10.1056/nejmoa2034577",
  "title": "Safety and Efficacy of the BNT162b2 Covid-19 Vaccine.",
  "authorString": "Polack FP, Thomas SJ, Kitchin N.",
  "journalTitle": "N Engl J Med",
  "pubYear": "2020",
  "abstractText": "Severe acute respiratory syndrome coronavirus 2 infection...",
  "pubType": "research-article",
  "isOpenAccess": "Y",
  "citedByCount": 9000,
  "authorList": {
    "author": [
      {"fullName": "Polack FP", "affiliation": "Fundacion INFANT"},
      {"fullName": "Thomas SJ"}
    ]
  },
  "keywordList": {"keyword": ["Covid-19", "Vaccine"]}
}`

func TestResultToPaper(t *testing.T) {
	t.Parallel()

	var r result
	require.NoError(t, json.Unmarshal([]byte(sampleResult), &r))

	p := resultToPaper(&r)
	require.NotNil(t, p)

	// PMCID is preferred over PMID for the id.
	assert.Equal(t, "europmc_PMC7614764", p.ID)
	assert.Equal(t, "33301246", p.PMID)
	assert.Equal(t, "PMC7614764", p.PMCID)
	assert.Equal(t, "10.1056/nejmoa2034577", p.DOI)
	require.NotNil(t, p.Year)
	assert.Equal(t, 2020, *p.Year)
	assert.Equal(t, "N Engl J Med", p.Journal)
	assert.Equal(t, 9000, p.CitationCount)
	assert.Equal(t, domain.SourcePeerReviewed, p.SourceType)
	assert.Equal(t, domain.AccessOpen, p.AccessType)
	assert.Equal(t, "https://europepmc.org/backend/ptpmcrender.fcgi?accid=PMC7614764&blobtype=pdf", p.PDFURL)

	require.Len(t, p.Authors, 2)
	assert.Equal(t, "Polack FP", p.Authors[0].Name)
	assert.Equal(t, "Fundacion INFANT", p.Authors[0].Affiliation)
}

func TestResultToPaperAuthorStringFallback(t *testing.T) {
	t.Parallel()

	r := result{
		ID:           "1",
		PMID:         "1",
		Title:        "No structured authors",
		AuthorString: "Doe J, Roe R.",
	}

	p := resultToPaper(&r)
	require.NotNil(t, p)
	require.Len(t, p.Authors, 2)
	assert.Equal(t, "Doe J", p.Authors[0].Name)
	assert.Equal(t, "Roe R", p.Authors[1].Name)
}

func TestResultToPaperPreprint(t *testing.T) {
	t.Parallel()

	r := result{ID: "PPR1", Title: "A preprint", PubType: "preprint"}
	p := resultToPaper(&r)
	require.NotNil(t, p)
	assert.Equal(t, domain.SourcePreprint, p.SourceType)
	assert.Equal(t, domain.AccessPaywalled, p.AccessType)
}

func TestSearchStopsWhenCursorRepeats(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		// Full pages forever, but the cursor never advances past "c1".
		results := make([]string, 0, 100)
		for i := 0; i < 100; i++ {
			results = append(results, fmt.Sprintf(`{"id": "%d-%d", "pmid": "%d%d", "title": "t"}`, calls, i, calls, i))
		}
		fmt.Fprintf(w, `{"hitCount": 100000, "nextCursorMark": "c1", "resultList": {"result": [%s]}}`,
			joinJSON(results))
	}))
	defer srv.Close()

	c := &Client{http: httpclient.New(1000), base: srv.URL}
	papers, err := c.Search(context.Background(), "q", 1000)
	require.NoError(t, err)

	assert.Equal(t, 2, calls, "a repeated cursor must terminate paging")
	assert.Len(t, papers, 200)
}

func joinJSON(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}
