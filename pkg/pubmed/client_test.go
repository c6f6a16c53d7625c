package pubmed

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Indranil2020/search/internal/domain"
)

const sampleArticleSet = `<?xml version="1.0" ?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>33301246</PMID>
      <Article>
        <Journal>
          <JournalIssue>
            <Volume>383</Volume>
            <Issue>27</Issue>
            <PubDate><Year>2020</Year></PubDate>
          </JournalIssue>
          <Title>The New England journal of medicine</Title>
        </Journal>
        <ArticleTitle>Safety and Efficacy of the
          BNT162b2 Covid-19 Vaccine</ArticleTitle>
        <Pagination><MedlinePgn>2603-2615</MedlinePgn></Pagination>
        <Abstract>
          <AbstractText Label="BACKGROUND">Severe acute respiratory syndrome.</AbstractText>
          <AbstractText Label="METHODS">A multinational trial.</AbstractText>
        </Abstract>
        <AuthorList>
          <Author>
            <LastName>Polack</LastName>
            <ForeName>Fernando P</ForeName>
            <AffiliationInfo><Affiliation>Fundacion INFANT</Affiliation></AffiliationInfo>
          </Author>
          <Author>
            <LastName>Thomas</LastName>
            <ForeName>Stephen J</ForeName>
          </Author>
        </AuthorList>
      </Article>
      <MeshHeadingList>
        <MeshHeading><DescriptorName>COVID-19 Vaccines</DescriptorName></MeshHeading>
        <MeshHeading><DescriptorName>Humans</DescriptorName></MeshHeading>
      </MeshHeadingList>
    </MedlineCitation>
    <PubmedData>
      <ArticleIdList>
        <ArticleId IdType="pubmed">33301246</ArticleId>
        <ArticleId IdType="doi">10.1056/NEJMoa2034577</ArticleId>
        <ArticleId IdType="pmc">PMC7745181</ArticleId>
      </ArticleIdList>
    </PubmedData>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation><PMID></PMID></MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

func TestArticleToPaper(t *testing.T) {
	t.Parallel()

	var set articleSet
	require.NoError(t, xml.Unmarshal([]byte(sampleArticleSet), &set))
	require.Len(t, set.Articles, 2)

	p := articleToPaper(&set.Articles[0])
	require.NotNil(t, p)

	assert.Equal(t, "pubmed_33301246", p.ID)
	assert.Equal(t, "Safety and Efficacy of the BNT162b2 Covid-19 Vaccine", p.Title)
	assert.Equal(t, "The New England journal of medicine", p.Journal)
	assert.Equal(t, "383", p.Volume)
	assert.Equal(t, "27", p.Issue)
	assert.Equal(t, "2603-2615", p.Pages)
	require.NotNil(t, p.Year)
	assert.Equal(t, 2020, *p.Year)
	assert.Equal(t, "10.1056/NEJMoa2034577", p.DOI)
	assert.Equal(t, "PMC7745181", p.PMCID)
	assert.Equal(t, "BACKGROUND: Severe acute respiratory syndrome. METHODS: A multinational trial.", p.Abstract)
	assert.Equal(t, []string{"COVID-19 Vaccines", "Humans"}, p.Keywords)
	assert.Equal(t, domain.SourcePeerReviewed, p.SourceType)

	// A PMC id means a freely readable copy exists.
	assert.Equal(t, domain.AccessOpen, p.AccessType)
	assert.Equal(t, "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC7745181/pdf/", p.PDFURL)

	require.Len(t, p.Authors, 2)
	assert.Equal(t, "Fernando P Polack", p.Authors[0].Name)
	assert.Equal(t, "Fundacion INFANT", p.Authors[0].Affiliation)
	assert.Empty(t, p.Authors[1].Affiliation)

	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/33301246/", p.URLs["pubmed"])
	assert.Equal(t, "https://doi.org/10.1056/NEJMoa2034577", p.URLs["doi"])

	// High impact journal, peer reviewed.
	assert.Equal(t, 0.30, p.Reliability.PeerReview)
	assert.Equal(t, 0.20, p.Reliability.Journal)

	// Records without a PMID are dropped.
	assert.Nil(t, articleToPaper(&set.Articles[1]))
}
