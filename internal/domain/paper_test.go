package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		authors []Author
		want    string
	}{
		{"no authors", nil, "Unknown"},
		{"single author", []Author{{Name: "Jane Doe"}}, "Jane Doe"},
		{
			"three authors joined",
			[]Author{{Name: "A One"}, {Name: "B Two"}, {Name: "C Three"}},
			"A One, B Two, C Three",
		},
		{
			"four authors truncate to et al",
			[]Author{{Name: "A One"}, {Name: "B Two"}, {Name: "C Three"}, {Name: "D Four"}},
			"A One, B Two, C Three et al.",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &Paper{Authors: tt.authors}
			assert.Equal(t, tt.want, p.AuthorString())
		})
	}
}

func TestPaperJSONIncludesAuthorString(t *testing.T) {
	t.Parallel()

	p := &Paper{
		ID:             "pubmed_12345",
		Title:          "Example",
		Authors:        []Author{{Name: "Jane Doe"}, {Name: "John Roe"}},
		RelevanceScore: 72.345678,
	}

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))

	assert.Equal(t, "Jane Doe, John Roe", out["authorString"])
	assert.Equal(t, "pubmed_12345", out["id"])
	assert.Nil(t, out["year"])
	assert.Equal(t, 72.346, out["relevanceScore"])
}

func TestYearFromDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want *int
	}{
		{"2021-03-15", YearOf(2021)},
		{"2021", YearOf(2021)},
		{"15 Mar 1998", YearOf(1998)},
		{"", nil},
		{"n/a", nil},
	}

	for _, tt := range tests {
		got := YearFromDate(tt.in)
		if tt.want == nil {
			assert.Nil(t, got, tt.in)
			continue
		}
		require.NotNil(t, got, tt.in)
		assert.Equal(t, *tt.want, *got, tt.in)
	}
}

func TestCollapseSpace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b c", CollapseSpace("  a\n b\t\tc  "))
	assert.Equal(t, "", CollapseSpace("   "))
}
