package search

import "github.com/Indranil2020/search/internal/domain"

// Phase names a stage of the search pipeline.
type Phase string

const (
	PhaseSearch    Phase = "Search"
	PhaseCitations Phase = "Citations"
	PhaseProcess   Phase = "Process"
	PhaseComplete  Phase = "Complete"
)

// Status values for a progress update.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusError    = "error"
)

// ProgressUpdate is one step of pipeline progress pushed to a listener.
type ProgressUpdate struct {
	Phase   Phase  `json:"phase"`
	Source  string `json:"source,omitempty"`
	Status  string `json:"status"`
	Count   int    `json:"count,omitempty"`
	Message string `json:"message,omitempty"`
}

// ProgressFunc receives pipeline progress. Implementations must be safe for
// concurrent calls; the engine invokes it from source goroutines.
type ProgressFunc func(ProgressUpdate)

// ReliabilityCounts tallies papers by reliability band.
type ReliabilityCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// AccessCounts tallies papers by access status. Unknown access falls in
// neither bucket, so open+paywalled may be less than the total.
type AccessCounts struct {
	Open      int `json:"open"`
	Paywalled int `json:"paywalled"`
}

// Timeline is the publication year range of a result set.
type Timeline struct {
	Earliest *int `json:"earliest"`
	Latest   *int `json:"latest"`
}

// SearchResult is the complete response for one federated search.
type SearchResult struct {
	Query             string            `json:"query"`
	Papers            []*domain.Paper   `json:"papers"`
	TotalFound        int               `json:"totalFound"`
	SourcesSearched   []string          `json:"sourcesSearched"`
	DuplicatesRemoved int               `json:"duplicatesRemoved"`
	SearchTimeSeconds float64           `json:"searchTimeSeconds"`
	Reliability       ReliabilityCounts `json:"reliability"`
	Access            AccessCounts      `json:"access"`
	Timeline          Timeline          `json:"timeline"`
}

// summarize fills the aggregate counters from the final paper list.
func summarize(papers []*domain.Paper) (ReliabilityCounts, AccessCounts, Timeline) {
	var rel ReliabilityCounts
	var acc AccessCounts
	var tl Timeline

	for _, p := range papers {
		switch p.Reliability.Level() {
		case domain.LevelHigh:
			rel.High++
		case domain.LevelMedium:
			rel.Medium++
		default:
			rel.Low++
		}

		switch p.AccessType {
		case domain.AccessOpen:
			acc.Open++
		case domain.AccessPaywalled:
			acc.Paywalled++
		}

		if p.Year != nil {
			if tl.Earliest == nil || *p.Year < *tl.Earliest {
				tl.Earliest = p.Year
			}
			if tl.Latest == nil || *p.Year > *tl.Latest {
				tl.Latest = p.Year
			}
		}
	}

	return rel, acc, tl
}
