package domain

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// ReliabilityLevel bands the total score with a traffic-light color.
type ReliabilityLevel string

const (
	LevelHigh   ReliabilityLevel = "high"   // >= 0.8
	LevelMedium ReliabilityLevel = "medium" // >= 0.5
	LevelLow    ReliabilityLevel = "low"
)

// Color returns the color code for the level.
func (l ReliabilityLevel) Color() string {
	switch l {
	case LevelHigh:
		return "green"
	case LevelMedium:
		return "yellow"
	default:
		return "red"
	}
}

// ReliabilityScore is an additive composition of component scores.
// Component maxima sum to 1.0; a retraction forces the total to zero and
// each contradiction subtracts 0.05.
type ReliabilityScore struct {
	PeerReview   float64 // 0.00-0.30
	Journal      float64 // 0.00-0.20
	Citations    float64 // 0.00-0.20
	Verification float64 // 0.00-0.20
	Recency      float64 // 0.00-0.10

	IsRetracted    bool
	Contradictions []string
}

// Total clamps the penalized component sum into [0, 1].
func (s ReliabilityScore) Total() float64 {
	if s.IsRetracted {
		return 0
	}
	base := s.PeerReview + s.Journal + s.Citations + s.Verification + s.Recency
	base -= float64(len(s.Contradictions)) * 0.05
	return math.Max(0, math.Min(1, base))
}

// Level maps the total into the high/medium/low bands.
func (s ReliabilityScore) Level() ReliabilityLevel {
	total := s.Total()
	switch {
	case total >= 0.8:
		return LevelHigh
	case total >= 0.5:
		return LevelMedium
	default:
		return LevelLow
	}
}

func round3(f float64) float64 { return math.Round(f*1000) / 1000 }

// MarshalJSON emits the computed score, color and level alongside the raw
// components.
func (s ReliabilityScore) MarshalJSON() ([]byte, error) {
	contradictions := s.Contradictions
	if contradictions == nil {
		contradictions = []string{}
	}
	return json.Marshal(struct {
		Score      float64            `json:"score"`
		Color      string             `json:"color"`
		Level      ReliabilityLevel   `json:"level"`
		Components map[string]float64 `json:"components"`
		Retracted  bool               `json:"isRetracted"`
		Contra     []string           `json:"contradictions"`
	}{
		Score: round3(s.Total()),
		Color: s.Level().Color(),
		Level: s.Level(),
		Components: map[string]float64{
			"peerReview":   round3(s.PeerReview),
			"journal":      round3(s.Journal),
			"citations":    round3(s.Citations),
			"verification": round3(s.Verification),
			"recency":      round3(s.Recency),
		},
		Retracted: s.IsRetracted,
		Contra:    contradictions,
	})
}

// Journals whose name match alone earns the full journal component.
var highImpactJournals = []string{
	"nature", "science", "cell", "the lancet",
	"new england journal of medicine", "jama", "bmj",
	"nature medicine", "nature genetics", "nature biotechnology",
	"nature communications", "proceedings of the national academy of sciences",
	"physical review letters", "journal of the american chemical society",
	"angewandte chemie", "chemical reviews", "chemical society reviews",
	"neuron", "immunity", "molecular cell",
}

var reputablePublishers = map[string]bool{
	"nature publishing group": true, "springer": true, "elsevier": true,
	"wiley": true, "cell press": true, "american chemical society": true,
	"royal society of chemistry": true, "ieee": true,
	"american physical society": true, "oxford university press": true,
	"cambridge university press": true, "plos": true, "frontiers": true,
	"bmc": true,
}

// ReliabilityInput carries the evidence used to score a paper.
type ReliabilityInput struct {
	PeerReviewed  bool
	JournalName   string
	CitationCount int
	SourcesFound  int
	Year          *int
	Retracted     bool
}

// CalculateReliability scores a paper from the multi-factor rubric. The
// verification component is driven by how many sources returned the record,
// so the orchestrator recomputes it after deduplication.
func CalculateReliability(p *Paper, in ReliabilityInput) ReliabilityScore {
	var s ReliabilityScore

	if in.Retracted {
		s.IsRetracted = true
		return s
	}

	switch {
	case in.PeerReviewed:
		s.PeerReview = 0.30
	case p.SourceType == SourcePreprint:
		s.PeerReview = 0.10
	case p.SourceType == SourceConference:
		s.PeerReview = 0.20
	default:
		s.PeerReview = 0.05
	}

	if in.JournalName != "" {
		lower := strings.ToLower(in.JournalName)
		matched := false
		for _, j := range highImpactJournals {
			if strings.Contains(lower, j) {
				matched = true
				break
			}
		}
		switch {
		case matched:
			s.Journal = 0.20
		case reputablePublishers[strings.ToLower(p.Publisher)]:
			s.Journal = 0.15
		default:
			s.Journal = 0.10
		}
	}

	switch c := in.CitationCount; {
	case c >= 500:
		s.Citations = 0.20
	case c >= 100:
		s.Citations = 0.15
	case c >= 25:
		s.Citations = 0.10
	case c >= 5:
		s.Citations = 0.05
	case c >= 1:
		s.Citations = 0.02
	}

	switch n := in.SourcesFound; {
	case n >= 5:
		s.Verification = 0.20
	case n >= 3:
		s.Verification = 0.15
	case n >= 2:
		s.Verification = 0.10
	default:
		s.Verification = 0.05
	}

	if in.Year != nil {
		switch age := time.Now().Year() - *in.Year; {
		case age <= 2:
			s.Recency = 0.10
		case age <= 5:
			s.Recency = 0.07
		case age <= 10:
			s.Recency = 0.04
		default:
			s.Recency = 0.02
		}
	}

	return s
}
