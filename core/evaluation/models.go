package evaluation

import (
	"strconv"
	"strings"
	"time"
)

// Criterion is one line of the fixed scoring rubric.
type Criterion struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Max   int    `json:"max"`
}

const (
	Punctuality = "punctuality"
	Exposition  = "exposition"
	Materials   = "materials"
	Triptych    = "triptych"
	Cleanliness = "cleanliness"

	MaxTotalScore = 100
)

// Rubric lists the criteria in display order; their maxima sum to MaxTotalScore.
var Rubric = []Criterion{
	{Key: Punctuality, Label: "Punctuality", Max: 10},
	{Key: Exposition, Label: "Exposition", Max: 30},
	{Key: Materials, Label: "Materials", Max: 30},
	{Key: Triptych, Label: "Triptych", Max: 20},
	{Key: Cleanliness, Label: "Cleanliness", Max: 10},
}

// CriterionMax returns the maximum of criterion key, 0 for unknown keys.
func CriterionMax(key string) int {
	for _, c := range Rubric {
		if c.Key == key {
			return c.Max
		}
	}
	return 0
}

type Scores struct {
	Punctuality int `json:"punctuality"`
	Exposition  int `json:"exposition"`
	Materials   int `json:"materials"`
	Triptych    int `json:"triptych"`
	Cleanliness int `json:"cleanliness"`
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// Clamp returns s with every criterion bounded to [0, criterion max].
func (s Scores) Clamp() Scores {
	return Scores{
		Punctuality: clamp(s.Punctuality, CriterionMax(Punctuality)),
		Exposition:  clamp(s.Exposition, CriterionMax(Exposition)),
		Materials:   clamp(s.Materials, CriterionMax(Materials)),
		Triptych:    clamp(s.Triptych, CriterionMax(Triptych)),
		Cleanliness: clamp(s.Cleanliness, CriterionMax(Cleanliness)),
	}
}

// Total sums the clamped scores, so it never exceeds MaxTotalScore.
func (s Scores) Total() int {
	c := s.Clamp()
	return c.Punctuality + c.Exposition + c.Materials + c.Triptych + c.Cleanliness
}

// Map returns the scores keyed by criterion.
func (s Scores) Map() map[string]int {
	return map[string]int{
		Punctuality: s.Punctuality,
		Exposition:  s.Exposition,
		Materials:   s.Materials,
		Triptych:    s.Triptych,
		Cleanliness: s.Cleanliness,
	}
}

// ScoresFromMap builds clamped Scores from raw form values; unknown keys are ignored and malformed values count as 0.
func ScoresFromMap(raw map[string]string) Scores {
	return Scores{
		Punctuality: ParseScore(raw[Punctuality], CriterionMax(Punctuality)),
		Exposition:  ParseScore(raw[Exposition], CriterionMax(Exposition)),
		Materials:   ParseScore(raw[Materials], CriterionMax(Materials)),
		Triptych:    ParseScore(raw[Triptych], CriterionMax(Triptych)),
		Cleanliness: ParseScore(raw[Cleanliness], CriterionMax(Cleanliness)),
	}
}

// ParseScore reads the leading integer of raw (0 when there is none) and clamps it to [0, max].
// Integers too large for an int clamp like any other out of range value.
func ParseScore(raw string, max int) int {
	raw = strings.TrimSpace(raw)
	end := 0
	for end < len(raw) {
		c := raw[end]
		if (c >= '0' && c <= '9') || (end == 0 && (c == '-' || c == '+')) {
			end++
			continue
		}
		break
	}
	v, err := strconv.Atoi(raw[:end])
	if err != nil {
		// out of range input keeps its saturated value and is clamped below
		if nerr, ok := err.(*strconv.NumError); !ok || nerr.Err != strconv.ErrRange {
			return 0
		}
	}
	return clamp(v, max)
}

type Evaluation struct {
	ID         string    `json:"id"`
	JudgeID    string    `json:"judge_id"`
	ProjectID  string    `json:"project_id"`
	Scores     Scores    `json:"scores"`
	TotalScore int       `json:"total_score"`
	Timestamp  time.Time `json:"timestamp"` // UTC
}

// Submission is a judge's scoring of one project.
type Submission struct {
	ProjectID string `json:"project_id" validate:"required"`
	Scores    Scores `json:"scores"`
}

type QueryFilter struct {
	JudgeID   string `query:"judge"`
	ProjectID string `query:"project"`
}
