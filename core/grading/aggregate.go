package grading

import (
	"github.com/trezcool/feria/core/evaluation"
)

// Aggregation is the jury summary of one project. Average is 0 when Count is 0.
type Aggregation struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

func (a Aggregation) Evaluated() bool { return a.Count > 0 }

// Aggregate reduces the evaluations of projectID to their count and average total score.
func Aggregate(projectID string, evals []evaluation.Evaluation) Aggregation {
	var agg Aggregation
	var sum int
	for _, e := range evals {
		if e.ProjectID != projectID {
			continue
		}
		agg.Count++
		sum += e.TotalScore
	}
	if agg.Count > 0 {
		agg.Average = float64(sum) / float64(agg.Count)
	}
	return agg
}

// AggregateAll aggregates every project referenced by evals in a single pass.
func AggregateAll(evals []evaluation.Evaluation) map[string]Aggregation {
	sums := make(map[string]int)
	aggs := make(map[string]Aggregation)
	for _, e := range evals {
		agg := aggs[e.ProjectID]
		agg.Count++
		aggs[e.ProjectID] = agg
		sums[e.ProjectID] += e.TotalScore
	}
	for id, agg := range aggs {
		agg.Average = float64(sums[id]) / float64(agg.Count)
		aggs[id] = agg
	}
	return aggs
}
