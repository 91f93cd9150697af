package grading

import (
	"sort"

	"github.com/trezcool/feria/core/project"
)

// AllGroup labels the single group produced without a GroupingStrategy.
const AllGroup = "ALL"

// Result is the consolidated, derived view of one project. It is never persisted.
type Result struct {
	Project     project.Project `json:"project"`
	Aggregation Aggregation     `json:"aggregation"`
	Internal    float64         `json:"internal_grade"`
	Scaled      Scaled          `json:"scaled"`
	Rank        int             `json:"rank"`
	Judges      []string        `json:"judges,omitempty"`
}

// RankBy picks the score a group is ranked on.
type RankBy func(Result) float64

func ByJuryAverage(r Result) float64 { return r.Aggregation.Average }

func ByFinalGrade(r Result) float64 { return r.Scaled.FinalGrade }

func ByTotalPoints(r Result) float64 { return r.Scaled.TotalPoints }

type SubGroup struct {
	Course  string   `json:"course"`
	Results []Result `json:"results"`
}

type Group struct {
	Label     string     `json:"label"`
	Results   []Result   `json:"results"`
	SubGroups []SubGroup `json:"sub_groups,omitempty"`
}

// GroupAndRank buckets results with strategy and ranks every bucket by rankBy, highest first.
// Equal scores keep their input order. A nil strategy yields a single AllGroup.
func GroupAndRank(results []Result, strategy GroupingStrategy, rankBy RankBy) []Group {
	buckets := make(map[string][]Result)
	seen := make([]string, 0)
	for _, r := range results {
		key := AllGroup
		if strategy != nil {
			key = strategy.Key(r.Project.Course)
		}
		if _, ok := buckets[key]; !ok {
			seen = append(seen, key)
		}
		buckets[key] = append(buckets[key], r)
	}

	labels := make([]string, 0, len(buckets))
	emitted := make(map[string]bool, len(buckets))
	if strategy != nil {
		for _, label := range strategy.Order() {
			if _, ok := buckets[label]; ok && !emitted[label] {
				labels = append(labels, label)
				emitted[label] = true
			}
		}
	}
	for _, label := range seen {
		if !emitted[label] {
			labels = append(labels, label)
			emitted[label] = true
		}
	}

	groups := make([]Group, 0, len(labels))
	for _, label := range labels {
		groups = append(groups, Group{Label: label, Results: rank(buckets[label], rankBy)})
	}
	return groups
}

// rank sorts a copy of results by rankBy, descending and stable, and numbers them from 1.
func rank(results []Result, rankBy RankBy) []Result {
	ranked := make([]Result, len(results))
	copy(ranked, results)
	if rankBy != nil {
		sort.SliceStable(ranked, func(i, j int) bool { return rankBy(ranked[i]) > rankBy(ranked[j]) })
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// SubGroupByCourse partitions a group by raw course string, sorted alphabetically.
// Each sub-group is ranked from 1 by rankBy; a nil rankBy keeps the group's order.
func SubGroupByCourse(g Group, rankBy RankBy) []SubGroup {
	byCourse := make(map[string][]Result)
	for _, r := range g.Results {
		byCourse[r.Project.Course] = append(byCourse[r.Project.Course], r)
	}
	courses := make([]string, 0, len(byCourse))
	for c := range byCourse {
		courses = append(courses, c)
	}
	sort.Strings(courses)

	subs := make([]SubGroup, 0, len(courses))
	for _, c := range courses {
		subs = append(subs, SubGroup{Course: c, Results: rank(byCourse[c], rankBy)})
	}
	return subs
}
