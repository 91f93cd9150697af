package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/feria/core/project"
)

func result(id, course string, avg float64) Result {
	return Result{
		Project:     project.Project{ID: id, Course: course},
		Aggregation: Aggregation{Count: 1, Average: avg},
	}
}

func ids(results []Result) []string {
	res := make([]string, 0, len(results))
	for _, r := range results {
		res = append(res, r.Project.ID)
	}
	return res
}

func labels(groups []Group) []string {
	res := make([]string, 0, len(groups))
	for _, g := range groups {
		res = append(res, g.Label)
	}
	return res
}

func TestExactMatch_Key(t *testing.T) {
	tests := []struct {
		course   string
		want     string
		collapse string
	}{
		{course: "Primeros", want: "PRIMEROS", collapse: "PRIMEROS"},
		{course: " sextos ", want: "SEXTOS", collapse: "SEXTOS"},
		{course: "PRIMERO A", want: "PRIMERO A", collapse: OtherGroup},
		{course: "Taller", want: "TALLER", collapse: OtherGroup},
		{course: "", want: OtherGroup, collapse: OtherGroup},
	}
	for _, tt := range tests {
		t.Run(tt.course, func(t *testing.T) {
			assert.Equal(t, tt.want, NewExactMatch(false).Key(tt.course))
			assert.Equal(t, tt.collapse, NewExactMatch(true).Key(tt.course))
		})
	}
}

func TestPrefixMatch_Key(t *testing.T) {
	tests := []struct {
		course string
		want   string
	}{
		{course: "PRIMERO A", want: "PRIMEROS"},
		{course: "primero b", want: "PRIMEROS"},
		{course: "Segundo Medio", want: "SEGUNDOS"},
		{course: "tercero", want: "TERCEROS"},
		{course: "Cuarto C", want: "CUARTOS"},
		{course: "QUINTO", want: "QUINTOS"},
		{course: "sexto a", want: "SEXTOS"},
		{course: "Septimo", want: OtherGroup},
		{course: "A PRIMERO", want: OtherGroup},
		{course: "", want: OtherGroup},
	}
	for _, tt := range tests {
		t.Run(tt.course, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPrefixMatch().Key(tt.course))
		})
	}

	first := PrefixMatch{Rules: []PrefixRule{{Prefix: "PRI", Group: "A"}, {Prefix: "PRIMER", Group: "B"}}}
	assert.Equal(t, "A", first.Key("primero"), "first matching prefix wins")
	assert.Equal(t, CanonicalGroups, NewPrefixMatch().Order())
}

func TestGroupAndRank(t *testing.T) {
	results := []Result{
		result("taller-1", "Taller", 50),
		result("sex-1", "SEXTOS", 70),
		result("pri-1", "primeros", 60),
		result("none-1", "", 10),
		result("pri-2", "PRIMEROS", 90),
		result("arte-1", "Arte", 20),
		result("sex-2", "sextos", 70),
		result("pri-3", "Primeros", 75),
	}

	t.Run("exact match: canonical then first seen", func(t *testing.T) {
		groups := GroupAndRank(results, NewExactMatch(false), ByJuryAverage)
		assert.Equal(t, []string{"PRIMEROS", "SEXTOS", "TALLER", OtherGroup, "ARTE"}, labels(groups))
		assert.Equal(t, []string{"pri-2", "pri-3", "pri-1"}, ids(groups[0].Results))
		assert.Equal(t, []string{"sex-1", "sex-2"}, ids(groups[1].Results), "ties keep input order")
		for _, g := range groups {
			for i, r := range g.Results {
				assert.Equal(t, i+1, r.Rank)
			}
		}
	})

	t.Run("exact match collapsed", func(t *testing.T) {
		groups := GroupAndRank(results, NewExactMatch(true), ByJuryAverage)
		require.Equal(t, []string{"PRIMEROS", "SEXTOS", OtherGroup}, labels(groups))
		assert.Equal(t, []string{"taller-1", "arte-1", "none-1"}, ids(groups[2].Results))
	})

	t.Run("prefix match", func(t *testing.T) {
		in := []Result{
			result("q", "Quinto B", 40),
			result("p1", "PRIMERO B", 80),
			result("x", "Electivo", 99),
			result("p2", "Primero A", 85),
			result("s", "segundo", 10),
		}
		groups := GroupAndRank(in, NewPrefixMatch(), ByJuryAverage)
		assert.Equal(t, []string{"PRIMEROS", "SEGUNDOS", "QUINTOS", OtherGroup}, labels(groups))
		assert.Equal(t, []string{"p2", "p1"}, ids(groups[0].Results))
	})

	t.Run("no strategy", func(t *testing.T) {
		groups := GroupAndRank(results, nil, ByJuryAverage)
		require.Len(t, groups, 1)
		assert.Equal(t, AllGroup, groups[0].Label)
		assert.Equal(t, []string{"pri-2", "pri-3", "sex-1", "sex-2", "pri-1", "taller-1", "arte-1", "none-1"}, ids(groups[0].Results))
	})

	t.Run("ranked on final grade", func(t *testing.T) {
		a, b := result("a", "CUARTOS", 90), result("b", "CUARTOS", 50)
		a.Scaled.FinalGrade, b.Scaled.FinalGrade = 2.0, 3.5
		groups := GroupAndRank([]Result{a, b}, NewExactMatch(false), ByFinalGrade)
		assert.Equal(t, []string{"b", "a"}, ids(groups[0].Results))
	})

	t.Run("input untouched", func(t *testing.T) {
		in := []Result{result("a", "QUINTOS", 1), result("b", "QUINTOS", 2)}
		_ = GroupAndRank(in, NewExactMatch(false), ByJuryAverage)
		assert.Equal(t, []string{"a", "b"}, ids(in))
		assert.Zero(t, in[0].Rank)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, GroupAndRank(nil, NewPrefixMatch(), ByJuryAverage))
	})
}

func TestSubGroupByCourse(t *testing.T) {
	groups := GroupAndRank([]Result{
		result("b1", "PRIMERO B", 60),
		result("a1", "PRIMERO A", 40),
		result("b2", "PRIMERO B", 95),
		result("a2", "PRIMERO A", 70),
		result("c1", "Primero C", 10),
	}, NewPrefixMatch(), ByJuryAverage)
	require.Len(t, groups, 1)

	subs := SubGroupByCourse(groups[0], ByJuryAverage)
	require.Len(t, subs, 3)
	assert.Equal(t, "PRIMERO A", subs[0].Course)
	assert.Equal(t, []string{"a2", "a1"}, ids(subs[0].Results))
	assert.Equal(t, "PRIMERO B", subs[1].Course)
	assert.Equal(t, []string{"b2", "b1"}, ids(subs[1].Results))
	assert.Equal(t, "Primero C", subs[2].Course)
	assert.Equal(t, 1, subs[1].Results[0].Rank)
	assert.Equal(t, 2, subs[1].Results[1].Rank)

	t.Run("ranked by its own score", func(t *testing.T) {
		byInternal := func(r Result) float64 { return r.Internal }
		g := Group{Label: "PRIMEROS", Results: []Result{
			{Project: project.Project{ID: "a1", Course: "PRIMERO A"}, Internal: 50},
			{Project: project.Project{ID: "a2", Course: "PRIMERO A"}, Internal: 90},
		}}
		subs := SubGroupByCourse(g, byInternal)
		require.Len(t, subs, 1)
		assert.Equal(t, []string{"a2", "a1"}, ids(subs[0].Results))

		subs = SubGroupByCourse(g, nil)
		assert.Equal(t, []string{"a1", "a2"}, ids(subs[0].Results), "nil keeps the group order")
	})
}
