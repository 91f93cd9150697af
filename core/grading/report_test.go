package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/feria/core"
	"github.com/trezcool/feria/core/evaluation"
	"github.com/trezcool/feria/core/project"
	"github.com/trezcool/feria/core/user"
)

func grade(g float64) *float64 { return &g }

func fixtures() ([]project.Project, []evaluation.Evaluation) {
	projects := []project.Project{
		{ID: "p", Name: "Volcano", Course: "PRIMEROS", InternalGrade: grade(80), AssignedJudges: []string{"j1", "j2"}},
		{ID: "q", Name: "Solar oven", Course: "PRIMEROS", AssignedJudges: []string{"j1", "ghost"}},
		{ID: "r", Name: "Robot arm", Course: "Segundo A", InternalGrade: grade(90)},
		{ID: "s", Name: "Compost", Course: "Segundo B", InternalGrade: grade(50), AssignedJudges: []string{"j2"}},
	}
	evals := []evaluation.Evaluation{
		{JudgeID: "j1", ProjectID: "p", TotalScore: 70},
		{JudgeID: "j2", ProjectID: "p", TotalScore: 90},
		{JudgeID: "j1", ProjectID: "q", TotalScore: 95},
		{JudgeID: "j2", ProjectID: "s", TotalScore: 60},
	}
	return projects, evals
}

func find(t *testing.T, groups []Group, id string) Result {
	for _, g := range groups {
		for _, r := range g.Results {
			if r.Project.ID == id {
				return r
			}
		}
	}
	t.Fatalf("result %q not found", id)
	return Result{}
}

func TestConsolidate(t *testing.T) {
	projects, evals := fixtures()

	results := Consolidate(projects, evals, SumToFive{})
	require.Len(t, results, 4)

	p := results[0]
	assert.Equal(t, Aggregation{Count: 2, Average: 80}, p.Aggregation)
	assert.Equal(t, 80.0, p.Internal)
	assert.InDelta(t, 160, p.Scaled.TotalPoints, 1e-9)
	assert.InDelta(t, 4.0, p.Scaled.FinalGrade, 1e-9)
	assert.False(t, p.Scaled.Pending)

	q := results[1]
	assert.True(t, q.Scaled.Pending, "no internal grade")
	assert.Zero(t, q.Scaled.FinalGrade)
	assert.InDelta(t, 95, q.Scaled.TotalPoints, 1e-9)
	assert.Equal(t, StatusMissingInternal, q.Scaled.Status)

	r := results[2]
	assert.Equal(t, StatusMissingJury, r.Scaled.Status)

	indep := Consolidate(projects[:1], evals, IndependentFive{})
	assert.Equal(t, 4.0, indep[0].Scaled.ScaledInternal)
	assert.Equal(t, 4.0, indep[0].Scaled.ScaledJury)
}

func TestBuildReport(t *testing.T) {
	projects, evals := fixtures()
	judges := map[string]user.User{
		"j1": {ID: "j1", Name: "Ada"},
		"j2": {ID: "j2", Name: "Grace"},
	}

	t.Run("admin", func(t *testing.T) {
		rep := BuildReport(ReportSpecs[KindAdmin], projects, evals, judges)
		assert.Equal(t, PolicyRaw100, rep.Policy)
		require.Len(t, rep.Groups, 1)
		assert.Equal(t, []string{"q", "p", "s", "r"}, ids(rep.Groups[0].Results))
		assert.Equal(t, []string{"Ada", UnknownJudge}, find(t, rep.Groups, "q").Judges)
		assert.Equal(t, []string{"Ada", "Grace"}, find(t, rep.Groups, "p").Judges)
		assert.Empty(t, find(t, rep.Groups, "r").Judges)
	})

	t.Run("professor", func(t *testing.T) {
		rep := BuildReport(ReportSpecs[KindProfessor], projects, evals, nil)
		assert.Equal(t, PolicySumToFive, rep.Policy)
		assert.Equal(t, []string{"PRIMEROS", "SEGUNDO A", "SEGUNDO B"}, labels(rep.Groups))
		assert.Equal(t, []string{"p", "q"}, ids(rep.Groups[0].Results))
		assert.Nil(t, find(t, rep.Groups, "p").Judges)
	})

	t.Run("student", func(t *testing.T) {
		rep := BuildReport(ReportSpecs[KindStudent], projects, evals, nil)
		assert.Equal(t, []string{"PRIMEROS", OtherGroup}, labels(rep.Groups))
		assert.Equal(t, []string{"q", "p"}, ids(rep.Groups[0].Results))
		assert.Equal(t, []string{"s"}, ids(rep.Groups[1].Results), "unevaluated projects are left out")
	})

	t.Run("course", func(t *testing.T) {
		rep := BuildReport(ReportSpecs[KindCourse], projects, evals, nil)
		assert.Equal(t, PolicyIndependent5, rep.Policy)
		require.Equal(t, []string{"PRIMEROS", "SEGUNDOS"}, labels(rep.Groups))
		subs := rep.Groups[1].SubGroups
		require.Len(t, subs, 2)
		assert.Equal(t, "Segundo A", subs[0].Course)
		assert.Equal(t, "Segundo B", subs[1].Course)
		assert.Equal(t, 3.0, subs[1].Results[0].Scaled.ScaledJury)
	})
}

func TestSpecByKind(t *testing.T) {
	for kind := range ReportSpecs {
		spec, err := SpecByKind(string(kind))
		require.NoError(t, err)
		assert.Equal(t, kind, spec.Kind)
	}
	_, err := SpecByKind("parents")
	assert.True(t, core.IsNotFound(err))
}
