package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/feria/core/assignment"
	"github.com/trezcool/feria/core/evaluation"
	"github.com/trezcool/feria/core/grading"
	"github.com/trezcool/feria/core/user"
	"github.com/trezcool/feria/tests"
)

func Test_reportApi(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	ada := testutil.CreateUser(t, app.usrRepo, "Ada", "ada", "", "", user.RoleJudge)
	grace := testutil.CreateUser(t, app.usrRepo, "Grace", "grace", "", "", user.RoleJudge)
	marie := testutil.CreateUser(t, app.usrRepo, "Marie", "marie", "", "", user.RoleTeacher)

	volcano := testutil.CreateProject(t, app.projRepo, "Volcano", "PRIMEROS", testutil.Grade(80))
	robot := testutil.CreateProject(t, app.projRepo, "Robot", "PRIMEROS", testutil.Grade(60))
	testutil.CreateProject(t, app.projRepo, "Compost", "Club de ciencias", nil)

	syncer := assignment.NewSynchronizer(nil, app.projRepo, app.usrRepo, nil, nil)
	_, err := syncer.Sync(ctx, volcano.ID, []string{ada.ID, grace.ID})
	require.NoError(t, err)
	_, err = syncer.Sync(ctx, robot.ID, []string{ada.ID})
	require.NoError(t, err)

	testutil.CreateEvaluation(t, app.evalRepo, ada.ID, volcano.ID, evaluation.Scores{Punctuality: 10, Exposition: 30, Materials: 30, Triptych: 20, Cleanliness: 10})
	testutil.CreateEvaluation(t, app.evalRepo, grace.ID, volcano.ID, evaluation.Scores{Punctuality: 10, Exposition: 20, Materials: 20, Triptych: 20, Cleanliness: 10})
	testutil.CreateEvaluation(t, app.evalRepo, ada.ID, robot.ID, evaluation.Scores{Punctuality: 5, Exposition: 30, Materials: 30, Triptych: 20, Cleanliness: 10})

	tests := []httpTest{
		{
			name:     "staff reports need a token",
			method:   http.MethodGet,
			path:     "/v1/reports/admin",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "judges do not read staff reports",
			method:   http.MethodGet,
			path:     "/v1/reports/professor",
			token:    getToken(t, ada),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "unknown report",
			method:   http.MethodGet,
			path:     "/v1/reports/weekly",
			token:    getToken(t, marie),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "report weekly not found"}),
		},
		{
			name:     "unknown policy",
			method:   http.MethodGet,
			path:     "/v1/results?policy=curve",
			token:    getToken(t, marie),
			wantCode: http.StatusBadRequest,
		},
	}
	runHTTPTests(t, app, tests)

	t.Run("student report is public", func(t *testing.T) {
		rec := app.do(newRequest(http.MethodGet, "/v1/reports/student"))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var rep grading.Report
		unmarshal(t, rec, &rep)
		assert.Equal(t, grading.KindStudent, rep.Kind)
		require.Len(t, rep.Groups, 1, "unevaluated projects are left out")
		assert.Equal(t, "PRIMEROS", rep.Groups[0].Label)
		require.Len(t, rep.Groups[0].Results, 2)
		assert.Equal(t, robot.ID, rep.Groups[0].Results[0].Project.ID)
		assert.Equal(t, 1, rep.Groups[0].Results[0].Rank)
		assert.Equal(t, 95.0, rep.Groups[0].Results[0].Aggregation.Average)
		assert.Equal(t, volcano.ID, rep.Groups[0].Results[1].Project.ID)
		assert.Equal(t, 90.0, rep.Groups[0].Results[1].Aggregation.Average)
	})

	t.Run("professor report", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, "/v1/reports/professor", getToken(t, marie)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var rep grading.Report
		unmarshal(t, rec, &rep)
		assert.Equal(t, grading.PolicySumToFive, rep.Policy)
		require.Len(t, rep.Groups, 2)
		assert.Equal(t, "PRIMEROS", rep.Groups[0].Label)
		assert.Equal(t, "CLUB DE CIENCIAS", rep.Groups[1].Label)

		top := rep.Groups[0].Results[0]
		assert.Equal(t, volcano.ID, top.Project.ID, "ranked by final grade")
		assert.InDelta(t, 4.25, top.Scaled.FinalGrade, 1e-9)
		assert.Equal(t, grading.StatusPending, rep.Groups[1].Results[0].Scaled.Status)
	})

	t.Run("admin report resolves judges", func(t *testing.T) {
		require.NoError(t, app.usrRepo.DeleteUsersByID(ctx, []string{grace.ID}))

		rec := app.do(newAuthRequest(http.MethodGet, "/v1/reports/admin", getToken(t, marie)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var rep grading.Report
		unmarshal(t, rec, &rep)
		require.Len(t, rep.Groups, 1)
		assert.Equal(t, grading.AllGroup, rep.Groups[0].Label)

		for _, r := range rep.Groups[0].Results {
			if r.Project.ID == volcano.ID {
				assert.Equal(t, []string{"Ada", grading.UnknownJudge}, r.Judges)
			}
		}
	})

	t.Run("results", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, "/v1/results?policy="+grading.PolicyIndependent5, getToken(t, marie)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var results []grading.Result
		unmarshal(t, rec, &results)
		require.Len(t, results, 3)
		assert.Equal(t, 4.0, results[0].Scaled.ScaledInternal)
		assert.Equal(t, 5.0, results[0].Scaled.ScaledJury)
	})
}
