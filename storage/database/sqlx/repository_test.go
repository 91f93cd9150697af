package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/feria/core"
	"github.com/trezcool/feria/core/evaluation"
	"github.com/trezcool/feria/core/project"
	"github.com/trezcool/feria/core/user"
	sqlxrepos "github.com/trezcool/feria/storage/database/sqlx"
	"github.com/trezcool/feria/tests"
)

func usernames(users []user.User) []string {
	res := make([]string, 0, len(users))
	for _, u := range users {
		res = append(res, u.Username)
	}
	return res
}

func projectNames(projects []project.Project) []string {
	res := make([]string, 0, len(projects))
	for _, p := range projects {
		res = append(res, p.Name)
	}
	return res
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewUserRepository(db)

	now := time.Now().UTC()
	admin := testutil.CreateUser(t, repo, "Admin", "admin", "admin@feria.test", "", user.RoleAdmin, now.Add(-3*time.Hour))
	ada := testutil.CreateUser(t, repo, "Ada Lovelace", "ada", "ada@feria.test", "", user.RoleJudge, now.Add(-2*time.Hour))
	grace := testutil.CreateUser(t, repo, "Grace Hopper", "grace", "", "", user.RoleJudge, now.Add(-time.Hour))
	marie := testutil.CreateUser(t, repo, "Marie Curie", "marie", "", "", user.RoleTeacher, now)

	t.Run("uniqueness", func(t *testing.T) {
		assert.Equal(t, user.ErrUsernameExists, repo.CheckUsernameUniqueness(ctx, "ada", "new@feria.test", nil))
		assert.Equal(t, user.ErrEmailExists, repo.CheckUsernameUniqueness(ctx, "new", "ada@feria.test", nil))
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "new", "", nil), "blank e-mails never clash")
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "ada", "ada@feria.test", []user.User{ada}))
	})

	t.Run("query", func(t *testing.T) {
		tests := []struct {
			name     string
			filter   *user.QueryFilter
			ordering []core.DBOrdering
			want     []string
		}{
			{name: "all", want: []string{"admin", "ada", "grace", "marie"}},
			{name: "search", filter: &user.QueryFilter{Search: "HOPPER"}, want: []string{"grace"}},
			{name: "search email", filter: &user.QueryFilter{Search: "feria.test"}, want: []string{"admin", "ada"}},
			{name: "roles", filter: &user.QueryFilter{Roles: []string{user.RoleJudge, user.RoleTeacher}}, want: []string{"ada", "grace", "marie"}},
			{name: "no match", filter: &user.QueryFilter{Roles: []string{"lol"}}, want: []string{}},
			{
				name: "ordering", ordering: []core.DBOrdering{{Field: "username", Ascending: false}},
				want: []string{"marie", "grace", "admin", "ada"},
			},
			{
				name: "unknown ordering field is ignored", ordering: []core.DBOrdering{{Field: "password_hash; --"}},
				want: []string{"admin", "ada", "grace", "marie"},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				users, err := repo.QueryUsers(ctx, tt.filter, tt.ordering)
				require.NoError(t, err)
				assert.Equal(t, tt.want, usernames(users))
			})
		}

		users, err := repo.QueryUsersByID(ctx, []string{marie.ID, ada.ID, "unknown"})
		require.NoError(t, err)
		assert.Equal(t, []string{"ada", "marie"}, usernames(users))
	})

	t.Run("get", func(t *testing.T) {
		usr, err := repo.GetUser(ctx, user.GetFilter{ID: ada.ID})
		require.NoError(t, err)
		assert.Equal(t, ada.Username, usr.Username)
		assert.NoError(t, usr.CheckPassword("ada"))
		assert.Equal(t, []string{}, usr.AssignedProjects)

		usr, err = repo.GetUser(ctx, user.GetFilter{UsernameOrEmail: "admin@feria.test"})
		require.NoError(t, err)
		assert.Equal(t, admin.ID, usr.ID)

		_, err = repo.GetUser(ctx, user.GetFilter{ID: "not-a-uuid"})
		assert.Equal(t, user.ErrNotFound, err)
		_, err = repo.GetUser(ctx, user.GetFilter{Username: "nobody"})
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("update", func(t *testing.T) {
		g := grace
		g.Name = "Rear Admiral Hopper"
		g.LastLogin = time.Now().UTC()
		updated, err := repo.UpdateUser(ctx, g)
		require.NoError(t, err)
		assert.Equal(t, "Rear Admiral Hopper", updated.Name)
		assert.WithinDuration(t, g.LastLogin, updated.LastLogin, time.Millisecond)

		g.ID = "5b0a1f0e-2d2c-4a4b-9b0c-6a3c1e9d8f70"
		_, err = repo.UpdateUser(ctx, g)
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteUsersByID(ctx, []string{marie.ID}))
		require.NoError(t, repo.DeleteUsersByID(ctx, nil))
		_, err := repo.GetUser(ctx, user.GetFilter{ID: marie.ID})
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("store unavailable", func(t *testing.T) {
		expired, cancel := context.WithDeadline(ctx, time.Now().Add(-time.Second))
		defer cancel()
		_, err := repo.QueryUsers(expired, nil, nil)
		assert.True(t, core.IsStoreUnavailable(err))
	})
}

func TestProjectRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	repo := sqlxrepos.NewProjectRepository(db)

	now := time.Now().UTC()
	ada := testutil.CreateUser(t, usrRepo, "Ada", "ada", "", "", user.RoleJudge)
	grace := testutil.CreateUser(t, usrRepo, "Grace", "grace", "", "", user.RoleJudge)

	volcano := testutil.CreateProject(t, repo, "Volcano", "Primero A", testutil.Grade(80), now.Add(-2*time.Hour))
	robot := testutil.CreateProject(t, repo, "Robot arm", "SEGUNDO B", nil, now.Add(-time.Hour))
	compost := testutil.CreateProject(t, repo, "Compost", "primero a", testutil.Grade(0), now)

	t.Run("internal grade", func(t *testing.T) {
		p, err := repo.GetProject(ctx, volcano.ID)
		require.NoError(t, err)
		require.NotNil(t, p.InternalGrade)
		assert.Equal(t, 80.0, *p.InternalGrade)

		p, err = repo.GetProject(ctx, robot.ID)
		require.NoError(t, err)
		assert.Nil(t, p.InternalGrade, "absent stays absent")

		p, err = repo.GetProject(ctx, compost.ID)
		require.NoError(t, err)
		require.NotNil(t, p.InternalGrade, "zero is a grade")
		assert.Zero(t, *p.InternalGrade)
	})

	t.Run("assigned judges", func(t *testing.T) {
		require.NoError(t, repo.SetAssignedJudges(ctx, volcano.ID, []string{grace.ID, ada.ID, grace.ID}))
		p, err := repo.GetProject(ctx, volcano.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{grace.ID, ada.ID}, p.AssignedJudges, "kept in given order")

		require.NoError(t, usrRepo.AddAssignedProject(ctx, ada.ID, robot.ID))
		require.NoError(t, usrRepo.AddAssignedProject(ctx, ada.ID, robot.ID))
		usr, err := usrRepo.GetUser(ctx, user.GetFilter{ID: ada.ID})
		require.NoError(t, err)
		assert.Equal(t, []string{volcano.ID, robot.ID}, usr.AssignedProjects)

		holders, err := usrRepo.QueryUsersByAssignedProject(ctx, volcano.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"ada", "grace"}, usernames(holders))

		require.NoError(t, repo.RemoveAssignedJudge(ctx, volcano.ID, grace.ID))
		require.NoError(t, usrRepo.RemoveAssignedProject(ctx, ada.ID, robot.ID))
		p, err = repo.GetProject(ctx, volcano.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{ada.ID}, p.AssignedJudges)

		assert.Equal(t, project.ErrNotFound, repo.SetAssignedJudges(ctx, "4c7f5a56-5a8e-4a4f-8f2c-9d9e0b6b1e11", nil))
		assert.Equal(t, user.ErrNotFound, usrRepo.AddAssignedProject(ctx, "4c7f5a56-5a8e-4a4f-8f2c-9d9e0b6b1e11", robot.ID))
	})

	t.Run("query", func(t *testing.T) {
		tests := []struct {
			name   string
			filter *project.QueryFilter
			want   []string
		}{
			{name: "all, oldest first", want: []string{"Volcano", "Robot arm", "Compost"}},
			{name: "course", filter: &project.QueryFilter{Course: "PRIMERO A"}, want: []string{"Volcano", "Compost"}},
			{name: "search", filter: &project.QueryFilter{Search: "arm"}, want: []string{"Robot arm"}},
			{name: "judge", filter: &project.QueryFilter{Judge: ada.ID}, want: []string{"Volcano"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				projects, err := repo.QueryProjects(ctx, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, tt.want, projectNames(projects))
			})
		}

		projects, err := repo.QueryProjectsByIDs(ctx, []string{compost.ID, volcano.ID})
		require.NoError(t, err)
		assert.Equal(t, []string{"Volcano", "Compost"}, projectNames(projects))
	})

	t.Run("update keeps judges", func(t *testing.T) {
		p := volcano
		p.Name = "Big volcano"
		p.InternalGrade = nil
		p.AssignedJudges = nil
		updated, err := repo.UpdateProject(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, "Big volcano", updated.Name)
		assert.Nil(t, updated.InternalGrade)
		assert.Equal(t, []string{ada.ID}, updated.AssignedJudges)
	})

	t.Run("delete cascades to assignments", func(t *testing.T) {
		require.NoError(t, repo.DeleteProjectsByID(ctx, []string{volcano.ID}))
		_, err := repo.GetProject(ctx, volcano.ID)
		assert.Equal(t, project.ErrNotFound, err)

		usr, err := usrRepo.GetUser(ctx, user.GetFilter{ID: ada.ID})
		require.NoError(t, err)
		assert.Empty(t, usr.AssignedProjects)
	})
}

func TestEvaluationRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewEvaluationRepository(db)

	e1 := testutil.CreateEvaluation(t, repo, "j1", "p1", evaluation.Scores{Punctuality: 10, Exposition: 25, Materials: 20, Triptych: 15, Cleanliness: 5})
	e2 := testutil.CreateEvaluation(t, repo, "j2", "p1", evaluation.Scores{Exposition: 30})
	e3 := testutil.CreateEvaluation(t, repo, "j1", "p2", evaluation.Scores{Materials: 99})

	got, err := repo.GetEvaluation(ctx, "j1", "p1")
	require.NoError(t, err)
	assert.Equal(t, e1.ID, got.ID)
	assert.Equal(t, 75, got.TotalScore)
	assert.Equal(t, e1.Scores, got.Scores)

	_, err = repo.GetEvaluation(ctx, "j2", "p2")
	assert.Equal(t, evaluation.ErrNotFound, err)

	evals, err := repo.QueryEvaluations(ctx, nil)
	require.NoError(t, err)
	require.Len(t, evals, 3)
	assert.Equal(t, 30, evals[2].Scores.Materials, "stored clamped")

	evals, err = repo.QueryEvaluations(ctx, &evaluation.QueryFilter{ProjectID: "p1"})
	require.NoError(t, err)
	assert.Len(t, evals, 2)

	e2.Scores.Cleanliness = 10
	e2.TotalScore = e2.Scores.Total()
	_, err = repo.UpdateEvaluation(ctx, e2)
	require.NoError(t, err)
	got, err = repo.GetEvaluation(ctx, "j2", "p1")
	require.NoError(t, err)
	assert.Equal(t, 40, got.TotalScore)

	require.NoError(t, repo.DeleteEvaluations(ctx, evaluation.QueryFilter{}))
	evals, err = repo.QueryEvaluations(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, evals, 3, "an empty filter deletes nothing")

	require.NoError(t, repo.DeleteEvaluations(ctx, evaluation.QueryFilter{JudgeID: "j1"}))
	evals, err = repo.QueryEvaluations(ctx, nil)
	require.NoError(t, err)
	require.Len(t, evals, 1)
	assert.Equal(t, e2.ID, evals[0].ID)
	_ = e3
}
