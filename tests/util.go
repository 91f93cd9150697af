package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/feria/core"
	"github.com/trezcool/feria/core/evaluation"
	"github.com/trezcool/feria/core/project"
	"github.com/trezcool/feria/core/user"
	"github.com/trezcool/feria/storage/database"
)

// NewTestConfig returns a configuration backed by a private in-memory SQLite database.
func NewTestConfig() *core.Config {
	conf := core.NewConfig()
	conf.TestMode = true
	conf.SecretKey = "test-secret"
	conf.Database.Engine = database.EngineSqlite
	conf.Database.DSN = "file::memory:?_pragma=foreign_keys(1)"
	return conf
}

// PrepareDB opens a migrated in-memory database that is closed with the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Open(NewTestConfig())
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd, role string,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd == "" {
		pwd = uname
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateProject(
	t *testing.T,
	repo project.Repository,
	name, course string,
	grade *float64,
	createdAt ...time.Time,
) project.Project {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	proj, err := repo.CreateProject(context.Background(), project.Project{
		Name:           name,
		Course:         course,
		InternalGrade:  grade,
		AssignedJudges: []string{},
		CreatedAt:      tstamp,
		UpdatedAt:      tstamp,
	})
	if err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}
	return proj
}

func CreateEvaluation(t *testing.T, repo evaluation.Repository, judgeID, projectID string, scores evaluation.Scores) evaluation.Evaluation {
	t.Helper()
	scores = scores.Clamp()
	eval, err := repo.CreateEvaluation(context.Background(), evaluation.Evaluation{
		JudgeID:    judgeID,
		ProjectID:  projectID,
		Scores:     scores,
		TotalScore: scores.Total(),
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateEvaluation() failed: %v", err)
	}
	return eval
}

func Grade(g float64) *float64 { return &g }
