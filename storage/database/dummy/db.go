package dummydb

import (
	"sort"
	"sync"
	"time"

	"github.com/trezcool/feria/core/evaluation"
	"github.com/trezcool/feria/core/project"
	"github.com/trezcool/feria/core/user"
)

type (
	// DB is an in-memory store. The two sides of a judge assignment are kept as independent lists,
	// like a document store would.
	DB struct {
		user       *userTable
		project    *projectTable
		evaluation *evaluationTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	projectTable struct {
		sync.RWMutex
		table map[string]*project.Project
	}

	evaluationTable struct {
		sync.RWMutex
		table map[string]*evaluation.Evaluation
	}
)

func Open() *DB {
	return &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		project:    &projectTable{table: make(map[string]*project.Project)},
		evaluation: &evaluationTable{table: make(map[string]*evaluation.Evaluation)},
	}
}

func copyStrings(ss []string) []string {
	res := make([]string, len(ss))
	copy(res, ss)
	return res
}

func byCreation(created func(i int) time.Time, id func(i int) string) func(i, j int) bool {
	return func(i, j int) bool {
		ci, cj := created(i), created(j)
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return id(i) < id(j)
	}
}

func sortUsers(users []user.User) {
	sort.SliceStable(users, byCreation(
		func(i int) time.Time { return users[i].CreatedAt },
		func(i int) string { return users[i].ID }))
}

func sortProjects(projects []project.Project) {
	sort.SliceStable(projects, byCreation(
		func(i int) time.Time { return projects[i].CreatedAt },
		func(i int) string { return projects[i].ID }))
}
