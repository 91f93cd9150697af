package dummydb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/feria/core"
	"github.com/trezcool/feria/core/project"
)

type projectRepository struct {
	db *projectTable
}

var _ project.Repository = (*projectRepository)(nil) // interface compliance check

func NewProjectRepository(db *DB) project.Repository {
	return &projectRepository{db: db.project}
}

func cloneProject(p *project.Project) project.Project {
	proj := *p
	proj.AssignedJudges = copyStrings(p.AssignedJudges)
	if p.InternalGrade != nil {
		g := *p.InternalGrade
		proj.InternalGrade = &g
	}
	return proj
}

func (repo *projectRepository) query() []project.Project {
	projects := make([]project.Project, 0, len(repo.db.table))
	for _, p := range repo.db.table {
		projects = append(projects, cloneProject(p))
	}
	sortProjects(projects)
	return projects
}

func (repo *projectRepository) CreateProject(_ context.Context, proj project.Project, _ ...core.DBExecutor) (project.Project, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	proj.ID = uuid.New().String()
	proj.AssignedJudges = core.UniqueStrings(proj.AssignedJudges)
	stored := cloneProject(&proj)
	repo.db.table[proj.ID] = &stored
	return cloneProject(&stored), nil
}

func (repo *projectRepository) QueryProjects(_ context.Context, filter *project.QueryFilter, _ ...core.DBExecutor) ([]project.Project, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	projects := repo.query()
	if filter == nil {
		return projects, nil
	}

	filtered := make([]project.Project, 0, len(projects))
	search := strings.ToLower(filter.Search)
	for _, p := range projects {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) &&
			!strings.Contains(strings.ToLower(p.Advisors), search) {
			continue
		}
		if filter.Course != "" && !strings.EqualFold(p.Course, filter.Course) {
			continue
		}
		if filter.Judge != "" && !p.HasJudge(filter.Judge) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered, nil
}

func (repo *projectRepository) QueryProjectsByIDs(_ context.Context, ids []string, _ ...core.DBExecutor) ([]project.Project, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	projects := make([]project.Project, 0, len(ids))
	for _, p := range repo.query() {
		if core.ContainsString(ids, p.ID) {
			projects = append(projects, p)
		}
	}
	return projects, nil
}

func (repo *projectRepository) GetProject(_ context.Context, id string, _ ...core.DBExecutor) (project.Project, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return cloneProject(p), nil
	}
	return project.Project{}, project.ErrNotFound
}

func (repo *projectRepository) UpdateProject(_ context.Context, proj project.Project, _ ...core.DBExecutor) (project.Project, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[proj.ID]
	if !ok {
		return project.Project{}, project.ErrNotFound
	}
	judges := orig.AssignedJudges
	updated := cloneProject(&proj)
	updated.AssignedJudges = judges
	updated.CreatedAt = orig.CreatedAt
	repo.db.table[proj.ID] = &updated
	return cloneProject(&updated), nil
}

func (repo *projectRepository) DeleteProjectsByID(_ context.Context, ids []string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func (repo *projectRepository) SetAssignedJudges(_ context.Context, projectID string, judgeIDs []string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	p, ok := repo.db.table[projectID]
	if !ok {
		return project.ErrNotFound
	}
	p.AssignedJudges = core.UniqueStrings(judgeIDs)
	return nil
}

func (repo *projectRepository) RemoveAssignedJudge(_ context.Context, projectID, judgeID string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	p, ok := repo.db.table[projectID]
	if !ok {
		return project.ErrNotFound
	}
	p.AssignedJudges = core.StringSetDiff(p.AssignedJudges, []string{judgeID})
	return nil
}
