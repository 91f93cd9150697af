package project

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/feria/core"
)

// DefaultBatchSize bounds id-membership lookups, the store rejects larger "in" lists.
const DefaultBatchSize = 10

var (
	// errors
	ErrNotFound = core.NewNotFoundError("project")
)

type (
	Repository interface {
		CreateProject(ctx context.Context, proj Project, exec ...core.DBExecutor) (Project, error)
		// QueryProjects returns projects ordered by creation time, then id.
		QueryProjects(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Project, error)
		// QueryProjectsByIDs is the membership lookup; callers keep len(ids) within the batch size.
		QueryProjectsByIDs(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]Project, error)
		GetProject(ctx context.Context, id string, exec ...core.DBExecutor) (Project, error)
		// UpdateProject persists every field but AssignedJudges.
		UpdateProject(ctx context.Context, proj Project, exec ...core.DBExecutor) (Project, error)
		DeleteProjectsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error
		// SetAssignedJudges replaces the project's judge list as a whole.
		SetAssignedJudges(ctx context.Context, projectID string, judgeIDs []string, exec ...core.DBExecutor) error
		// RemoveAssignedJudge is a set-difference of judgeID from the project's judge list.
		RemoveAssignedJudge(ctx context.Context, projectID, judgeID string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, np NewProject) (Project, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Project, error)
		GetByID(ctx context.Context, id string) (Project, error)
		// GetByIDs fetches projects in batches, skipping unknown ids, in the order of ids.
		GetByIDs(ctx context.Context, ids ...string) ([]Project, error)
		Update(ctx context.Context, proj Project, up UpdateProject) (Project, error)
		SetInternalGrade(ctx context.Context, id string, grade *float64) (Project, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo      Repository
		batchSize int
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, batchSize int) Service {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &service{repo: repo, batchSize: batchSize}
}

func (svc *service) Create(ctx context.Context, np NewProject) (Project, error) {
	now := time.Now().UTC()
	proj := Project{
		Name:           np.Name,
		Description:    np.Description,
		Course:         np.Course,
		Advisors:       np.Advisors,
		AssignedJudges: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.CreateProject(ctx, proj)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Project, error) {
	return svc.repo.QueryProjects(ctx, filter)
}

func (svc *service) GetByID(ctx context.Context, id string) (Project, error) {
	return svc.repo.GetProject(ctx, id)
}

func (svc *service) GetByIDs(ctx context.Context, ids ...string) ([]Project, error) {
	ids = core.UniqueStrings(ids)
	found := make(map[string]Project, len(ids))
	for _, batch := range core.ChunkStrings(ids, svc.batchSize) {
		projects, err := svc.repo.QueryProjectsByIDs(ctx, batch)
		if err != nil {
			return nil, errors.Wrap(err, "querying projects by ids")
		}
		for _, p := range projects {
			found[p.ID] = p
		}
	}

	projects := make([]Project, 0, len(found))
	for _, id := range ids {
		if p, ok := found[id]; ok {
			projects = append(projects, p)
		}
	}
	return projects, nil
}

func (svc *service) Update(ctx context.Context, proj Project, up UpdateProject) (Project, error) {
	proj.Name = up.Name
	proj.Course = up.Course
	if up.Description != nil {
		proj.Description = *up.Description
	}
	if up.Advisors != nil {
		proj.Advisors = *up.Advisors
	}
	if up.InternalGrade != nil {
		if err := CheckGrade(*up.InternalGrade); err != nil {
			return Project{}, err
		}
		proj.InternalGrade = up.InternalGrade
	}
	proj.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateProject(ctx, proj)
}

// SetInternalGrade sets or, with a nil grade, clears the teacher grade.
func (svc *service) SetInternalGrade(ctx context.Context, id string, grade *float64) (Project, error) {
	if grade != nil {
		if err := CheckGrade(*grade); err != nil {
			return Project{}, err
		}
	}
	proj, err := svc.repo.GetProject(ctx, id)
	if err != nil {
		return Project{}, err
	}
	proj.InternalGrade = grade
	proj.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateProject(ctx, proj)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteProjectsByID(ctx, ids)
}
