package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/feria/core"
	"github.com/trezcool/feria/core/project"
)

const projectColumns = "id, name, description, course, advisors, internal_grade, created_at, updated_at"

type projectRow struct {
	ID            string       `db:"id"`
	Name          string       `db:"name"`
	Description   string       `db:"description"`
	Course        string       `db:"course"`
	Advisors      string       `db:"advisors"`
	InternalGrade null.Float64 `db:"internal_grade"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
}

type projectRepository struct {
	repository
}

var _ project.Repository = (*projectRepository)(nil) // interface compliance check

func NewProjectRepository(db *sqlx.DB) *projectRepository {
	return &projectRepository{repository: newRepository(db)}
}

func (repo projectRepository) toRow(proj project.Project) projectRow {
	return projectRow{
		ID:            proj.ID,
		Name:          proj.Name,
		Description:   proj.Description,
		Course:        proj.Course,
		Advisors:      proj.Advisors,
		InternalGrade: null.Float64FromPtr(proj.InternalGrade),
		CreatedAt:     proj.CreatedAt.UTC(),
		UpdatedAt:     proj.UpdatedAt.UTC(),
	}
}

func (repo projectRepository) fromRow(row projectRow, judges []string) project.Project {
	if judges == nil {
		judges = []string{}
	}
	return project.Project{
		ID:             row.ID,
		Name:           row.Name,
		Description:    row.Description,
		Course:         row.Course,
		Advisors:       row.Advisors,
		InternalGrade:  row.InternalGrade.Ptr(),
		AssignedJudges: judges,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}

func (repo projectRepository) load(ctx context.Context, exec core.DBExecutor, rows []projectRow) ([]project.Project, error) {
	projects := make([]project.Project, 0, len(rows))
	if len(rows) == 0 {
		return projects, nil
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}

	var links []assignmentRow
	err := repo.selectAll(ctx, exec, &links,
		"SELECT project_id, judge_id FROM project_judges WHERE project_id IN (?) ORDER BY project_id, position", ids)
	if err != nil {
		return nil, wrapErr(err, "querying assigned judges")
	}
	judges := make(map[string][]string, len(rows))
	for _, l := range links {
		judges[l.ProjectID] = append(judges[l.ProjectID], l.JudgeID)
	}

	for _, r := range rows {
		projects = append(projects, repo.fromRow(r, judges[r.ID]))
	}
	return projects, nil
}

func (repo projectRepository) CreateProject(ctx context.Context, proj project.Project, exec ...core.DBExecutor) (project.Project, error) {
	proj.ID = uuid.New().String()
	row := repo.toRow(proj)
	exe := repo.getExec(exec)
	_, err := repo.exec(ctx, exe,
		"INSERT INTO projects ("+projectColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		row.ID, row.Name, row.Description, row.Course, row.Advisors, row.InternalGrade, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return project.Project{}, wrapErr(err, "inserting project")
	}
	if len(proj.AssignedJudges) > 0 {
		if err = repo.SetAssignedJudges(ctx, proj.ID, proj.AssignedJudges, exe); err != nil {
			return project.Project{}, err
		}
	}
	return repo.fromRow(row, core.UniqueStrings(proj.AssignedJudges)), nil
}

func (repo projectRepository) QueryProjects(ctx context.Context, filter *project.QueryFilter, exec ...core.DBExecutor) ([]project.Project, error) {
	var conds conditions
	if filter != nil {
		if filter.Search != "" {
			val := likePattern(filter.Search)
			conds.add("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(advisors) LIKE ?", val, val, val)
		}
		if filter.Course != "" {
			conds.add("UPPER(course) = UPPER(?)", filter.Course)
		}
		if filter.Judge != "" {
			conds.add("id IN (SELECT project_id FROM project_judges WHERE judge_id = ?)", filter.Judge)
		}
	}

	exe := repo.getExec(exec)
	var rows []projectRow
	q := "SELECT " + projectColumns + " FROM projects" + conds.String() + " ORDER BY created_at, id"
	if err := repo.selectAll(ctx, exe, &rows, q, conds.args...); err != nil {
		return nil, wrapErr(err, "querying projects")
	}
	return repo.load(ctx, exe, rows)
}

func (repo projectRepository) QueryProjectsByIDs(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]project.Project, error) {
	if len(ids) == 0 {
		return []project.Project{}, nil
	}
	exe := repo.getExec(exec)
	var rows []projectRow
	q := "SELECT " + projectColumns + " FROM projects WHERE id IN (?) ORDER BY created_at, id"
	if err := repo.selectAll(ctx, exe, &rows, q, ids); err != nil {
		return nil, wrapErr(err, "querying projects by id")
	}
	return repo.load(ctx, exe, rows)
}

func (repo projectRepository) GetProject(ctx context.Context, id string, exec ...core.DBExecutor) (project.Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return project.Project{}, project.ErrNotFound
	}
	exe := repo.getExec(exec)
	var rows []projectRow
	if err := repo.selectAll(ctx, exe, &rows, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id); err != nil {
		return project.Project{}, wrapErr(err, "finding project")
	}
	if len(rows) == 0 {
		return project.Project{}, project.ErrNotFound
	}
	projects, err := repo.load(ctx, exe, rows)
	if err != nil {
		return project.Project{}, err
	}
	return projects[0], nil
}

func (repo projectRepository) UpdateProject(ctx context.Context, proj project.Project, exec ...core.DBExecutor) (project.Project, error) {
	row := repo.toRow(proj)
	exe := repo.getExec(exec)
	n, err := repo.exec(ctx, exe,
		`UPDATE projects SET name = ?, description = ?, course = ?, advisors = ?, internal_grade = ?, updated_at = ?
		WHERE id = ?`,
		row.Name, row.Description, row.Course, row.Advisors, row.InternalGrade, row.UpdatedAt, row.ID)
	if err != nil {
		return project.Project{}, wrapErr(err, "updating project")
	}
	if n == 0 {
		return project.Project{}, project.ErrNotFound
	}
	return repo.GetProject(ctx, proj.ID, exe)
}

func (repo projectRepository) DeleteProjectsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.exec(ctx, repo.getExec(exec), "DELETE FROM projects WHERE id IN (?)", ids)
	return wrapErr(err, "deleting projects")
}

func (repo projectRepository) SetAssignedJudges(ctx context.Context, projectID string, judgeIDs []string, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	ok, err := repo.exists(ctx, exe, "SELECT COUNT(*) FROM projects WHERE id = ?", projectID)
	if err != nil {
		return wrapErr(err, "checking project")
	}
	if !ok {
		return project.ErrNotFound
	}

	if _, err = repo.exec(ctx, exe, "DELETE FROM project_judges WHERE project_id = ?", projectID); err != nil {
		return wrapErr(err, "clearing assigned judges")
	}
	for i, id := range core.UniqueStrings(judgeIDs) {
		_, err = repo.exec(ctx, exe,
			"INSERT INTO project_judges (project_id, judge_id, position) VALUES (?, ?, ?)", projectID, id, i+1)
		if err != nil {
			return wrapErr(err, "assigning judge "+id)
		}
	}
	return nil
}

func (repo projectRepository) RemoveAssignedJudge(ctx context.Context, projectID, judgeID string, exec ...core.DBExecutor) error {
	_, err := repo.exec(ctx, repo.getExec(exec),
		"DELETE FROM project_judges WHERE project_id = ? AND judge_id = ?", projectID, judgeID)
	return wrapErr(err, "removing assigned judge")
}
