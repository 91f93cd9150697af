package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/feria/core"
	"github.com/trezcool/feria/core/evaluation"
)

const evaluationColumns = "id, judge_id, project_id, punctuality, exposition, materials, triptych, cleanliness, total_score, submitted_at"

type evaluationRow struct {
	ID          string    `db:"id"`
	JudgeID     string    `db:"judge_id"`
	ProjectID   string    `db:"project_id"`
	Punctuality int       `db:"punctuality"`
	Exposition  int       `db:"exposition"`
	Materials   int       `db:"materials"`
	Triptych    int       `db:"triptych"`
	Cleanliness int       `db:"cleanliness"`
	TotalScore  int       `db:"total_score"`
	SubmittedAt time.Time `db:"submitted_at"`
}

type evaluationRepository struct {
	repository
}

var _ evaluation.Repository = (*evaluationRepository)(nil) // interface compliance check

func NewEvaluationRepository(db *sqlx.DB) *evaluationRepository {
	return &evaluationRepository{repository: newRepository(db)}
}

func (repo evaluationRepository) toRow(eval evaluation.Evaluation) evaluationRow {
	return evaluationRow{
		ID:          eval.ID,
		JudgeID:     eval.JudgeID,
		ProjectID:   eval.ProjectID,
		Punctuality: eval.Scores.Punctuality,
		Exposition:  eval.Scores.Exposition,
		Materials:   eval.Scores.Materials,
		Triptych:    eval.Scores.Triptych,
		Cleanliness: eval.Scores.Cleanliness,
		TotalScore:  eval.TotalScore,
		SubmittedAt: eval.Timestamp.UTC(),
	}
}

func (repo evaluationRepository) fromRows(rows []evaluationRow) []evaluation.Evaluation {
	evals := make([]evaluation.Evaluation, 0, len(rows))
	for _, r := range rows {
		evals = append(evals, evaluation.Evaluation{
			ID:        r.ID,
			JudgeID:   r.JudgeID,
			ProjectID: r.ProjectID,
			Scores: evaluation.Scores{
				Punctuality: r.Punctuality,
				Exposition:  r.Exposition,
				Materials:   r.Materials,
				Triptych:    r.Triptych,
				Cleanliness: r.Cleanliness,
			},
			TotalScore: r.TotalScore,
			Timestamp:  r.SubmittedAt.UTC(),
		})
	}
	return evals
}

func (repo evaluationRepository) filter(filter evaluation.QueryFilter) conditions {
	var conds conditions
	if filter.JudgeID != "" {
		conds.add("judge_id = ?", filter.JudgeID)
	}
	if filter.ProjectID != "" {
		conds.add("project_id = ?", filter.ProjectID)
	}
	return conds
}

func (repo evaluationRepository) CreateEvaluation(ctx context.Context, eval evaluation.Evaluation, exec ...core.DBExecutor) (evaluation.Evaluation, error) {
	eval.ID = uuid.New().String()
	row := repo.toRow(eval)
	_, err := repo.exec(ctx, repo.getExec(exec),
		"INSERT INTO evaluations ("+evaluationColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		row.ID, row.JudgeID, row.ProjectID, row.Punctuality, row.Exposition, row.Materials, row.Triptych,
		row.Cleanliness, row.TotalScore, row.SubmittedAt)
	if err != nil {
		return evaluation.Evaluation{}, wrapErr(err, "inserting evaluation")
	}
	return repo.fromRows([]evaluationRow{row})[0], nil
}

func (repo evaluationRepository) QueryEvaluations(ctx context.Context, filter *evaluation.QueryFilter, exec ...core.DBExecutor) ([]evaluation.Evaluation, error) {
	var conds conditions
	if filter != nil {
		conds = repo.filter(*filter)
	}
	var rows []evaluationRow
	q := "SELECT " + evaluationColumns + " FROM evaluations" + conds.String() + " ORDER BY submitted_at, id"
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows, q, conds.args...); err != nil {
		return nil, wrapErr(err, "querying evaluations")
	}
	return repo.fromRows(rows), nil
}

func (repo evaluationRepository) GetEvaluation(ctx context.Context, judgeID, projectID string, exec ...core.DBExecutor) (evaluation.Evaluation, error) {
	var rows []evaluationRow
	q := "SELECT " + evaluationColumns + " FROM evaluations WHERE judge_id = ? AND project_id = ?"
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows, q, judgeID, projectID); err != nil {
		return evaluation.Evaluation{}, wrapErr(err, "finding evaluation")
	}
	if len(rows) == 0 {
		return evaluation.Evaluation{}, evaluation.ErrNotFound
	}
	return repo.fromRows(rows)[0], nil
}

func (repo evaluationRepository) UpdateEvaluation(ctx context.Context, eval evaluation.Evaluation, exec ...core.DBExecutor) (evaluation.Evaluation, error) {
	row := repo.toRow(eval)
	n, err := repo.exec(ctx, repo.getExec(exec),
		`UPDATE evaluations SET punctuality = ?, exposition = ?, materials = ?, triptych = ?, cleanliness = ?,
		total_score = ?, submitted_at = ? WHERE id = ?`,
		row.Punctuality, row.Exposition, row.Materials, row.Triptych, row.Cleanliness, row.TotalScore, row.SubmittedAt, row.ID)
	if err != nil {
		return evaluation.Evaluation{}, wrapErr(err, "updating evaluation")
	}
	if n == 0 {
		return evaluation.Evaluation{}, evaluation.ErrNotFound
	}
	return repo.fromRows([]evaluationRow{row})[0], nil
}

// DeleteEvaluations deletes the evaluations matching filter; an empty filter deletes nothing.
func (repo evaluationRepository) DeleteEvaluations(ctx context.Context, filter evaluation.QueryFilter, exec ...core.DBExecutor) error {
	conds := repo.filter(filter)
	if len(conds.clauses) == 0 {
		return nil
	}
	_, err := repo.exec(ctx, repo.getExec(exec), "DELETE FROM evaluations"+conds.String(), conds.args...)
	return wrapErr(err, "deleting evaluations")
}
