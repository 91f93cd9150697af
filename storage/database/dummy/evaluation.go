package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/feria/core"
	"github.com/trezcool/feria/core/evaluation"
)

type evaluationRepository struct {
	db *evaluationTable
}

var _ evaluation.Repository = (*evaluationRepository)(nil) // interface compliance check

func NewEvaluationRepository(db *DB) evaluation.Repository {
	return &evaluationRepository{db: db.evaluation}
}

func matches(e *evaluation.Evaluation, filter evaluation.QueryFilter) bool {
	return (filter.JudgeID == "" || e.JudgeID == filter.JudgeID) &&
		(filter.ProjectID == "" || e.ProjectID == filter.ProjectID)
}

func (repo *evaluationRepository) CreateEvaluation(_ context.Context, eval evaluation.Evaluation, _ ...core.DBExecutor) (evaluation.Evaluation, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	eval.ID = uuid.New().String()
	stored := eval
	repo.db.table[eval.ID] = &stored
	return eval, nil
}

func (repo *evaluationRepository) QueryEvaluations(_ context.Context, filter *evaluation.QueryFilter, _ ...core.DBExecutor) ([]evaluation.Evaluation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var f evaluation.QueryFilter
	if filter != nil {
		f = *filter
	}
	evals := make([]evaluation.Evaluation, 0, len(repo.db.table))
	for _, e := range repo.db.table {
		if matches(e, f) {
			evals = append(evals, *e)
		}
	}
	sort.SliceStable(evals, func(i, j int) bool {
		if !evals[i].Timestamp.Equal(evals[j].Timestamp) {
			return evals[i].Timestamp.Before(evals[j].Timestamp)
		}
		return evals[i].ID < evals[j].ID
	})
	return evals, nil
}

func (repo *evaluationRepository) GetEvaluation(_ context.Context, judgeID, projectID string, _ ...core.DBExecutor) (evaluation.Evaluation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, e := range repo.db.table {
		if e.JudgeID == judgeID && e.ProjectID == projectID {
			return *e, nil
		}
	}
	return evaluation.Evaluation{}, evaluation.ErrNotFound
}

func (repo *evaluationRepository) UpdateEvaluation(_ context.Context, eval evaluation.Evaluation, _ ...core.DBExecutor) (evaluation.Evaluation, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[eval.ID]; !ok {
		return evaluation.Evaluation{}, evaluation.ErrNotFound
	}
	stored := eval
	repo.db.table[eval.ID] = &stored
	return eval, nil
}

func (repo *evaluationRepository) DeleteEvaluations(_ context.Context, filter evaluation.QueryFilter, _ ...core.DBExecutor) error {
	if filter.JudgeID == "" && filter.ProjectID == "" {
		return nil
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, e := range repo.db.table {
		if matches(e, filter) {
			delete(repo.db.table, id)
		}
	}
	return nil
}
