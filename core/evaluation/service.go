package evaluation

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/feria/core"
	"github.com/trezcool/feria/core/project"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("evaluation")
	ErrNotAssigned = errors.New("judge is not assigned to this project")
)

type (
	Repository interface {
		CreateEvaluation(ctx context.Context, eval Evaluation, exec ...core.DBExecutor) (Evaluation, error)
		// QueryEvaluations returns evaluations ordered by timestamp, then id.
		QueryEvaluations(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Evaluation, error)
		// GetEvaluation looks up the evaluation of judgeID for projectID.
		GetEvaluation(ctx context.Context, judgeID, projectID string, exec ...core.DBExecutor) (Evaluation, error)
		UpdateEvaluation(ctx context.Context, eval Evaluation, exec ...core.DBExecutor) (Evaluation, error)
		DeleteEvaluations(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) error
	}

	Service interface {
		// Submit creates or replaces the evaluation of judgeID for the submitted project.
		Submit(ctx context.Context, judgeID string, sub Submission) (Evaluation, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Evaluation, error)
		QueryAll(ctx context.Context) ([]Evaluation, error)
		Get(ctx context.Context, judgeID, projectID string) (Evaluation, error)
		DeleteByProject(ctx context.Context, projectID string) error
		DeleteByJudge(ctx context.Context, judgeID string) error
	}

	service struct {
		db       core.DB // optional
		repo     Repository
		projRepo project.Repository
	}
)

var _ Service = (*service)(nil)

// NewService returns an evaluation Service; db may be nil when the store has no transactions.
func NewService(db core.DB, repo Repository, projRepo project.Repository) Service {
	return &service{db: db, repo: repo, projRepo: projRepo}
}

func (svc *service) Submit(ctx context.Context, judgeID string, sub Submission) (Evaluation, error) {
	if sub.ProjectID == "" {
		return Evaluation{}, core.NewValidationError(nil, core.FieldError{Field: "project_id", Error: "this field is required"})
	}

	var saved Evaluation
	upsert := func(exec ...core.DBExecutor) error {
		proj, err := svc.projRepo.GetProject(ctx, sub.ProjectID, exec...)
		if err != nil {
			return err
		}
		if !proj.HasJudge(judgeID) {
			return ErrNotAssigned
		}

		scores := sub.Scores.Clamp()
		eval, err := svc.repo.GetEvaluation(ctx, judgeID, sub.ProjectID, exec...)
		switch {
		case err == nil:
			eval.Scores = scores
			eval.TotalScore = scores.Total()
			eval.Timestamp = time.Now().UTC()
			saved, err = svc.repo.UpdateEvaluation(ctx, eval, exec...)
			return errors.Wrap(err, "updating evaluation")
		case errors.Cause(err) == ErrNotFound:
			saved, err = svc.repo.CreateEvaluation(ctx, Evaluation{
				JudgeID:    judgeID,
				ProjectID:  sub.ProjectID,
				Scores:     scores,
				TotalScore: scores.Total(),
				Timestamp:  time.Now().UTC(),
			}, exec...)
			return errors.Wrap(err, "creating evaluation")
		default:
			return errors.Wrap(err, "looking up evaluation")
		}
	}

	var err error
	if svc.db != nil {
		err = core.RunInTx(ctx, svc.db, func(exec core.DBExecutor) error { return upsert(exec) })
	} else {
		err = upsert()
	}
	if err != nil {
		return Evaluation{}, err
	}
	return saved, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Evaluation, error) {
	return svc.repo.QueryEvaluations(ctx, filter)
}

func (svc *service) QueryAll(ctx context.Context) ([]Evaluation, error) {
	return svc.repo.QueryEvaluations(ctx, nil)
}

func (svc *service) Get(ctx context.Context, judgeID, projectID string) (Evaluation, error) {
	return svc.repo.GetEvaluation(ctx, judgeID, projectID)
}

func (svc *service) DeleteByProject(ctx context.Context, projectID string) error {
	return svc.repo.DeleteEvaluations(ctx, QueryFilter{ProjectID: projectID})
}

func (svc *service) DeleteByJudge(ctx context.Context, judgeID string) error {
	return svc.repo.DeleteEvaluations(ctx, QueryFilter{JudgeID: judgeID})
}
