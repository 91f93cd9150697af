package grading

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/feria/core"
	"github.com/trezcool/feria/core/evaluation"
	"github.com/trezcool/feria/core/project"
	"github.com/trezcool/feria/core/user"
)

// UnknownJudge replaces the name of an assigned judge that no longer exists.
const UnknownJudge = "unknown"

// Kind names a report view.
type Kind string

const (
	KindAdmin     Kind = "admin"
	KindProfessor Kind = "professor"
	KindStudent   Kind = "student"
	KindCourse    Kind = "course"
)

// ReportSpec parameterizes the consolidate, scale, group and rank pipeline for one view.
type ReportSpec struct {
	Kind          Kind
	Policy        ScalingPolicy
	Grouping      GroupingStrategy // nil for one flat group
	RankBy        RankBy
	EvaluatedOnly bool
	SubGroup      bool
	ResolveJudges bool
}

var ReportSpecs = map[Kind]ReportSpec{
	KindAdmin: {
		Kind:          KindAdmin,
		Policy:        Raw100{},
		RankBy:        ByJuryAverage,
		ResolveJudges: true,
	},
	KindProfessor: {
		Kind:     KindProfessor,
		Policy:   SumToFive{},
		Grouping: NewExactMatch(false),
		RankBy:   ByFinalGrade,
	},
	KindStudent: {
		Kind:          KindStudent,
		Policy:        Raw100{},
		Grouping:      NewExactMatch(true),
		RankBy:        ByJuryAverage,
		EvaluatedOnly: true,
	},
	KindCourse: {
		Kind:     KindCourse,
		Policy:   IndependentFive{},
		Grouping: NewPrefixMatch(),
		RankBy:   ByJuryAverage,
		SubGroup: true,
	},
}

// SpecByKind looks up the ReportSpec of kind.
func SpecByKind(kind string) (ReportSpec, error) {
	spec, ok := ReportSpecs[Kind(kind)]
	if !ok {
		return ReportSpec{}, core.NewNotFoundError("report " + kind)
	}
	return spec, nil
}

type Report struct {
	Kind        Kind      `json:"kind"`
	Policy      string    `json:"policy"`
	GeneratedAt time.Time `json:"generated_at"`
	Groups      []Group   `json:"groups"`
}

// Consolidate aggregates and scales every project with policy, in the order of projects.
func Consolidate(projects []project.Project, evals []evaluation.Evaluation, policy ScalingPolicy) []Result {
	aggs := AggregateAll(evals)
	results := make([]Result, 0, len(projects))
	for _, p := range projects {
		agg := aggs[p.ID]
		results = append(results, Result{
			Project:     p,
			Aggregation: agg,
			Internal:    p.Grade(),
			Scaled:      policy.Scale(p.Grade(), agg),
		})
	}
	return results
}

// BuildReport runs the pipeline of spec over the given records.
// judges is only read when spec.ResolveJudges is set.
func BuildReport(spec ReportSpec, projects []project.Project, evals []evaluation.Evaluation, judges map[string]user.User) Report {
	results := Consolidate(projects, evals, spec.Policy)

	if spec.EvaluatedOnly {
		evaluated := make([]Result, 0, len(results))
		for _, r := range results {
			if r.Aggregation.Evaluated() {
				evaluated = append(evaluated, r)
			}
		}
		results = evaluated
	}

	if spec.ResolveJudges {
		for i := range results {
			names := make([]string, 0, len(results[i].Project.AssignedJudges))
			for _, id := range results[i].Project.AssignedJudges {
				if j, ok := judges[id]; ok {
					names = append(names, j.Name)
				} else {
					names = append(names, UnknownJudge)
				}
			}
			results[i].Judges = names
		}
	}

	groups := GroupAndRank(results, spec.Grouping, spec.RankBy)
	if spec.SubGroup {
		for i := range groups {
			groups[i].SubGroups = SubGroupByCourse(groups[i], spec.RankBy)
		}
	}

	return Report{
		Kind:        spec.Kind,
		Policy:      spec.Policy.Name(),
		GeneratedAt: time.Now().UTC(),
		Groups:      groups,
	}
}

// Service loads the base records and builds reports from them.
type Service interface {
	Report(ctx context.Context, kind string) (Report, error)
	Results(ctx context.Context, policy string) ([]Result, error)
}

type service struct {
	projSvc project.Service
	evalSvc evaluation.Service
	usrSvc  user.Service
}

var _ Service = (*service)(nil)

func NewService(projSvc project.Service, evalSvc evaluation.Service, usrSvc user.Service) Service {
	return &service{projSvc: projSvc, evalSvc: evalSvc, usrSvc: usrSvc}
}

func (svc *service) load(ctx context.Context) ([]project.Project, []evaluation.Evaluation, error) {
	projects, err := svc.projSvc.Query(ctx, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying projects")
	}
	evals, err := svc.evalSvc.QueryAll(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying evaluations")
	}
	return projects, evals, nil
}

func (svc *service) Report(ctx context.Context, kind string) (Report, error) {
	spec, err := SpecByKind(kind)
	if err != nil {
		return Report{}, err
	}
	projects, evals, err := svc.load(ctx)
	if err != nil {
		return Report{}, err
	}

	var judges map[string]user.User
	if spec.ResolveJudges {
		users, err := svc.usrSvc.Query(ctx, &user.QueryFilter{Roles: []string{user.RoleJudge}}, nil)
		if err != nil {
			return Report{}, errors.Wrap(err, "querying judges")
		}
		judges = make(map[string]user.User, len(users))
		for _, u := range users {
			judges[u.ID] = u
		}
	}
	return BuildReport(spec, projects, evals, judges), nil
}

// Results consolidates every project with the named policy, ungrouped.
func (svc *service) Results(ctx context.Context, policy string) ([]Result, error) {
	p, err := PolicyByName(policy)
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: "policy", Error: err.Error()})
	}
	projects, evals, err := svc.load(ctx)
	if err != nil {
		return nil, err
	}
	return Consolidate(projects, evals, p), nil
}
