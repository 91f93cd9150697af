package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/feria/core/evaluation"
	"github.com/trezcool/feria/core/project"
	"github.com/trezcool/feria/core/user"
)

type judgingApi struct {
	usrSvc   user.Service
	projSvc  project.Service
	evalSvc  evaluation.Service
	validate *validator.Validate
}

func registerJudgingAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := judgingApi{
		usrSvc:   deps.UserSvc,
		projSvc:  deps.ProjectSvc,
		evalSvc:  deps.EvalSvc,
		validate: deps.Validate,
	}

	g.GET("/rubric", api.rubric, jwt)

	jg := g.Group("/judging", jwt, roleMiddleware(api.usrSvc, user.RoleJudge))
	jg.GET("/projects", api.assignedProjects)
	jg.GET("/evaluations", api.ownEvaluations)
	jg.POST("/evaluations", api.submit)

	g.GET("/evaluations", api.query, jwt, roleMiddleware(api.usrSvc, user.RoleAdmin, user.RoleTeacher))
}

// Handlers

func (api *judgingApi) rubric(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, evaluation.Rubric)
}

// assignedProjects lists the projects held in the judge's own assignment list.
func (api *judgingApi) assignedProjects(ctx echo.Context) error {
	judge, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	projects, err := api.projSvc.GetByIDs(ctx.Request().Context(), judge.AssignedProjects...)
	if err != nil {
		return errors.Wrap(err, "getting assigned projects")
	}
	return ctx.JSON(http.StatusOK, projects)
}

func (api *judgingApi) ownEvaluations(ctx echo.Context) error {
	judge, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	evals, err := api.evalSvc.Query(ctx.Request().Context(), &evaluation.QueryFilter{JudgeID: judge.ID})
	if err != nil {
		return errors.Wrap(err, "querying evaluations")
	}
	if evals == nil {
		evals = []evaluation.Evaluation{}
	}
	return ctx.JSON(http.StatusOK, evals)
}

func (api *judgingApi) submit(ctx echo.Context) error {
	judge, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data evaluation.Submission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	eval, err := api.evalSvc.Submit(ctx.Request().Context(), judge.ID, data)
	if err != nil {
		return errors.Wrap(err, "submitting evaluation")
	}
	return ctx.JSON(http.StatusOK, eval)
}

func (api *judgingApi) query(ctx echo.Context) error {
	filter := new(evaluation.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []evaluation.Evaluation{})
	}

	evals, err := api.evalSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying evaluations")
	}
	if evals == nil {
		evals = []evaluation.Evaluation{}
	}
	return ctx.JSON(http.StatusOK, evals)
}
