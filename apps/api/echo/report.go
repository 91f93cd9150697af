package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/feria/core/grading"
	"github.com/trezcool/feria/core/user"
)

type reportApi struct {
	svc grading.Service
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := reportApi{svc: deps.GradingSvc}
	staff := roleMiddleware(deps.UserSvc, user.RoleAdmin, user.RoleTeacher)

	// the student ranking is public
	g.GET("/reports/"+string(grading.KindStudent), api.studentReport)

	rg := g.Group("/reports", jwt, staff)
	rg.GET("/:kind", api.report)

	g.GET("/results", api.results, jwt, staff)
}

// Handlers

func (api *reportApi) studentReport(ctx echo.Context) error {
	rep, err := api.svc.Report(ctx.Request().Context(), string(grading.KindStudent))
	if err != nil {
		return errors.Wrap(err, "building student report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) report(ctx echo.Context) error {
	rep, err := api.svc.Report(ctx.Request().Context(), ctx.Param("kind"))
	if err != nil {
		return errors.Wrap(err, "building report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

// results returns every project consolidated under `?policy=` (raw100 by default), ungrouped.
func (api *reportApi) results(ctx echo.Context) error {
	policy := ctx.QueryParam("policy")
	if policy == "" {
		policy = grading.PolicyRaw100
	}
	results, err := api.svc.Results(ctx.Request().Context(), policy)
	if err != nil {
		return errors.Wrap(err, "consolidating results")
	}
	return ctx.JSON(http.StatusOK, results)
}
