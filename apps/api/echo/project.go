package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/feria/core/assignment"
	"github.com/trezcool/feria/core/evaluation"
	"github.com/trezcool/feria/core/project"
	"github.com/trezcool/feria/core/user"
)

var errProjNotFoundInCtx = errors.New("project object not found in echo.Context")

type projectApi struct {
	svc      project.Service
	evalSvc  evaluation.Service
	syncer   *assignment.Synchronizer
	validate *validator.Validate
}

func registerProjectAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := projectApi{
		svc:      deps.ProjectSvc,
		evalSvc:  deps.EvalSvc,
		syncer:   deps.Syncer,
		validate: deps.Validate,
	}
	admin := adminMiddleware(deps.UserSvc)
	staff := roleMiddleware(deps.UserSvc, user.RoleAdmin, user.RoleTeacher)

	pg := g.Group("/projects", jwt)
	pg.GET("", api.query, staff)
	pg.POST("", api.create, admin)

	dg := pg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve, staff)
	dg.PUT("", api.update, admin)
	dg.DELETE("", api.destroy, admin)
	dg.PUT("/judges", api.assignJudges, admin)
	dg.PUT("/grade", api.setGrade, staff)
	dg.GET("/students", api.students, staff)
}

// objectMiddleware loads the project of the `:id` path param into the context.
func (api *projectApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		proj, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == project.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding project by ID")
		}
		ctx.Set("object", proj)
		return next(ctx)
	}
}

func ctxProject(ctx echo.Context) (project.Project, error) {
	proj, ok := ctx.Get("object").(project.Project)
	if !ok {
		return project.Project{}, errors.Wrap(errProjNotFoundInCtx, "retrieving object from context")
	}
	return proj, nil
}

// Handlers

func (api *projectApi) create(ctx echo.Context) error {
	var data project.NewProject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	proj, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating project")
	}
	return ctx.JSON(http.StatusCreated, proj)
}

func (api *projectApi) query(ctx echo.Context) error {
	filter := new(project.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []project.Project{})
	}
	filter.Clean()

	projects, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying projects")
	}
	if projects == nil {
		projects = []project.Project{}
	}
	return ctx.JSON(http.StatusOK, projects)
}

func (api *projectApi) retrieve(ctx echo.Context) error {
	proj, err := ctxProject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, proj)
}

func (api *projectApi) update(ctx echo.Context) error {
	proj, err := ctxProject(ctx)
	if err != nil {
		return err
	}

	var data project.UpdateProject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProject")
	}
	reqCtx := ctx.Request().Context()
	if err = data.Validate(reqCtx, proj, api.validate); err != nil {
		return err
	}

	proj, err = api.svc.Update(reqCtx, proj, data)
	if err != nil {
		return errors.Wrap(err, "updating project")
	}
	return ctx.JSON(http.StatusOK, proj)
}

// destroy releases the project's judges and evaluations before removing it.
func (api *projectApi) destroy(ctx echo.Context) error {
	proj, err := ctxProject(ctx)
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	if err = api.syncer.DetachProject(reqCtx, proj.ID); err != nil {
		return errors.Wrap(err, "detaching project")
	}
	if err = api.evalSvc.DeleteByProject(reqCtx, proj.ID); err != nil {
		return errors.Wrap(err, "deleting project evaluations")
	}
	if err = api.svc.Delete(reqCtx, proj.ID); err != nil {
		return errors.Wrap(err, "deleting project")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *projectApi) assignJudges(ctx echo.Context) error {
	proj, err := ctxProject(ctx)
	if err != nil {
		return err
	}

	var data AssignJudgesRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignJudgesRequest")
	}
	if data.JudgeIDs == nil {
		data.JudgeIDs = []string{}
	}

	res, err := api.syncer.Sync(ctx.Request().Context(), proj.ID, data.JudgeIDs)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *projectApi) setGrade(ctx echo.Context) error {
	proj, err := ctxProject(ctx)
	if err != nil {
		return err
	}

	var data GradeRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	proj, err = api.svc.SetInternalGrade(ctx.Request().Context(), proj.ID, data.InternalGrade)
	if err != nil {
		return errors.Wrap(err, "setting internal grade")
	}
	return ctx.JSON(http.StatusOK, proj)
}

func (api *projectApi) students(ctx echo.Context) error {
	proj, err := ctxProject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, StudentsResponse{ProjectID: proj.ID, Students: proj.Students()})
}

type (
	AssignJudgesRequest struct {
		JudgeIDs []string `json:"judge_ids"`
	}

	// GradeRequest sets the internal grade; a null grade clears it.
	GradeRequest struct {
		InternalGrade *float64 `json:"internal_grade" validate:"omitempty,grade"`
	}

	StudentsResponse struct {
		ProjectID string   `json:"project_id"`
		Students  []string `json:"students"`
	}
)
