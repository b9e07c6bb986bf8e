package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/lesson"
)

type lessonApi struct {
	svc      lesson.Service
	validate *validator.Validate
}

func registerLessonAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc lesson.Service, validate *validator.Validate) {
	api := lessonApi{
		svc:      svc,
		validate: validate,
	}

	cg := g.Group("/courses/:id/lessons", jwt)
	cg.GET("", api.query)
	cg.POST("/recurring", api.createRecurring, roleMiddleware(core.RoleAdmin, core.RoleTeacher))
}

// Handlers

func (api *lessonApi) createRecurring(ctx echo.Context) error {
	var data lesson.NewRecurringLessons
	if err := ctx.Bind(&data); err != nil {
		return core.NewValidationError(errors.New("invalid request body"))
	}
	data.CourseID = ctx.Param("id")
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	res, err := api.svc.CreateRecurringLessons(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "creating recurring lessons")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *lessonApi) query(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	lessons, err := api.svc.QueryLessons(ctx.Request().Context(), p, ctx.Param("id"), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	if lessons == nil {
		lessons = []lesson.Lesson{}
	}
	return ctx.JSON(http.StatusOK, lessons)
}
