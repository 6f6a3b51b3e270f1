package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Robzoly/StudyPlanner/core/task"
)

type taskApi struct {
	svc *task.Service
}

func registerTaskAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *task.Service) {
	api := taskApi{svc: svc}

	tg := g.Group("/tasks", jwt)
	tg.GET("", api.query)
	tg.POST("", api.create)
	tg.GET("/calendar", api.calendar)
	tg.GET("/:id", api.retrieve)
	tg.PUT("/:id", api.update)
	tg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *taskApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data task.NewTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	t, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating task")
	}

	return ctx.JSON(http.StatusCreated, t)
}

func (api *taskApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(task.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []task.Task{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	tasks, err := api.svc.Query(ctx.Request().Context(), claims.Subject, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying tasks")
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *taskApi) calendar(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(task.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []task.CalendarEvent{})
	}
	filter.Clean()

	events, err := api.svc.Calendar(ctx.Request().Context(), claims.Subject, filter)
	if err != nil {
		return errors.Wrap(err, "querying calendar events")
	}
	if events == nil {
		events = []task.CalendarEvent{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *taskApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	t, err := api.svc.Get(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == task.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding task")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data task.UpdateTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTask")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	t, err := api.svc.Update(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == task.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating task")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.Delete(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		if errors.Cause(err) == task.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting task")
	}
	return ctx.NoContent(http.StatusNoContent)
}
