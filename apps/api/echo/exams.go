package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/morris0411/ManavisGradesApp/core/exam"
)

type examApi struct {
	svc      *exam.Service
	validate *validator.Validate
}

func registerExamAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := examApi{
		svc:      deps.ExamSvc,
		validate: deps.Validate,
	}

	eg := g.Group("/exams", jwt)
	eg.GET("/years", api.years)
	eg.GET("/types", api.types)
	eg.GET("/names", api.names)
	eg.GET("/search", api.search)
	eg.GET("/filter", api.filter)
	eg.GET("/:id", api.choices)
}

// Handlers

func (api *examApi) years(ctx echo.Context) error {
	years, err := api.svc.Years(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing exam years")
	}
	return ctx.JSON(http.StatusOK, years)
}

func (api *examApi) types(ctx echo.Context) error {
	var filter exam.SearchFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to SearchFilter")
	}
	types, err := api.svc.Types(ctx.Request().Context(), filter.Year)
	if err != nil {
		return errors.Wrap(err, "listing exam types")
	}
	return ctx.JSON(http.StatusOK, types)
}

func (api *examApi) names(ctx echo.Context) error {
	var filter exam.SearchFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to SearchFilter")
	}
	names, err := api.svc.Names(ctx.Request().Context(), filter.Year, filter.ExamType)
	if err != nil {
		return errors.Wrap(err, "listing exam names")
	}
	return ctx.JSON(http.StatusOK, names)
}

func (api *examApi) search(ctx echo.Context) error {
	var filter exam.SearchFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to SearchFilter")
	}
	exams, err := api.svc.Search(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "searching exams")
	}
	return ctx.JSON(http.StatusOK, exams)
}

func (api *examApi) choices(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	rows, err := api.svc.Choices(ctx.Request().Context(), exam.JudgementFilter{ExamID: id})
	if err != nil {
		return errors.Wrap(err, "listing exam choices")
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *examApi) filter(ctx echo.Context) error {
	var filter exam.JudgementFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to JudgementFilter")
	}
	if err := api.validate.Struct(filter); err != nil {
		return err
	}
	rows, err := api.svc.Choices(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "filtering exam choices")
	}
	return ctx.JSON(http.StatusOK, rows)
}
