package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/morris0411/ManavisGradesApp/core/exam"
	"github.com/morris0411/ManavisGradesApp/core/student"
)

// StudentDetail is a student profile with every exam they sat.
type StudentDetail struct {
	student.Student
	Exams []exam.StudentSitting `json:"exams"`
}

type studentApi struct {
	svc      *student.Service
	exams    *exam.Service
	validate *validator.Validate
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := studentApi{
		svc:      deps.StudentSvc,
		exams:    deps.ExamSvc,
		validate: deps.Validate,
	}

	sg := g.Group("/students", jwt)
	sg.GET("/search", api.search)
	sg.GET("/:id", api.retrieve)
}

// Handlers

func (api *studentApi) search(ctx echo.Context) error {
	var filter student.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	if len(filter.Statuses) == 0 {
		// axios serializes arrays as status[]=...
		filter.Statuses = ctx.QueryParams()["status[]"]
	}
	if err := api.validate.Struct(filter); err != nil {
		return err
	}

	students, err := api.svc.Search(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "searching students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	s, err := api.svc.Get(rctx, id)
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	sittings, err := api.exams.StudentSittings(rctx, id)
	if err != nil {
		return errors.Wrap(err, "getting student exams")
	}
	return ctx.JSON(http.StatusOK, StudentDetail{Student: s, Exams: sittings})
}
