package echoapi

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/academic"
	"github.com/morris0411/ManavisGradesApp/core/exam"
	"github.com/morris0411/ManavisGradesApp/core/student"
	"github.com/morris0411/ManavisGradesApp/services/metrics"
)

// maxUploadBytes bounds a single spreadsheet upload.
const maxUploadBytes = 32 << 20

const subjectSeedStatus = "科目マスタ取り込みが完了しました（既存レコードはスキップ済み）"

type (
	RosterImportResponse struct {
		OK bool `json:"ok"`
		student.RosterResult
		MarkedResigned bool `json:"marked_resigned"`
	}

	ExamImportResponse struct {
		OK bool `json:"ok"`
		exam.ImportResult
	}

	RolloverResponse struct {
		OK bool `json:"ok"`
		academic.Result
		Message string `json:"message"`
	}

	ExamSeedResponse struct {
		Seeded bool `json:"seeded"`
		Count  int  `json:"count"`
	}

	SubjectSeedResponse struct {
		Imported exam.SubjectImportResult `json:"imported"`
		Status   string                   `json:"status"`
	}
)

type importApi struct {
	students *student.Service
	exams    *exam.Service
	academic *academic.Service
	metrics  *metricsvc.Metrics
}

func registerImportAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := importApi{
		students: deps.StudentSvc,
		exams:    deps.ExamSvc,
		academic: deps.AcademicSvc,
		metrics:  deps.Metrics,
	}

	ig := g.Group("/imports", jwt)
	ig.POST("/students", api.importStudents)
	ig.POST("/exams_xlsx", api.importExams)
	ig.GET("/academic_year_status", api.rolloverStatus)
	ig.POST("/update_academic_year", api.rollover)

	g.POST("/seed_exam_master", api.seedExamMaster, jwt)
	g.POST("/seed_master", api.seedSubjectMaster, jwt)
}

// readUpload returns the content of the multipart file field.
func readUpload(ctx echo.Context, field, missing string) ([]byte, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		return nil, core.NewValidationError(errors.New(missing))
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening upload %s", field)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return nil, errors.Wrapf(err, "reading upload %s", field)
	}
	if len(data) > maxUploadBytes {
		return nil, echo.ErrStatusRequestEntityTooLarge
	}
	return data, nil
}

// Handlers

func (api *importApi) importStudents(ctx echo.Context) error {
	data, err := readUpload(ctx, "file", "file がありません")
	if err != nil {
		return err
	}

	started := time.Now()
	res, err := api.students.ImportRoster(ctx.Request().Context(), data)
	api.metrics.ObserveRun(metricsvc.KindRoster, started, err)
	if err != nil {
		return errors.Wrap(err, "importing roster")
	}
	api.metrics.AddRows(metricsvc.KindRoster, "inserted", res.Inserted)
	api.metrics.AddRows(metricsvc.KindRoster, "updated", res.Updated)
	api.metrics.AddRows(metricsvc.KindRoster, "skipped", res.Skipped)
	api.metrics.AddRows(metricsvc.KindRoster, "resigned", res.Resigned)

	return ctx.JSON(http.StatusOK, RosterImportResponse{OK: true, RosterResult: res, MarkedResigned: true})
}

func (api *importApi) importExams(ctx echo.Context) error {
	data, err := readUpload(ctx, "file", "file がありません")
	if err != nil {
		return err
	}

	started := time.Now()
	res, err := api.exams.Import(ctx.Request().Context(), data)
	api.metrics.ObserveRun(metricsvc.KindExams, started, err)
	if err != nil {
		return errors.Wrap(err, "importing exams")
	}
	for key, n := range res.Inserted {
		api.metrics.AddRows(metricsvc.KindExams, key, n)
	}
	api.metrics.AddRows(metricsvc.KindExams, "skipped_students", res.SkippedStudents)
	api.metrics.AddRows(metricsvc.KindExams, "skipped_parse", len(res.SkippedParseRows))

	return ctx.JSON(http.StatusOK, ExamImportResponse{OK: true, ImportResult: res})
}

func (api *importApi) rolloverStatus(ctx echo.Context) error {
	st, err := api.academic.Status(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "reading rollover status")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *importApi) rollover(ctx echo.Context) error {
	started := time.Now()
	res, err := api.academic.Execute(ctx.Request().Context())
	api.metrics.ObserveRun(metricsvc.KindRollover, started, err)
	if err != nil {
		return errors.Wrap(err, "rolling over academic year")
	}
	api.metrics.AddRows(metricsvc.KindRollover, "updated", res.Updated)

	return ctx.JSON(http.StatusOK, RolloverResponse{OK: true, Result: res, Message: res.Message()})
}

func (api *importApi) seedExamMaster(ctx echo.Context) error {
	started := time.Now()
	count, err := api.exams.SeedExamMasters(ctx.Request().Context())
	api.metrics.ObserveRun(metricsvc.KindSeed, started, err)
	if err != nil {
		return errors.Wrap(err, "seeding exam masters")
	}
	return ctx.JSON(http.StatusOK, ExamSeedResponse{Seeded: true, Count: count})
}

func (api *importApi) seedSubjectMaster(ctx echo.Context) error {
	data, err := readUpload(ctx, "subject_master", "subject_master ファイルがありません")
	if err != nil {
		return err
	}

	started := time.Now()
	res, err := api.exams.ImportSubjectMaster(ctx.Request().Context(), data)
	api.metrics.ObserveRun(metricsvc.KindSubjects, started, err)
	if err != nil {
		return errors.Wrap(err, "importing subject master")
	}
	api.metrics.AddRows(metricsvc.KindSubjects, "inserted", res.New)
	api.metrics.AddRows(metricsvc.KindSubjects, "skipped", res.Skipped)

	return ctx.JSON(http.StatusOK, SubjectSeedResponse{Imported: res, Status: subjectSeedStatus})
}
