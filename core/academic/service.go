// Package academic runs the once-a-year grade rollover of the roster.
package academic

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/student"
)

// firstMonth opens the academic year (April 1st).
const firstMonth = time.April

var nowFunc = time.Now

// nextGrade is the yearly progression; 高3 is handled apart because it also changes the status.
var nextGrade = map[string]string{
	student.GradeMiddle3: student.GradeHigh1,
	student.GradeHigh1:   student.GradeHigh2,
	student.GradeHigh2:   student.GradeHigh3,
}

type (
	// Rollover marks that the academic year Year has been rolled over.
	Rollover struct {
		Year      int       `db:"academic_year"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	Repository interface {
		// LatestRollover returns the marker with the highest year.
		// A missing marker table reads as no marker at all.
		LatestRollover(ctx context.Context, exec ...core.DBExecutor) (Rollover, bool, error)
		// SaveRollover inserts the marker of r.Year or refreshes its timestamp.
		SaveRollover(ctx context.Context, r Rollover, exec ...core.DBExecutor) error
	}

	// Roster is the part of the student store the rollover mutates.
	Roster interface {
		QueryActiveStudents(ctx context.Context, exec ...core.DBExecutor) ([]student.Student, error)
		UpdateStudent(ctx context.Context, s student.Student, exec ...core.DBExecutor) error
	}

	Result struct {
		Updated      int `json:"updated"`
		Graduated    int `json:"graduated"`
		AcademicYear int `json:"academic_year"`
	}

	Status struct {
		CurrentAcademicYear int         `json:"current_academic_year"`
		LastUpdateYear      null.Int    `json:"last_update_year"`
		CanUpdate           bool        `json:"can_update"`
		ErrorMessage        null.String `json:"error_message"`
		LastUpdateDatetime  null.Time   `json:"last_update_datetime"`
	}

	Service struct {
		tx     core.Transactor
		repo   Repository
		roster Roster
		logger core.Logger
		loc    *time.Location
	}
)

func NewService(tx core.Transactor, repo Repository, roster Roster, logger core.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{tx: tx, repo: repo, roster: roster, logger: logger, loc: loc}
}

// AcademicYear returns the academic year t belongs to: January to March count for the previous year.
func AcademicYear(t time.Time) int {
	if t.Month() >= firstMonth {
		return t.Year()
	}
	return t.Year() - 1
}

func (svc *Service) now() time.Time {
	return nowFunc().In(svc.loc)
}

// CanRun returns a *core.RejectionError saying why the rollover is not allowed today, or nil.
func (svc *Service) CanRun(ctx context.Context, exec ...core.DBExecutor) error {
	_, err := svc.check(ctx, svc.now(), exec...)
	return err
}

func (svc *Service) check(ctx context.Context, now time.Time, exec ...core.DBExecutor) (Rollover, error) {
	if now.Month() < firstMonth {
		return Rollover{}, core.NewRejectionError(
			fmt.Sprintf("年度更新は4月1日以降に実行可能です（現在: %d月）", int(now.Month())),
		)
	}
	last, found, err := svc.repo.LatestRollover(ctx, exec...)
	if err != nil {
		return Rollover{}, errors.Wrap(err, "reading last rollover")
	}
	current := AcademicYear(now)
	if found && last.Year >= current {
		return last, core.NewRejectionError(
			fmt.Sprintf("%d年度の更新は既に実行済みです（最終更新: %d年度）", current, last.Year),
		)
	}
	return last, nil
}

func (svc *Service) Status(ctx context.Context) (Status, error) {
	now := svc.now()
	st := Status{CurrentAcademicYear: AcademicYear(now), CanUpdate: true}

	last, found, err := svc.repo.LatestRollover(ctx)
	if err != nil {
		return Status{}, errors.Wrap(err, "reading last rollover")
	}
	if found {
		st.LastUpdateYear = null.IntFrom(last.Year)
		st.LastUpdateDatetime = null.TimeFrom(last.UpdatedAt)
	}

	if err := svc.CanRun(ctx); err != nil {
		if !core.IsRejection(err) {
			return Status{}, err
		}
		st.CanUpdate = false
		st.ErrorMessage = null.StringFrom(err.Error())
	}
	return st, nil
}

// Execute promotes every non-resigned student one grade and records the marker of the
// current academic year, all in one transaction.
func (svc *Service) Execute(ctx context.Context) (Result, error) {
	now := svc.now()
	res := Result{AcademicYear: AcademicYear(now)}
	runID := uuid.NewString()

	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.check(ctx, now, exec); err != nil {
			return err
		}
		students, err := svc.roster.QueryActiveStudents(ctx, exec)
		if err != nil {
			return errors.Wrap(err, "loading students")
		}

		for _, s := range students {
			switch {
			case s.Grade == student.GradeHigh3:
				if s.Status != student.StatusEnrolled {
					continue
				}
				s.Grade = student.GradeGraduated
				s.Status = student.StatusGraduated
				res.Graduated++
			case nextGrade[s.Grade] != "":
				s.Grade = nextGrade[s.Grade]
			default:
				continue
			}
			if err := svc.roster.UpdateStudent(ctx, s, exec); err != nil {
				return errors.Wrapf(err, "updating student %d", s.ID)
			}
			res.Updated++
		}

		return svc.repo.SaveRollover(ctx, Rollover{Year: res.AcademicYear, UpdatedAt: now.UTC()}, exec)
	})
	if err != nil {
		if core.IsRejection(err) {
			svc.logger.Warn("rollover refused", "run", runID, "error", err)
		} else {
			svc.logger.Error("rollover failed", "run", runID, "error", err)
		}
		return Result{}, err
	}

	svc.logger.Info("academic year rolled over",
		"run", runID, "year", res.AcademicYear, "updated", res.Updated, "graduated", res.Graduated)
	return res, nil
}

// Message is the summary shown to staff after a rollover.
func (r Result) Message() string {
	return fmt.Sprintf("%d名の学年を更新しました（うち%d名を既卒に変更）", r.Updated, r.Graduated)
}
