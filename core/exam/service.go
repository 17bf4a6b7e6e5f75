// Package exam imports vendor mock exam exports and serves exam queries.
package exam

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/master"
	"github.com/morris0411/ManavisGradesApp/core/student"
)

type (
	Repository interface {
		// Catalogues
		ListExamMasters(ctx context.Context, exec ...core.DBExecutor) (map[int]ExamMaster, error)
		UpsertExamMaster(ctx context.Context, m ExamMaster, exec ...core.DBExecutor) error
		// CreateExamMaster is a no-op when the code already exists.
		CreateExamMaster(ctx context.Context, m ExamMaster, exec ...core.DBExecutor) error
		CountExamMasters(ctx context.Context, exec ...core.DBExecutor) (int, error)
		ListSubjectMasters(ctx context.Context, exec ...core.DBExecutor) (map[int]SubjectMaster, error)
		CreateSubjectMaster(ctx context.Context, m SubjectMaster, exec ...core.DBExecutor) error

		// Import
		// ExistingSittings returns the keys that already have at least one Exam, whatever its type.
		ExistingSittings(ctx context.Context, keys []SittingKey, exec ...core.DBExecutor) ([]SittingKey, error)
		FindExam(ctx context.Context, code, year int, examType string, exec ...core.DBExecutor) (id int, found bool, err error)
		CreateExam(ctx context.Context, e Exam, exec ...core.DBExecutor) (int, error)
		FindResult(ctx context.Context, studentID, examID int, exec ...core.DBExecutor) (id int, found bool, err error)
		CreateResult(ctx context.Context, r Result, exec ...core.DBExecutor) (int, error)
		// UpsertSubjectScore and UpsertJudgement report whether a new row was inserted.
		UpsertSubjectScore(ctx context.Context, s SubjectScore, exec ...core.DBExecutor) (bool, error)
		UpsertJudgement(ctx context.Context, j Judgement, exec ...core.DBExecutor) (bool, error)
		RepairSequence(ctx context.Context, seq core.Sequence, exec ...core.DBExecutor) error

		// Queries
		ListYears(ctx context.Context, exec ...core.DBExecutor) ([]int, error)
		ListExamTypes(ctx context.Context, year int, exec ...core.DBExecutor) ([]string, error)
		ListExamNames(ctx context.Context, year int, examType string, exec ...core.DBExecutor) ([]string, error)
		SearchExams(ctx context.Context, filter SearchFilter, exec ...core.DBExecutor) ([]Summary, error)
		// QueryJudgementLines returns the choices of one exam ordered by student id and preference.
		QueryJudgementLines(ctx context.Context, filter JudgementFilter, exec ...core.DBExecutor) ([]JudgementLine, error)
		// QueryStudentSittings returns the sittings of a student ordered by year, catalogue order and exam id,
		// with their choices and scores filled in.
		QueryStudentSittings(ctx context.Context, studentID int, exec ...core.DBExecutor) ([]StudentSitting, error)
	}

	// StudentLookup is the part of the roster the importer needs.
	StudentLookup interface {
		GetStudentsByID(ctx context.Context, ids []int, exec ...core.DBExecutor) (map[int]student.Student, error)
	}

	Options struct {
		// CampusCode selects the rows of this organization in a shared vendor export.
		CampusCode int
	}

	Service struct {
		tx       core.Transactor
		repo     Repository
		masters  master.Repository
		students StudentLookup
		logger   core.Logger
		opts     Options
	}
)

func NewService(
	tx core.Transactor,
	repo Repository,
	masters master.Repository,
	students StudentLookup,
	logger core.Logger,
	opts Options,
) *Service {
	return &Service{tx: tx, repo: repo, masters: masters, students: students, logger: logger, opts: opts}
}

func (svc *Service) Years(ctx context.Context) ([]int, error) {
	return svc.repo.ListYears(ctx)
}

func (svc *Service) Types(ctx context.Context, year int) ([]string, error) {
	return svc.repo.ListExamTypes(ctx, year)
}

func (svc *Service) Names(ctx context.Context, year int, examType string) ([]string, error) {
	return svc.repo.ListExamNames(ctx, year, core.CleanString(examType))
}

func (svc *Service) Search(ctx context.Context, filter SearchFilter) ([]Summary, error) {
	filter.ExamType = core.CleanString(filter.ExamType)
	filter.Name = core.CleanString(filter.Name)
	exams, err := svc.repo.SearchExams(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range exams {
		exams[i].Link = fmt.Sprintf("/api/exams/%d", exams[i].ExamID)
	}
	return exams, nil
}

// Choices renders the first five choices of every student who sat the exam.
func (svc *Service) Choices(ctx context.Context, filter JudgementFilter) ([]ChoiceRow, error) {
	filter.Name = core.CleanString(filter.Name)
	filter.University = core.CleanString(filter.University)
	filter.Faculty = core.CleanString(filter.Faculty)
	if filter.OrderMin == 0 || filter.OrderMax == 0 {
		filter.OrderMin, filter.OrderMax = 0, 0
	}
	lines, err := svc.repo.QueryJudgementLines(ctx, filter)
	if err != nil {
		return nil, err
	}
	return groupChoices(lines), nil
}

func groupChoices(lines []JudgementLine) []ChoiceRow {
	rows := make([]ChoiceRow, 0)
	pos := make(map[int]int)
	for _, l := range lines {
		i, seen := pos[l.StudentID]
		if !seen {
			i = len(rows)
			pos[l.StudentID] = i
			rows = append(rows, ChoiceRow{StudentID: l.StudentID, Name: l.Name, SchoolName: l.SchoolName})
		}
		if l.PreferenceOrder < 1 || l.PreferenceOrder > len(rows[i].Choices) {
			continue
		}
		rows[i].Choices[l.PreferenceOrder-1] = formatChoice(l)
	}
	return rows
}

// formatChoice renders e.g. "東京大学 理科一類 - (A / B / A)"; the parenthesis lists only the grades present.
func formatChoice(l JudgementLine) string {
	names := nonEmpty(l.University.String, l.Faculty.String, l.Department.String)
	grades := nonEmpty(l.Kyote.String, l.Niji.String, l.Sougou.String)
	if len(grades) > 0 {
		names = append(names, "("+strings.Join(grades, " / ")+")")
	}
	return strings.Join(names, " ")
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// StudentSittings returns every exam of the student, with a single headline grade per choice
// (composite, else common test, else secondary).
func (svc *Service) StudentSittings(ctx context.Context, studentID int) ([]StudentSitting, error) {
	sittings, err := svc.repo.QueryStudentSittings(ctx, studentID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sittings, func(i, j int) bool {
		a, b := sittings[i], sittings[j]
		if a.ExamYear != b.ExamYear {
			return a.ExamYear < b.ExamYear
		}
		if a.SortKey != b.SortKey {
			return a.SortKey < b.SortKey
		}
		return a.ExamID < b.ExamID
	})
	for i := range sittings {
		for k := range sittings[i].Judgements {
			c := &sittings[i].Judgements[k]
			switch {
			case c.Sougou.String != "":
				c.Judgement = c.Sougou
			case c.Kyote.String != "":
				c.Judgement = c.Kyote
			default:
				c.Judgement = c.Niji
			}
		}
	}
	return sittings, nil
}
