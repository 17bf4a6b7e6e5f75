package exam

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/master"
	"github.com/morris0411/ManavisGradesApp/core/sheet"
)

// NoTargetRowsNote is reported when the upload holds no row of this campus.
const NoTargetRowsNote = "対象行なし"

// autoSortKey orders exam masters created on first sight after the seeded catalogue.
const autoSortKey = 999

// Import reads an exam result export and stores every row of this campus.
// The whole upload is rejected if one of its (year, exam) pairs was imported before.
func (svc *Service) Import(ctx context.Context, data []byte) (ImportResult, error) {
	rows, err := sheet.ReadExamSheet(data, svc.opts.CampusCode)
	if err != nil {
		return ImportResult{}, err
	}
	return svc.ImportRows(ctx, rows)
}

// ImportRows stores already normalized exam rows in a single transaction.
func (svc *Service) ImportRows(ctx context.Context, rows []sheet.ExamRow) (ImportResult, error) {
	if len(rows) == 0 {
		return ImportResult{
			Inserted:            map[string]int{},
			SkippedStudentsRows: []SkippedRow{},
			SkippedParseRows:    []SkippedRow{},
			Note:                NoTargetRowsNote,
		}, nil
	}

	runID := uuid.NewString()
	var (
		res     ImportResult
		created int
	)
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		imp, err := svc.newImporter(ctx, exec, rows)
		if err != nil {
			return err
		}
		if err := imp.checkDuplicates(ctx); err != nil {
			return err
		}
		if err := imp.run(ctx); err != nil {
			return err
		}
		res = imp.res
		created = imp.resolver.Created()
		return nil
	})
	if err != nil {
		if core.IsRejection(err) || core.IsValidation(err) {
			svc.logger.Warn("exam import refused", "run", runID, "error", err)
		} else {
			svc.logger.Error("exam import failed", "run", runID, "error", err)
		}
		return ImportResult{}, err
	}

	svc.logger.Info("exams imported",
		"run", runID, "rows", len(rows),
		"exams", res.Inserted[CountExams], "exam_results", res.Inserted[CountExamResults],
		"subject_scores", res.Inserted[CountSubjectScores], "judgements", res.Inserted[CountJudgements],
		"skipped_students", res.SkippedStudents, "skipped_parse", len(res.SkippedParseRows),
		"masters_created", created,
	)
	return res, nil
}

// parsedRow is a sheet row whose year and exam code are usable.
type parsedRow struct {
	sheet.ExamRow
	year      int
	code      int
	studentID int
	known     bool
}

// importer holds the state of one import run; it is discarded afterwards.
type importer struct {
	svc      *Service
	exec     core.DBExecutor
	resolver *master.Resolver
	rows     []parsedRow
	masters  map[int]ExamMaster
	subjects map[int]SubjectMaster
	exams    map[SittingKey]int
	res      ImportResult
}

func (svc *Service) newImporter(ctx context.Context, exec core.DBExecutor, rows []sheet.ExamRow) (*importer, error) {
	imp := &importer{
		svc:      svc,
		exec:     exec,
		resolver: master.NewResolver(svc.masters, exec),
		exams:    make(map[SittingKey]int),
		res: ImportResult{
			Inserted: map[string]int{
				CountExams:         0,
				CountExamResults:   0,
				CountSubjectScores: 0,
				CountJudgements:    0,
			},
			SkippedStudentsRows: []SkippedRow{},
			SkippedParseRows:    []SkippedRow{},
		},
	}

	var ids []int
	for _, r := range rows {
		year, yok := core.ParseInt(r.Year)
		code, cok := core.ParseInt(r.ExamCode)
		if !yok || !cok {
			if len(imp.res.SkippedParseRows) < MaxSkippedRows {
				imp.res.SkippedParseRows = append(imp.res.SkippedParseRows,
					SkippedRow{Row: r.Line, Year: r.Year, ExamCode: r.ExamCode})
			}
			continue
		}
		pr := parsedRow{ExamRow: r, year: year, code: code}
		if id, ok := core.ParseInt(r.StudentID); ok {
			pr.studentID = id
			ids = append(ids, id)
		}
		imp.rows = append(imp.rows, pr)
	}

	known, err := svc.students.GetStudentsByID(ctx, ids, exec)
	if err != nil {
		return nil, errors.Wrap(err, "loading students")
	}
	for i := range imp.rows {
		_, imp.rows[i].known = known[imp.rows[i].studentID]
	}

	if imp.masters, err = svc.repo.ListExamMasters(ctx, exec); err != nil {
		return nil, errors.Wrap(err, "loading exam masters")
	}
	if imp.subjects, err = svc.repo.ListSubjectMasters(ctx, exec); err != nil {
		return nil, errors.Wrap(err, "loading subject masters")
	}
	return imp, nil
}

// checkDuplicates rejects the run before any write if a sitting of the upload already exists.
func (imp *importer) checkDuplicates(ctx context.Context) error {
	seen := make(map[SittingKey]bool)
	var keys []SittingKey
	for _, r := range imp.rows {
		k := SittingKey{Year: r.year, Code: r.code}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}

	dups, err := imp.svc.repo.ExistingSittings(ctx, keys, imp.exec)
	if err != nil {
		return errors.Wrap(err, "checking duplicate exams")
	}
	if len(dups) == 0 {
		return nil
	}
	sort.Slice(dups, func(i, j int) bool {
		if dups[i].Year != dups[j].Year {
			return dups[i].Year < dups[j].Year
		}
		return dups[i].Code < dups[j].Code
	})
	labels := make([]string, 0, len(dups))
	for _, d := range dups {
		labels = append(labels, strconv.Itoa(d.Year)+"年度 "+imp.examName(d.Code))
	}
	return core.NewRejectionError("duplicate: 既に取り込み済みの模試があります: " + strings.Join(labels, ", "))
}

func (imp *importer) examName(code int) string {
	if m, ok := imp.masters[code]; ok && m.Name != "" {
		return m.Name
	}
	return strconv.Itoa(code)
}

func (imp *importer) run(ctx context.Context) error {
	for _, r := range imp.rows {
		if !r.known {
			imp.res.SkippedStudents++
			if len(imp.res.SkippedStudentsRows) < MaxSkippedRows {
				imp.res.SkippedStudentsRows = append(imp.res.SkippedStudentsRows,
					SkippedRow{Row: r.Line, StudentID: r.StudentID})
			}
			continue
		}
		if err := imp.importRow(ctx, r); err != nil {
			return errors.Wrapf(err, "importing row %d", r.Line)
		}
	}
	return nil
}

func (imp *importer) importRow(ctx context.Context, r parsedRow) error {
	if err := imp.ensureMaster(ctx, r.code); err != nil {
		return err
	}
	examID, err := imp.exam(ctx, r.code, r.year)
	if err != nil {
		return err
	}
	resultID, err := imp.result(ctx, r.studentID, examID)
	if err != nil {
		return err
	}

	for _, s := range r.Subjects {
		code, ok := core.ParseInt(s.Code)
		if !ok {
			continue
		}
		if _, known := imp.subjects[code]; !known {
			continue
		}
		created, err := imp.svc.repo.UpsertSubjectScore(ctx, SubjectScore{
			ResultID:    resultID,
			SubjectCode: code,
			Score:       parseScore(s.Score),
			Deviation:   parseDeviation(s.Deviation),
		}, imp.exec)
		if err != nil {
			return errors.Wrap(err, "storing subject score")
		}
		if created {
			imp.res.Inserted[CountSubjectScores]++
		}
	}

	for _, c := range r.Choices {
		if c.Empty() {
			continue
		}
		j := Judgement{
			ResultID:        resultID,
			PreferenceOrder: c.Order,
			Kyote:           optString(c.Kyote),
			Niji:            optString(c.Niji),
			Sougou:          optString(c.Sougou),
		}
		if c.University != "" {
			depID, err := imp.resolver.Resolve(ctx, c.University, c.Faculty, c.Department)
			if err != nil {
				return err
			}
			j.DepartmentID = null.IntFrom(depID)
		}
		created, err := imp.svc.repo.UpsertJudgement(ctx, j, imp.exec)
		if err != nil {
			return errors.Wrap(err, "storing judgement")
		}
		if created {
			imp.res.Inserted[CountJudgements]++
		}
	}
	return nil
}

// ensureMaster creates a catalogue entry named after the code for exams never seeded.
func (imp *importer) ensureMaster(ctx context.Context, code int) error {
	if _, ok := imp.masters[code]; ok {
		return nil
	}
	m := ExamMaster{Code: code, Name: strconv.Itoa(code), SortKey: autoSortKey}
	if err := imp.svc.repo.CreateExamMaster(ctx, m, imp.exec); err != nil {
		return errors.Wrap(err, "creating exam master")
	}
	imp.masters[code] = m
	return nil
}

func (imp *importer) exam(ctx context.Context, code, year int) (int, error) {
	key := SittingKey{Year: year, Code: code}
	if id, ok := imp.exams[key]; ok {
		return id, nil
	}
	examType := Classify(code)

	var id int
	err := core.RetryAfterRepair(
		func() error {
			found, ok, err := imp.svc.repo.FindExam(ctx, code, year, examType, imp.exec)
			if err != nil || ok {
				id = found
				return err
			}
			if id, err = imp.svc.repo.CreateExam(ctx, Exam{Code: code, Year: year, Type: examType}, imp.exec); err != nil {
				return err
			}
			imp.res.Inserted[CountExams]++
			return nil
		},
		func() error { return imp.svc.repo.RepairSequence(ctx, core.SeqExams, imp.exec) },
	)
	if err != nil {
		return 0, errors.Wrap(err, "storing exam")
	}
	imp.exams[key] = id
	return id, nil
}

func (imp *importer) result(ctx context.Context, studentID, examID int) (int, error) {
	var id int
	err := core.RetryAfterRepair(
		func() error {
			found, ok, err := imp.svc.repo.FindResult(ctx, studentID, examID, imp.exec)
			if err != nil || ok {
				id = found
				return err
			}
			if id, err = imp.svc.repo.CreateResult(ctx, Result{StudentID: studentID, ExamID: examID}, imp.exec); err != nil {
				return err
			}
			imp.res.Inserted[CountExamResults]++
			return nil
		},
		func() error { return imp.svc.repo.RepairSequence(ctx, core.SeqExamResults, imp.exec) },
	)
	if err != nil {
		return 0, errors.Wrap(err, "storing exam result")
	}
	return id, nil
}

// parseScore and parseDeviation fall back to zero on blank or malformed cells.
func parseScore(s string) int {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return int(d.IntPart())
}

func parseDeviation(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func optString(s string) null.String {
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}
