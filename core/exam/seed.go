package exam

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/sheet"
)

// Catalogue is the vendor exam list in display order.
var Catalogue = []ExamMaster{
	{Code: 71, Name: "第1回全統高1模試"},
	{Code: 72, Name: "第2回全統高1模試"},
	{Code: 73, Name: "第3回全統高1模試"},
	{Code: 74, Name: "第4回全統高1模試"},
	{Code: 61, Name: "第1回全統高2模試"},
	{Code: 62, Name: "第2回全統高2模試"},
	{Code: 63, Name: "第3回全統高2模試"},
	{Code: 65, Name: "全統記述高2模試"},
	{Code: 66, Name: "全統共通テスト高2模試"},
	{Code: 1, Name: "第1回全統共通テスト模試"},
	{Code: 5, Name: "第1回全統記述模試"},
	{Code: 2, Name: "第2回全統共通テスト模試"},
	{Code: 6, Name: "第2回全統記述模試"},
	{Code: 12, Name: "第1回東大入試オープン"},
	{Code: 15, Name: "第1回京大入試オープン"},
	{Code: 18, Name: "第1回名大入試オープン"},
	{Code: 31, Name: "早慶レベル模試"},
	{Code: 3, Name: "第3回全統共通テスト模試"},
	{Code: 7, Name: "第3回全統記述模試"},
	{Code: 13, Name: "第2回東大入試オープン"},
	{Code: 16, Name: "第2回京大入試オープン"},
	{Code: 41, Name: "北大入試オープン"},
	{Code: 42, Name: "東北大入試オープン"},
	{Code: 22, Name: "一橋大入試オープン"},
	{Code: 21, Name: "東京科学大入試オープン"},
	{Code: 19, Name: "第2回名大入試オープン"},
	{Code: 24, Name: "阪大入試オープン"},
	{Code: 25, Name: "神大入試オープン"},
	{Code: 27, Name: "九大入試オープン"},
	{Code: 4, Name: "全統プレ共通テスト"},
}

// Subject master upload headers.
const (
	ColSubjectCode = "subject_code"
	ColSubjectName = "subject_name"
)

// SeedExamMasters upserts the catalogue (sort key = position) and returns the number of exam masters.
func (svc *Service) SeedExamMasters(ctx context.Context) (int, error) {
	var count int
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		for i, m := range Catalogue {
			m.SortKey = i + 1
			if err := svc.repo.UpsertExamMaster(ctx, m, exec); err != nil {
				return errors.Wrapf(err, "seeding exam %d", m.Code)
			}
		}
		var err error
		count, err = svc.repo.CountExamMasters(ctx, exec)
		return err
	})
	if err != nil {
		return 0, err
	}
	svc.logger.Info("exam masters seeded", "count", count)
	return count, nil
}

// ImportSubjectMaster adds the subjects of a subject_code,subject_name CSV.
// Known codes are never overwritten.
func (svc *Service) ImportSubjectMaster(ctx context.Context, data []byte) (SubjectImportResult, error) {
	t, err := sheet.ReadTable(data)
	if err != nil {
		return SubjectImportResult{}, err
	}
	codeCol, hasCode := t.Col(ColSubjectCode)
	nameCol, hasName := t.Col(ColSubjectName)
	if !hasCode || !hasName {
		return SubjectImportResult{}, core.NewValidationError(
			errors.Errorf("CSVに必要な列（%s, %s）がありません", ColSubjectCode, ColSubjectName),
		)
	}

	runID := uuid.NewString()
	var res SubjectImportResult
	err = svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		known, err := svc.repo.ListSubjectMasters(ctx, exec)
		if err != nil {
			return err
		}
		for _, row := range t.Rows {
			code, ok := core.ParseInt(sheet.Cell(row, codeCol))
			name := sheet.Cell(row, nameCol)
			if !ok || name == "" {
				res.Skipped++
				continue
			}
			if _, exists := known[code]; exists {
				res.Existing++
				res.Skipped++
				continue
			}
			m := SubjectMaster{Code: code, Name: name}
			if err := svc.repo.CreateSubjectMaster(ctx, m, exec); err != nil {
				return errors.Wrapf(err, "creating subject %d", code)
			}
			known[code] = m
			res.New++
		}
		res.Subjects = len(known)
		return nil
	})
	if err != nil {
		svc.logger.Error("subject master import failed", "run", runID, "error", err)
		return SubjectImportResult{}, err
	}
	svc.logger.Info("subject masters imported",
		"run", runID, "subjects", res.Subjects, "new", res.New, "existing", res.Existing, "skipped", res.Skipped)
	return res, nil
}
