package sheet

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/morris0411/ManavisGradesApp/core"
)

// Fixed exam sheet columns.
const (
	ColCampus    = "校舎コード"
	ColStudentID = "マナビス生番号"
	ColYear      = "年度"
	ColExamCode  = "模試"
)

const (
	choiceSlots  = 9
	subjectSlots = 26
)

// Logical fields of the repeating column groups.
const (
	fieldChoice = iota
	fieldKyote
	fieldNiji
	fieldSougou
	fieldSubjectCode
	fieldScore
	fieldDeviation
)

// repeatingGroup is one block of numbered columns (e.g. 志望校1..志望校9).
type repeatingGroup struct {
	slots   int
	key     int // field whose column must exist for a slot to count
	headers map[int]string
}

var (
	choiceGroup = repeatingGroup{
		slots: choiceSlots,
		key:   fieldChoice,
		headers: map[int]string{
			fieldChoice: "志望校",
			fieldKyote:  "共テ判定",
			fieldNiji:   "二次判定",
			fieldSougou: "総合判定",
		},
	}
	subjectGroup = repeatingGroup{
		slots: subjectSlots,
		key:   fieldSubjectCode,
		headers: map[int]string{
			fieldSubjectCode: "科目コード",
			fieldScore:       "得点",
			fieldDeviation:   "偏差値",
		},
	}
)

var errCampusColumn = errors.New("校舎コード列が見つかりません")

// headerVariants lists the spellings probed for slot n: bare first, then zero padded.
func headerVariants(prefix string, n int) []string {
	return []string{fmt.Sprintf("%s%d", prefix, n), fmt.Sprintf("%s%02d", prefix, n)}
}

type slotColumns struct {
	order int
	cols  map[int]int
}

// resolve maps every present slot to its column indexes, once per table.
func (g repeatingGroup) resolve(t *Table) []slotColumns {
	var out []slotColumns
	for n := 1; n <= g.slots; n++ {
		cols := make(map[int]int, len(g.headers))
		for field, prefix := range g.headers {
			for _, h := range headerVariants(prefix, n) {
				if idx, ok := t.Col(h); ok {
					cols[field] = idx
					break
				}
			}
		}
		if _, ok := cols[g.key]; ok {
			out = append(out, slotColumns{order: n, cols: cols})
		}
	}
	return out
}

func (s slotColumns) value(row []string, field int) string {
	idx, ok := s.cols[field]
	if !ok {
		return ""
	}
	return Cell(row, idx)
}

// ChoiceSlot is one university choice with its three judgement grades.
type ChoiceSlot struct {
	Order      int
	University string
	Faculty    string
	Department string
	Kyote      string
	Niji       string
	Sougou     string
}

// Empty reports whether nothing at all was written in the slot.
func (c ChoiceSlot) Empty() bool {
	return c.University == "" && c.Faculty == "" && c.Department == "" &&
		c.Kyote == "" && c.Niji == "" && c.Sougou == ""
}

// SubjectCell is one subject slot as written in the sheet.
type SubjectCell struct {
	Slot      int
	Code      string
	Score     string
	Deviation string
}

// ExamRow is one student's line of an exam result export.
type ExamRow struct {
	Line      int // spreadsheet row number, header is 1
	StudentID string
	Year      string
	ExamCode  string
	Subjects  []SubjectCell
	Choices   []ChoiceSlot
}

// ReadExamSheet reads an exam result export and keeps only the rows of the given campus.
func ReadExamSheet(data []byte, campusCode int) ([]ExamRow, error) {
	t, err := ReadTable(data)
	if err != nil {
		return nil, err
	}
	return ExamRows(t, campusCode)
}

// ExamRows normalizes an already read table. A table without a row of this campus
// yields no rows and no error, whatever its other columns.
func ExamRows(t *Table, campusCode int) ([]ExamRow, error) {
	campusCol, ok := t.Col(ColCampus)
	if !ok {
		return nil, core.NewValidationError(errCampusColumn)
	}
	var target []int
	for i, rec := range t.Rows {
		if campus, ok := core.ParseInt(Cell(rec, campusCol)); ok && campus == campusCode {
			target = append(target, i)
		}
	}
	if len(target) == 0 {
		return nil, nil
	}

	idCol, hasID := t.Col(ColStudentID)
	yearCol, hasYear := t.Col(ColYear)
	codeCol, hasCode := t.Col(ColExamCode)
	if !hasID || !hasYear || !hasCode {
		return nil, core.NewValidationError(
			errors.Errorf("必要な列がありません（%s, %s, %s）", ColStudentID, ColYear, ColExamCode),
		)
	}

	choices := choiceGroup.resolve(t)
	subjects := subjectGroup.resolve(t)

	rows := make([]ExamRow, 0, len(target))
	for _, i := range target {
		rec := t.Rows[i]
		row := ExamRow{
			Line:      i + 2,
			StudentID: Cell(rec, idCol),
			Year:      Cell(rec, yearCol),
			ExamCode:  Cell(rec, codeCol),
		}
		for _, s := range subjects {
			row.Subjects = append(row.Subjects, SubjectCell{
				Slot:      s.order,
				Code:      s.value(rec, fieldSubjectCode),
				Score:     s.value(rec, fieldScore),
				Deviation: s.value(rec, fieldDeviation),
			})
		}
		for _, c := range choices {
			uni, fac, dep := SplitChoice(rawCell(rec, c.cols[fieldChoice]))
			row.Choices = append(row.Choices, ChoiceSlot{
				Order:      c.order,
				University: uni,
				Faculty:    fac,
				Department: dep,
				Kyote:      c.value(rec, fieldKyote),
				Niji:       c.value(rec, fieldNiji),
				Sougou:     c.value(rec, fieldSougou),
			})
		}
		rows = append(rows, row)
	}
	return rows, nil
}
