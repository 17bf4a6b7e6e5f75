package exam

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// ExamMaster is the vendor exam catalogue, keyed by exam code across years.
type ExamMaster struct {
	Code    int    `json:"exam_code" db:"exam_code"`
	Name    string `json:"exam_name" db:"exam_name"`
	SortKey int    `json:"sort_key" db:"sort_key"`
}

// Exam is one sitting of a catalogue exam in a given year.
type Exam struct {
	ID   int    `json:"exam_id" db:"exam_id"`
	Code int    `json:"exam_code" db:"exam_code"`
	Year int    `json:"exam_year" db:"exam_year"`
	Type string `json:"exam_type" db:"exam_type"`
}

// Result links a student to an exam sitting.
type Result struct {
	ID        int `json:"result_id" db:"result_id"`
	StudentID int `json:"student_id" db:"student_id"`
	ExamID    int `json:"exam_id" db:"exam_id"`
}

type SubjectMaster struct {
	Code int    `json:"subject_code" db:"subject_code"`
	Name string `json:"subject_name" db:"subject_name"`
}

// SubjectScore is unique per (result, subject).
type SubjectScore struct {
	ResultID    int             `json:"result_id" db:"result_id"`
	SubjectCode int             `json:"subject_code" db:"subject_code"`
	Score       int             `json:"score" db:"score"`
	Deviation   decimal.Decimal `json:"deviation_value" db:"deviation_value"`
}

// Judgement is unique per (result, preference order).
type Judgement struct {
	ID              int         `json:"judgement_id" db:"judgement_id"`
	ResultID        int         `json:"result_id" db:"result_id"`
	PreferenceOrder int         `json:"preference_order" db:"preference_order"`
	DepartmentID    null.Int    `json:"department_id" db:"department_id"`
	Kyote           null.String `json:"judgement_kyote" db:"judgement_kyote"`
	Niji            null.String `json:"judgement_niji" db:"judgement_niji"`
	Sougou          null.String `json:"judgement_sougou" db:"judgement_sougou"`
}

// SittingKey is the (year, exam code) pair the duplicate import guard works on.
type SittingKey struct {
	Year int
	Code int
}

// Counter keys of ImportResult.Inserted.
const (
	CountExams         = "exams"
	CountExamResults   = "exam_results"
	CountSubjectScores = "subject_scores"
	CountJudgements    = "judgements"
)

// MaxSkippedRows caps each diagnostic list of an ImportResult.
const MaxSkippedRows = 100

// SkippedRow describes a spreadsheet row the importer ignored.
type SkippedRow struct {
	Row       int    `json:"row"`
	StudentID string `json:"student_id,omitempty"`
	Year      string `json:"year,omitempty"`
	ExamCode  string `json:"exam_code,omitempty"`
}

type ImportResult struct {
	Inserted            map[string]int `json:"inserted"`
	SkippedStudents     int            `json:"skipped_students"`
	SkippedStudentsRows []SkippedRow   `json:"skipped_students_rows"`
	SkippedParseRows    []SkippedRow   `json:"skipped_parse_rows"`
	Note                string         `json:"note,omitempty"`
}

// SubjectImportResult summarises a subject master upload. Skipped counts both
// codes already present and unusable rows.
type SubjectImportResult struct {
	Subjects int `json:"subjects"`
	Existing int `json:"existing"`
	New      int `json:"new"`
	Skipped  int `json:"skipped"`
}

// Read models

// Summary is one exam sitting in search results.
type Summary struct {
	ExamID      int    `json:"exam_id" db:"exam_id"`
	ExamYear    int    `json:"exam_year" db:"exam_year"`
	ExamType    string `json:"exam_type" db:"exam_type"`
	ExamName    string `json:"exam_name" db:"exam_name"`
	NumStudents int    `json:"num_students" db:"num_students"`
	Link        string `json:"link" db:"-"`
}

type SearchFilter struct {
	Year     int    `query:"year"`
	ExamType string `query:"exam_type"`
	Name     string `query:"name"`
}

// JudgementFilter narrows the per-student choice table of one exam.
// The preference range only applies when both bounds are set.
type JudgementFilter struct {
	ExamID     int    `query:"exam_id" validate:"required"`
	Name       string `query:"name"`
	University string `query:"university"`
	Faculty    string `query:"faculty"`
	OrderMin   int    `query:"order_min" validate:"omitempty,min=1,max=9"`
	OrderMax   int    `query:"order_max" validate:"omitempty,min=1,max=9"`
}

// JudgementLine is one choice of one student, joined with its master names.
type JudgementLine struct {
	StudentID       int         `db:"student_id"`
	Name            string      `db:"name"`
	SchoolName      string      `db:"school_name"`
	PreferenceOrder int         `db:"preference_order"`
	Kyote           null.String `db:"judgement_kyote"`
	Niji            null.String `db:"judgement_niji"`
	Sougou          null.String `db:"judgement_sougou"`
	University      null.String `db:"university_name"`
	Faculty         null.String `db:"faculty_name"`
	Department      null.String `db:"department_name"`
}

// ChoiceRow is one student of an exam with the first five choices rendered as text.
type ChoiceRow struct {
	StudentID  int       `json:"student_id"`
	Name       string    `json:"name"`
	SchoolName string    `json:"school_name"`
	Choices    [5]string `json:"-"`
}

// StudentSitting is one exam taken by a student, with its choices and scores.
type StudentSitting struct {
	ResultID   int             `json:"-" db:"result_id"`
	ExamID     int             `json:"-" db:"exam_id"`
	ExamName   string          `json:"exam_name" db:"exam_name"`
	ExamYear   int             `json:"exam_year" db:"exam_year"`
	ExamType   string          `json:"exam_type" db:"exam_type"`
	SortKey    int             `json:"-" db:"sort_key"`
	Judgements []ChoiceDetail  `json:"judgements" db:"-"`
	Scores     []SubjectDetail `json:"scores" db:"-"`
}

type ChoiceDetail struct {
	ResultID        int         `json:"-" db:"result_id"`
	University      string      `json:"university_name" db:"university_name"`
	Faculty         string      `json:"faculty_name" db:"faculty_name"`
	Department      string      `json:"department_name" db:"department_name"`
	PreferenceOrder int         `json:"preference_order" db:"preference_order"`
	Judgement       null.String `json:"judgement" db:"-"`
	Kyote           null.String `json:"judgement_kyote" db:"judgement_kyote"`
	Niji            null.String `json:"judgement_niji" db:"judgement_niji"`
	Sougou          null.String `json:"judgement_sougou" db:"judgement_sougou"`
}

type SubjectDetail struct {
	ResultID    int             `json:"-" db:"result_id"`
	SubjectCode int             `json:"subject_code" db:"subject_code"`
	SubjectName string          `json:"subject_name" db:"subject_name"`
	Score       int             `json:"score" db:"score"`
	Deviation   decimal.Decimal `json:"deviation_value" db:"deviation_value"`
}

func (r ChoiceRow) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"student_id":  r.StudentID,
		"name":        r.Name,
		"school_name": r.SchoolName,
	}
	for i, c := range r.Choices {
		m[fmt.Sprintf("第%d志望", i+1)] = c
	}
	return json.Marshal(m)
}
