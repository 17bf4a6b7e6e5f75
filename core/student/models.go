package student

import (
	"github.com/volatiletech/null/v8"

	"github.com/morris0411/ManavisGradesApp/core"
)

// Grades
const (
	GradeMiddle3   = "中3"
	GradeHigh1     = "高1"
	GradeHigh2     = "高2"
	GradeHigh3     = "高3"
	GradeGraduated = "既卒"
)

// Statuses
const (
	StatusEnrolled  = "在籍"
	StatusResigned  = "退会"
	StatusGraduated = "既卒"
)

// Student is identified by the id the school assigns, never by a generated key.
type Student struct {
	ID            int         `json:"student_id" db:"student_id"`
	Name          string      `json:"name" db:"name"`
	NameKana      null.String `json:"name_kana" db:"name_kana"`
	SchoolName    string      `json:"school_name" db:"school_name"`
	Grade         string      `json:"grade" db:"grade"`
	AdmissionDate null.Time   `json:"admission_date" db:"admission_date"`
	Status        string      `json:"status" db:"status"`
}

// RosterRow is one student line of an uploaded roster, already cleaned.
type RosterRow struct {
	StudentID     int
	Name          string
	NameKana      null.String
	AdmissionDate null.Time
	SchoolName    string
	Grade         string
}

// RosterResult summarises a roster import.
type RosterResult struct {
	Inserted    int `json:"inserted"`
	Updated     int `json:"updated"`
	Skipped     int `json:"skipped"`
	TotalInFile int `json:"total_in_file"`
	Resigned    int `json:"-"`
}

// QueryFilter matches students by keyword (name, kana, school or id) and status.
type QueryFilter struct {
	Keyword  string   `query:"q"`
	Statuses []string `query:"status" validate:"omitempty,dive,studentstatus"`
}

func (qf *QueryFilter) Clean() {
	qf.Keyword = core.CleanString(qf.Keyword)
	statuses := qf.Statuses[:0]
	for _, s := range qf.Statuses {
		if s != "" {
			statuses = append(statuses, s)
		}
	}
	qf.Statuses = statuses
}
