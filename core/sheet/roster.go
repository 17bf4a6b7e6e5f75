package sheet

import (
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/morris0411/ManavisGradesApp/core"
)

// Roster columns (C..H) of the headerless student list export.
const (
	rosterColID = iota + 2
	rosterColName
	rosterColKana
	rosterColAdmission
	rosterColSchool
	rosterColGrade

	rosterMinCols = rosterColGrade + 1
)

// RosterDateLayout is the admission date format of the roster export (e.g. 2025/4/1).
const RosterDateLayout = "2006/1/2"

var errRosterColumns = errors.New("CSVに必要な列（C〜H）がありません")

// RosterRecord is one roster line. StudentID is kept raw; the importer decides
// what a usable id is.
type RosterRecord struct {
	StudentID     string
	Name          string
	NameKana      null.String
	AdmissionDate null.Time
	SchoolName    string
	Grade         string
}

// ReadRoster reads a headerless roster CSV.
func ReadRoster(data []byte) ([]RosterRecord, error) {
	text, err := Decode(data)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var lines [][]string
	width := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, core.NewValidationError(errors.Wrap(err, "CSVを読み込めません"))
		}
		if len(rec) > width {
			width = len(rec)
		}
		lines = append(lines, rec)
	}
	if width < rosterMinCols {
		return nil, core.NewValidationError(errRosterColumns)
	}

	records := make([]RosterRecord, 0, len(lines))
	for _, line := range lines {
		records = append(records, RosterRecord{
			StudentID:     Cell(line, rosterColID),
			Name:          Cell(line, rosterColName),
			NameKana:      optString(Cell(line, rosterColKana)),
			AdmissionDate: parseDate(Cell(line, rosterColAdmission)),
			SchoolName:    Cell(line, rosterColSchool),
			Grade:         Cell(line, rosterColGrade),
		})
	}
	return records, nil
}

func optString(s string) null.String {
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}

// parseDate yields an empty value for blank or malformed dates.
func parseDate(s string) null.Time {
	t, err := time.Parse(RosterDateLayout, s)
	if err != nil {
		return null.Time{}
	}
	return null.TimeFrom(t)
}
