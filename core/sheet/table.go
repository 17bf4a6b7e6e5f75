// Package sheet turns uploaded CSV/XLSX bytes into clean, normalized rows.
package sheet

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/morris0411/ManavisGradesApp/core"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var errEmptyFile = errors.New("ファイルにデータがありません")

// Table is a header row plus data rows. Header names are trimmed; on duplicate
// names the left-most column wins.
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

func newTable(header []string, rows [][]string) *Table {
	t := &Table{Header: make([]string, len(header)), Rows: rows, index: make(map[string]int, len(header))}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		t.Header[i] = h
		if _, exists := t.index[h]; !exists && h != "" {
			t.index[h] = i
		}
	}
	return t
}

// Col returns the index of the named column.
func (t *Table) Col(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Cell returns the trimmed value at column idx of row, or "" when the row is short.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// rawCell is Cell without trimming; fixed-width fields need their padding.
func rawCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// isXLSX sniffs the upload instead of trusting its file name. Any zip container
// is handed to excelize, which rejects non-workbooks itself.
func isXLSX(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is(xlsxMIME) || m.Is("application/zip") {
			return true
		}
	}
	return false
}

// ReadTable reads the first sheet of an XLSX workbook, or a CSV file, with a header row.
func ReadTable(data []byte) (*Table, error) {
	var records [][]string
	var err error
	if isXLSX(data) {
		records, err = readXLSX(data)
	} else {
		records, err = readCSV(data)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, core.NewValidationError(errEmptyFile)
	}
	return newTable(records[0], records[1:]), nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, core.NewValidationError(errors.Wrap(err, "Excelファイルを読み込めません"))
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewValidationError(errEmptyFile)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, core.NewValidationError(errors.Wrap(err, "Excelファイルを読み込めません"))
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	text, err := Decode(data)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, core.NewValidationError(errors.Wrap(err, "CSVを読み込めません"))
		}
		records = append(records, rec)
	}
	return records, nil
}
