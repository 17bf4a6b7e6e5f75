package testutil

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/student"
	"github.com/morris0411/ManavisGradesApp/core/user"
	"github.com/morris0411/ManavisGradesApp/services/logger"
)

// Logger discards everything.
func Logger() core.Logger {
	return logsvc.NewConsoleLogger(io.Discard, false)
}

func CreateUser(t *testing.T, repo user.Repository, loginID, pwd string, isAdmin bool) user.User {
	usr := user.User{
		LoginID:   loginID,
		IsAdmin:   isAdmin,
		CreatedAt: time.Now().UTC(),
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateStudent(t *testing.T, repo student.Repository, id int, name, grade, status string) student.Student {
	s := student.Student{
		ID:            id,
		Name:          name,
		SchoolName:    "札幌南高校",
		Grade:         grade,
		Status:        status,
		AdmissionDate: null.TimeFrom(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)),
	}
	if err := repo.CreateStudent(context.Background(), s); err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

// RosterCSV builds a headerless roster export. Each line is id, name, kana, admission, school, grade;
// columns A and B are filled with the vendor's campus fields.
func RosterCSV(lines ...[6]string) []byte {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("940,札幌校,")
		b.WriteString(strings.Join(l[:], ","))
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// ShiftJIS encodes s as the vendor's Windows exports do.
func ShiftJIS(t *testing.T, s string) []byte {
	out, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
	if err != nil {
		t.Fatalf("ShiftJIS() failed: %v", err)
	}
	return out
}

// Workbook builds an xlsx file whose first sheet holds header and rows.
func Workbook(t *testing.T, header []string, rows ...[]interface{}) []byte {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	hdr := make([]interface{}, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &hdr); err != nil {
		t.Fatalf("Workbook() failed: %v", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			t.Fatalf("Workbook() failed: %v", err)
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("Workbook() failed: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Workbook() failed: %v", err)
	}
	return buf.Bytes()
}

// PadChoice packs a choice cell the way the vendor does: 10 runes of university,
// 10 runes of faculty, then the department / recruitment category.
func PadChoice(university, faculty, department string) string {
	pad := func(s string, n int) string {
		if r := []rune(s); len(r) < n {
			return s + strings.Repeat("　", n-len(r))
		}
		return s
	}
	return pad(university, 10) + pad(faculty, 10) + department
}
