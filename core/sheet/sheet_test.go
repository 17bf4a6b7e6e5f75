package sheet_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/sheet"
	"github.com/morris0411/ManavisGradesApp/tests"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		want    string
		wantErr bool
	}{
		{name: "utf-8", in: []byte("生徒,1001"), want: "生徒,1001"},
		{name: "utf-8 with bom", in: append([]byte{0xEF, 0xBB, 0xBF}, []byte("生徒")...), want: "生徒"},
		{name: "shift-jis", in: testutil.ShiftJIS(t, "マナビス生番号"), want: "マナビス生番号"},
		{name: "garbage", in: []byte{0x82, 0xFF, 0xFF, 0x81}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sheet.Decode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, core.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitChoice(t *testing.T) {
	tests := []struct {
		in            string
		uni, fac, dep string
	}{
		{in: testutil.PadChoice("東京大学", "理科一類", "前期"), uni: "東京大学", fac: "理科一類", dep: "前期"},
		{in: testutil.PadChoice("北海道大学", "総合入試理系", ""), uni: "北海道大学", fac: "総合入試理系"},
		{in: "小樽商科大学", uni: "小樽商科大学"},
		{in: testutil.PadChoice("京都 大学", "工学部", "地球 工学科"), uni: "京都大学", fac: "工学部", dep: "地球工学科"},
		{in: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			uni, fac, dep := sheet.SplitChoice(tt.in)
			assert.Equal(t, tt.uni, uni)
			assert.Equal(t, tt.fac, fac)
			assert.Equal(t, tt.dep, dep)
		})
	}
}

func TestReadRoster(t *testing.T) {
	data := testutil.RosterCSV(
		[6]string{" 1001 ", "山田太郎", "", "2025/4/1", "札幌南高校", "高1"},
		[6]string{"1002", "鈴木", "スズキ", "令和7年4月1日", "札幌北高校", "中3"},
	)
	recs, err := sheet.ReadRoster(data)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "1001", recs[0].StudentID)
	assert.False(t, recs[0].NameKana.Valid)
	assert.True(t, recs[0].AdmissionDate.Valid)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), recs[0].AdmissionDate.Time)
	assert.Equal(t, "高1", recs[0].Grade)

	assert.Equal(t, "スズキ", recs[1].NameKana.String)
	assert.False(t, recs[1].AdmissionDate.Valid, "unparsable dates are missing")

	_, err = sheet.ReadRoster([]byte("a,b,c,d,e,f,g\n"))
	require.Error(t, err)
	assert.Equal(t, "CSVに必要な列（C〜H）がありません", err.Error())
}

func TestReadExamSheet(t *testing.T) {
	header := []string{
		sheet.ColCampus, sheet.ColStudentID, sheet.ColYear, sheet.ColExamCode,
		"科目コード1", "得点1", "偏差値1",
		"科目コード02", "得点02", "偏差値02",
		"志望校1", "共テ判定1", "二次判定1", "総合判定1",
		"志望校02", "総合判定02",
	}
	data := testutil.Workbook(t, header,
		[]interface{}{940, 1001, 2025, 1, 101, 85, "55.3", 201, "", "",
			testutil.PadChoice("東京大学", "理科一類", ""), "A", "B", "A", "", "C"},
		[]interface{}{941, 1002, 2025, 1},
		[]interface{}{"940.0", 1003, "2025.0", "x"},
	)

	rows, err := sheet.ReadExamSheet(data, 940)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	r := rows[0]
	assert.Equal(t, 2, r.Line)
	assert.Equal(t, "1001", r.StudentID)
	assert.Equal(t, "2025", r.Year)
	assert.Equal(t, "1", r.ExamCode)
	assert.Equal(t, []sheet.SubjectCell{
		{Slot: 1, Code: "101", Score: "85", Deviation: "55.3"},
		{Slot: 2, Code: "201"},
	}, r.Subjects)
	require.Len(t, r.Choices, 2)
	assert.Equal(t, sheet.ChoiceSlot{
		Order: 1, University: "東京大学", Faculty: "理科一類", Kyote: "A", Niji: "B", Sougou: "A",
	}, r.Choices[0])
	assert.Equal(t, sheet.ChoiceSlot{Order: 2, Sougou: "C"}, r.Choices[1])
	assert.False(t, r.Choices[1].Empty())

	assert.Equal(t, 4, rows[1].Line)
	assert.Equal(t, "x", rows[1].ExamCode)
	assert.True(t, rows[1].Choices[0].Empty())
}

func TestReadExamSheet_errors(t *testing.T) {
	t.Run("no campus column", func(t *testing.T) {
		data := testutil.Workbook(t, []string{sheet.ColStudentID, sheet.ColYear, sheet.ColExamCode})
		_, err := sheet.ReadExamSheet(data, 940)
		require.Error(t, err)
		assert.True(t, core.IsValidation(err))
		assert.Contains(t, err.Error(), "校舎コード")
	})

	t.Run("no row of this campus", func(t *testing.T) {
		data := testutil.Workbook(t, []string{sheet.ColCampus}, []interface{}{"123"})
		rows, err := sheet.ReadExamSheet(data, 940)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("missing student column", func(t *testing.T) {
		data := testutil.Workbook(t, []string{sheet.ColCampus, sheet.ColYear, sheet.ColExamCode}, []interface{}{940, 2025, 5})
		_, err := sheet.ReadExamSheet(data, 940)
		require.Error(t, err)
		assert.True(t, core.IsValidation(err))
		assert.Contains(t, err.Error(), sheet.ColStudentID)
	})

	t.Run("csv export", func(t *testing.T) {
		csv := "校舎コード,マナビス生番号,年度,模試\n940,1001,2025,5\n"
		rows, err := sheet.ReadExamSheet(testutil.ShiftJIS(t, csv), 940)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "5", rows[0].ExamCode)
		assert.Empty(t, rows[0].Subjects)
	})
}
