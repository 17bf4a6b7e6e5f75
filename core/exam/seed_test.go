package exam_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/exam"
	"github.com/morris0411/ManavisGradesApp/tests"
)

func TestService_SeedExamMasters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// an auto-created master is overwritten by the catalogue entry
	require.NoError(t, f.repo.CreateExamMaster(ctx, exam.ExamMaster{Code: 1, Name: "1", SortKey: 999}))
	require.NoError(t, f.repo.CreateExamMaster(ctx, exam.ExamMaster{Code: 99, Name: "99", SortKey: 999}))

	n, err := f.svc.SeedExamMasters(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(exam.Catalogue)+1, n)

	masters, err := f.repo.ListExamMasters(ctx)
	require.NoError(t, err)
	assert.Equal(t, exam.ExamMaster{Code: 71, Name: "第1回全統高1模試", SortKey: 1}, masters[71])
	assert.Equal(t, exam.ExamMaster{Code: 1, Name: "第1回全統共通テスト模試", SortKey: 10}, masters[1])
	assert.Equal(t, len(exam.Catalogue), masters[4].SortKey)
	assert.Equal(t, 999, masters[99].SortKey)

	n, err = f.svc.SeedExamMasters(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(exam.Catalogue)+1, n, "seeding twice changes nothing")
}

func TestService_ImportSubjectMaster(t *testing.T) {
	ctx := context.Background()

	t.Run("new, existing and unusable rows", func(t *testing.T) {
		f := newFixture(t)
		csv := "subject_code,subject_name\n" +
			"101,英語リーディング\n" +
			"301,物理\n" +
			"302,\n" +
			"abc,化学\n" +
			"301,物理基礎\n"
		res, err := f.svc.ImportSubjectMaster(ctx, []byte(csv))
		require.NoError(t, err)
		assert.Equal(t, exam.SubjectImportResult{Subjects: 3, Existing: 2, New: 1, Skipped: 4}, res)

		subjects, err := f.repo.ListSubjectMasters(ctx)
		require.NoError(t, err)
		assert.Equal(t, "英語", subjects[101].Name, "known codes keep their name")
		assert.Equal(t, "物理", subjects[301].Name)
	})

	t.Run("shift-jis", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.svc.ImportSubjectMaster(ctx, testutil.ShiftJIS(t, "subject_code,subject_name\n401,日本史探究\n"))
		require.NoError(t, err)
		assert.Equal(t, 1, res.New)
	})

	t.Run("missing columns", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ImportSubjectMaster(ctx, []byte("code,name\n101,英語\n"))
		require.Error(t, err)
		assert.True(t, core.IsValidation(err))
		assert.Contains(t, err.Error(), "subject_code")
	})
}
