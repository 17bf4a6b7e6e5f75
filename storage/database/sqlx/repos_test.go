package sqlxrepos_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/exam"
	"github.com/morris0411/ManavisGradesApp/core/student"
	"github.com/morris0411/ManavisGradesApp/core/user"
	"github.com/morris0411/ManavisGradesApp/storage/database/sqlx"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return sqlx.NewDb(db, "postgres"), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

var studentCols = []string{"student_id", "name", "name_kana", "school_name", "grade", "admission_date", "status"}

func TestStudentRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("GetStudent", func(t *testing.T) {
		db, mock := newMock(t)
		repo := sqlxrepos.NewStudentRepository(db)
		admitted := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(q("FROM students WHERE student_id = $1")).WithArgs(1001).
			WillReturnRows(sqlmock.NewRows(studentCols).AddRow(1001, "山田太郎", nil, "札幌南高校", "高1", admitted, "在籍"))
		mock.ExpectQuery(q("FROM students WHERE student_id = $1")).WithArgs(1002).
			WillReturnError(sql.ErrNoRows)

		s, err := repo.GetStudent(ctx, 1001)
		require.NoError(t, err)
		assert.Equal(t, student.Student{
			ID: 1001, Name: "山田太郎", SchoolName: "札幌南高校", Grade: "高1",
			AdmissionDate: null.TimeFrom(admitted), Status: "在籍",
		}, s)

		_, err = repo.GetStudent(ctx, 1002)
		assert.Equal(t, student.ErrNotFound, err)
	})

	t.Run("GetStudentsByID", func(t *testing.T) {
		db, mock := newMock(t)
		repo := sqlxrepos.NewStudentRepository(db)
		mock.ExpectQuery(q("WHERE student_id = ANY($1)")).WithArgs(pq.Array([]int64{1001, 9999})).
			WillReturnRows(sqlmock.NewRows(studentCols).AddRow(1001, "山田太郎", "ヤマダ", "", "高1", nil, "在籍"))

		got, err := repo.GetStudentsByID(ctx, []int{1001, 9999})
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Equal(t, "ヤマダ", got[1001].NameKana.String)

		empty, err := repo.GetStudentsByID(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, empty, "no query without ids")
	})

	t.Run("ResignAbsent", func(t *testing.T) {
		db, mock := newMock(t)
		repo := sqlxrepos.NewStudentRepository(db)
		keep := pq.Array([]int64{1001})
		mock.ExpectExec(q("SET status = $1 WHERE status <> $1 AND NOT (student_id = ANY($2))")).
			WithArgs(student.StatusResigned, keep).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec(q("AND status <> $3")).
			WithArgs(student.StatusResigned, keep, student.StatusGraduated).
			WillReturnResult(sqlmock.NewResult(0, 2))

		n, err := repo.ResignAbsent(ctx, []int{1001}, true)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		n, err = repo.ResignAbsent(ctx, []int{1001}, false)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("QueryStudents", func(t *testing.T) {
		db, mock := newMock(t)
		repo := sqlxrepos.NewStudentRepository(db)
		mock.ExpectQuery(q("WHERE TRUE AND (name ILIKE $1 OR name_kana ILIKE $1 OR school_name ILIKE $1 OR CAST(student_id AS TEXT) LIKE $1) AND status = ANY($2) ORDER BY student_id")).
			WithArgs("%田中%", pq.Array([]string{"在籍"})).
			WillReturnRows(sqlmock.NewRows(studentCols))
		mock.ExpectQuery(q("WHERE TRUE ORDER BY student_id")).
			WillReturnRows(sqlmock.NewRows(studentCols))

		got, err := repo.QueryStudents(ctx, student.QueryFilter{Keyword: "田中", Statuses: []string{"在籍"}})
		require.NoError(t, err)
		assert.NotNil(t, got)
		_, err = repo.QueryStudents(ctx, student.QueryFilter{})
		require.NoError(t, err)
	})

	t.Run("UpdateStudent missing", func(t *testing.T) {
		db, mock := newMock(t)
		repo := sqlxrepos.NewStudentRepository(db)
		mock.ExpectExec(q("UPDATE students")).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStudent(ctx, student.Student{ID: 1})
		assert.Equal(t, student.ErrNotFound, err)
	})
}

func TestMasterRepository_collision(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := sqlxrepos.NewMasterRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("SAVEPOINT repo_stmt")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("INSERT INTO universities (university_name) VALUES ($1) RETURNING university_id")).
		WithArgs("大阪大学").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "universities_pkey"})
	mock.ExpectExec(q("ROLLBACK TO SAVEPOINT repo_stmt")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("SELECT setval(pg_get_serial_sequence($1, $2), COALESCE((SELECT MAX(\"university_id\") FROM \"universities\"), 0) + 1, false)")).
		WithArgs("universities", "university_id").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("SAVEPOINT repo_stmt")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("INSERT INTO universities")).WithArgs("大阪大学").
		WillReturnRows(sqlmock.NewRows([]string{"university_id"}).AddRow(3))
	mock.ExpectExec(q("RELEASE SAVEPOINT repo_stmt")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx := db.MustBegin()
	_, err := repo.CreateUniversity(ctx, "大阪大学", tx)
	require.Error(t, err)
	assert.True(t, core.IsPKCollision(err))

	require.NoError(t, repo.RepairSequence(ctx, core.SeqUniversities, tx))
	id, err := repo.CreateUniversity(ctx, "大阪大学", tx)
	require.NoError(t, err)
	assert.Equal(t, 3, id)
	require.NoError(t, tx.Commit())
}

func TestMasterRepository_find(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := sqlxrepos.NewMasterRepository(db)

	mock.ExpectQuery(q("FROM faculties WHERE university_id = $1 AND faculty_name = $2")).WithArgs(1, "医学部").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(q("FROM departments WHERE faculty_id = $1 AND department_name = $2")).WithArgs(2, "-").
		WillReturnRows(sqlmock.NewRows([]string{"department_id"}).AddRow(7))

	_, found, err := repo.FindFaculty(ctx, 1, "医学部")
	require.NoError(t, err)
	assert.False(t, found)

	id, found, err := repo.FindDepartment(ctx, 2, "-")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 7, id)
}

func TestExamRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("ExistingSittings", func(t *testing.T) {
		db, mock := newMock(t)
		repo := sqlxrepos.NewExamRepository(db)
		mock.ExpectQuery(q("JOIN unnest($1::int[], $2::int[])")).
			WithArgs(pq.Array([]int64{2025, 2025}), pq.Array([]int64{1, 5})).
			WillReturnRows(sqlmock.NewRows([]string{"exam_year", "exam_code"}).AddRow(2025, 1))

		got, err := repo.ExistingSittings(ctx, []exam.SittingKey{{Year: 2025, Code: 1}, {Year: 2025, Code: 5}})
		require.NoError(t, err)
		assert.Equal(t, []exam.SittingKey{{Year: 2025, Code: 1}}, got)
	})

	t.Run("UpsertSubjectScore", func(t *testing.T) {
		db, mock := newMock(t)
		repo := sqlxrepos.NewExamRepository(db)
		dev := decimal.RequireFromString("62.5")
		mock.ExpectQuery(q("ON CONFLICT (result_id, subject_code)")).
			WithArgs(1, 101, 150, dev).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(true))
		mock.ExpectQuery(q("ON CONFLICT (result_id, subject_code)")).
			WithArgs(1, 101, 160, dev).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(false))

		created, err := repo.UpsertSubjectScore(ctx, exam.SubjectScore{ResultID: 1, SubjectCode: 101, Score: 150, Deviation: dev})
		require.NoError(t, err)
		assert.True(t, created)
		created, err = repo.UpsertSubjectScore(ctx, exam.SubjectScore{ResultID: 1, SubjectCode: 101, Score: 160, Deviation: dev})
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("CreateExamMaster", func(t *testing.T) {
		db, mock := newMock(t)
		repo := sqlxrepos.NewExamRepository(db)
		mock.ExpectExec(q("ON CONFLICT (exam_code) DO NOTHING")).
			WithArgs(99, "99", 999).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.CreateExamMaster(ctx, exam.ExamMaster{Code: 99, Name: "99", SortKey: 999}))
	})

	t.Run("QueryStudentSittings", func(t *testing.T) {
		db, mock := newMock(t)
		repo := sqlxrepos.NewExamRepository(db)
		mock.ExpectQuery(q("FROM exam_results r")).WithArgs(1001).
			WillReturnRows(sqlmock.NewRows([]string{"result_id", "exam_id", "exam_name", "exam_year", "exam_type", "sort_key"}).
				AddRow(10, 1, "第1回全統記述模試", 2025, "記述", 11).
				AddRow(11, 2, "第2回全統記述模試", 2025, "記述", 13))
		mock.ExpectQuery(q("d.department_id IS NOT NULL")).WithArgs(1001).
			WillReturnRows(sqlmock.NewRows([]string{"result_id", "university_name", "faculty_name", "department_name",
				"preference_order", "judgement_kyote", "judgement_niji", "judgement_sougou"}).
				AddRow(10, "北海道大学", "医学部", "前期", 1, "A", nil, "B"))
		mock.ExpectQuery(q("FROM subject_scores sc")).WithArgs(1001).
			WillReturnRows(sqlmock.NewRows([]string{"result_id", "subject_code", "subject_name", "score", "deviation_value"}).
				AddRow(11, 101, "英語", 150, "62.5"))

		got, err := repo.QueryStudentSittings(ctx, 1001)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Len(t, got[0].Judgements, 1)
		assert.Equal(t, "北海道大学", got[0].Judgements[0].University)
		assert.False(t, got[0].Judgements[0].Niji.Valid)
		assert.Empty(t, got[0].Scores)
		assert.Empty(t, got[1].Judgements)
		require.Len(t, got[1].Scores, 1)
		assert.Equal(t, "62.5", got[1].Scores[0].Deviation.String())
	})
}

func TestRolloverRepository_LatestRollover(t *testing.T) {
	ctx := context.Background()

	t.Run("missing table inside a transaction", func(t *testing.T) {
		db, mock := newMock(t)
		repo := sqlxrepos.NewRolloverRepository(db)
		mock.ExpectBegin()
		mock.ExpectExec(q("SAVEPOINT repo_stmt")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(q("FROM academic_year_updates")).
			WillReturnError(&pq.Error{Code: "42P01", Message: `relation "academic_year_updates" does not exist`})
		mock.ExpectExec(q("ROLLBACK TO SAVEPOINT repo_stmt")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx := db.MustBegin()
		_, found, err := repo.LatestRollover(ctx, tx)
		require.NoError(t, err)
		assert.False(t, found)
		require.NoError(t, tx.Rollback())
	})

	t.Run("latest year", func(t *testing.T) {
		db, mock := newMock(t)
		repo := sqlxrepos.NewRolloverRepository(db)
		at := time.Date(2025, 4, 1, 0, 30, 0, 0, time.UTC)
		mock.ExpectQuery(q("ORDER BY academic_year DESC LIMIT 1")).
			WillReturnRows(sqlmock.NewRows([]string{"academic_year", "updated_at"}).AddRow(2025, at))

		r, found, err := repo.LatestRollover(ctx)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, 2025, r.Year)
		assert.Equal(t, at, r.UpdatedAt)
	})
}

func TestUserRepository_CreateUser(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := sqlxrepos.NewUserRepository(db)
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("INSERT INTO users")).
		WithArgs("sato", []byte("hash"), false, now).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "login_id", "password_hash", "is_admin", "created_at"}).
			AddRow(1, "sato", []byte("hash"), false, now))
	mock.ExpectQuery(q("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_login_id_key"})

	usr, err := repo.CreateUser(ctx, user.User{LoginID: "sato", PasswordHash: []byte("hash"), CreatedAt: now})
	require.NoError(t, err)
	assert.Equal(t, 1, usr.ID)

	_, err = repo.CreateUser(ctx, user.User{LoginID: "sato", PasswordHash: []byte("hash"), CreatedAt: now})
	assert.Equal(t, user.ErrLoginIDExists, err)
}
