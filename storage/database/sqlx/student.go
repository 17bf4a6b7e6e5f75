package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/student"
)

const studentColumns = "student_id, name, name_kana, school_name, grade, admission_date, status"

type studentRepository struct {
	executor
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{executor{exec: exec}}
}

func (repo studentRepository) GetStudent(ctx context.Context, id int, exec ...core.DBExecutor) (student.Student, error) {
	var s student.Student
	err := sqlx.GetContext(ctx, repo.getExec(exec), &s,
		"SELECT "+studentColumns+" FROM students WHERE student_id = $1", id)
	if err == sql.ErrNoRows {
		return student.Student{}, student.ErrNotFound
	}
	if err != nil {
		return student.Student{}, errors.Wrap(err, "getting student")
	}
	return s, nil
}

func (repo studentRepository) GetStudentsByID(ctx context.Context, ids []int, exec ...core.DBExecutor) (map[int]student.Student, error) {
	out := make(map[int]student.Student, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var students []student.Student
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &students,
		"SELECT "+studentColumns+" FROM students WHERE student_id = ANY($1)", pq.Array(int64s(ids)))
	if err != nil {
		return nil, errors.Wrap(err, "getting students")
	}
	for _, s := range students {
		out[s.ID] = s
	}
	return out, nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, s student.Student, exec ...core.DBExecutor) error {
	_, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), `
		INSERT INTO students (`+studentColumns+`)
		VALUES (:student_id, :name, :name_kana, :school_name, :grade, :admission_date, :status)`, s)
	if isPKCollision(err) {
		return core.ErrPKCollision
	}
	return errors.Wrap(err, "inserting student")
}

func (repo studentRepository) UpdateStudent(ctx context.Context, s student.Student, exec ...core.DBExecutor) error {
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), `
		UPDATE students
		SET name = :name, name_kana = :name_kana, school_name = :school_name, grade = :grade,
			admission_date = :admission_date, status = :status
		WHERE student_id = :student_id`, s)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.ErrNotFound
	}
	return nil
}

func (repo studentRepository) ResignAbsent(ctx context.Context, keepIDs []int, resignGraduated bool, exec ...core.DBExecutor) (int, error) {
	q := `UPDATE students SET status = $1 WHERE status <> $1 AND NOT (student_id = ANY($2))`
	args := []interface{}{student.StatusResigned, pq.Array(int64s(keepIDs))}
	if !resignGraduated {
		q += " AND status <> $3"
		args = append(args, student.StatusGraduated)
	}
	res, err := repo.getExec(exec).ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "resigning absent students")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "resigning absent students")
	}
	return int(n), nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter, exec ...core.DBExecutor) ([]student.Student, error) {
	q := "SELECT " + studentColumns + " FROM students WHERE TRUE"
	var args []interface{}
	if filter.Keyword != "" {
		args = append(args, "%"+filter.Keyword+"%")
		q += ` AND (name ILIKE $1 OR name_kana ILIKE $1 OR school_name ILIKE $1 OR CAST(student_id AS TEXT) LIKE $1)`
	}
	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(filter.Statuses))
		q += " AND status = ANY($" + strconv.Itoa(len(args)) + ")"
	}
	q += " ORDER BY student_id"

	students := make([]student.Student, 0)
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &students, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo studentRepository) QueryActiveStudents(ctx context.Context, exec ...core.DBExecutor) ([]student.Student, error) {
	students := make([]student.Student, 0)
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &students,
		"SELECT "+studentColumns+" FROM students WHERE status <> $1 ORDER BY student_id", student.StatusResigned)
	if err != nil {
		return nil, errors.Wrap(err, "querying active students")
	}
	return students, nil
}
