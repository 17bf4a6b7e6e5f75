package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/master"
)

type masterRepository struct {
	executor
}

var _ master.Repository = (*masterRepository)(nil) // interface compliance check

func NewMasterRepository(exec core.DBExecutor) *masterRepository {
	return &masterRepository{executor{exec: exec}}
}

func (repo masterRepository) find(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) (int, bool, error) {
	var id int
	err := sqlx.GetContext(ctx, exec, &id, query, args...)
	switch {
	case err == sql.ErrNoRows:
		return 0, false, nil
	case err != nil:
		return 0, false, err
	}
	return id, true, nil
}

func (repo masterRepository) FindUniversity(ctx context.Context, name string, exec ...core.DBExecutor) (int, bool, error) {
	id, found, err := repo.find(ctx, repo.getExec(exec),
		"SELECT university_id FROM universities WHERE university_name = $1", name)
	return id, found, errors.Wrap(err, "finding university")
}

func (repo masterRepository) CreateUniversity(ctx context.Context, name string, exec ...core.DBExecutor) (int, error) {
	id, err := insertID(ctx, repo.getExec(exec),
		"INSERT INTO universities (university_name) VALUES ($1) RETURNING university_id", name)
	return id, errors.Wrap(err, "inserting university")
}

func (repo masterRepository) FindFaculty(ctx context.Context, universityID int, name string, exec ...core.DBExecutor) (int, bool, error) {
	id, found, err := repo.find(ctx, repo.getExec(exec),
		"SELECT faculty_id FROM faculties WHERE university_id = $1 AND faculty_name = $2", universityID, name)
	return id, found, errors.Wrap(err, "finding faculty")
}

func (repo masterRepository) CreateFaculty(ctx context.Context, universityID int, name string, exec ...core.DBExecutor) (int, error) {
	id, err := insertID(ctx, repo.getExec(exec),
		"INSERT INTO faculties (university_id, faculty_name) VALUES ($1, $2) RETURNING faculty_id", universityID, name)
	return id, errors.Wrap(err, "inserting faculty")
}

func (repo masterRepository) FindDepartment(ctx context.Context, facultyID int, name string, exec ...core.DBExecutor) (int, bool, error) {
	id, found, err := repo.find(ctx, repo.getExec(exec),
		"SELECT department_id FROM departments WHERE faculty_id = $1 AND department_name = $2", facultyID, name)
	return id, found, errors.Wrap(err, "finding department")
}

func (repo masterRepository) CreateDepartment(ctx context.Context, facultyID int, name string, exec ...core.DBExecutor) (int, error) {
	id, err := insertID(ctx, repo.getExec(exec),
		"INSERT INTO departments (faculty_id, department_name) VALUES ($1, $2) RETURNING department_id", facultyID, name)
	return id, errors.Wrap(err, "inserting department")
}

func (repo masterRepository) RepairSequence(ctx context.Context, seq core.Sequence, exec ...core.DBExecutor) error {
	return repairSequence(ctx, repo.getExec(exec), seq)
}
