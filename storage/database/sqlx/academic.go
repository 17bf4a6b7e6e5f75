package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/academic"
)

type rolloverRepository struct {
	executor
}

var _ academic.Repository = (*rolloverRepository)(nil) // interface compliance check

func NewRolloverRepository(exec core.DBExecutor) *rolloverRepository {
	return &rolloverRepository{executor{exec: exec}}
}

// LatestRollover reads a schema that predates the marker table as "never rolled over".
func (repo rolloverRepository) LatestRollover(ctx context.Context, exec ...core.DBExecutor) (academic.Rollover, bool, error) {
	e := repo.getExec(exec)
	var r academic.Rollover
	err := guarded(ctx, e, func() error {
		return sqlx.GetContext(ctx, e, &r,
			"SELECT academic_year, updated_at FROM academic_year_updates ORDER BY academic_year DESC LIMIT 1")
	})
	switch {
	case err == sql.ErrNoRows, isUndefinedTable(err):
		return academic.Rollover{}, false, nil
	case err != nil:
		return academic.Rollover{}, false, errors.Wrap(err, "reading last rollover")
	}
	return r, true, nil
}

func (repo rolloverRepository) SaveRollover(ctx context.Context, r academic.Rollover, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx, `
		INSERT INTO academic_year_updates (academic_year, updated_at) VALUES ($1, $2)
		ON CONFLICT (academic_year) DO UPDATE SET updated_at = EXCLUDED.updated_at`,
		r.Year, r.UpdatedAt.UTC())
	return errors.Wrap(err, "saving rollover")
}
