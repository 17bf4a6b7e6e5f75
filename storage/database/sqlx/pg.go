// Package sqlxrepos implements the repositories on Postgres with sqlx.
package sqlxrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/morris0411/ManavisGradesApp/core"
)

const (
	uniqueViolation pq.ErrorCode = "23505"
	undefinedTable  pq.ErrorCode = "42P01"

	savepoint = "repo_stmt"
)

// executor is embedded by every repository.
type executor struct {
	exec core.DBExecutor
}

func (e executor) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return e.exec
}

func pqError(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr, true
	}
	return nil, false
}

// isPKCollision tells a surrogate key clash (sequence behind the data) from natural key clashes.
func isPKCollision(err error) bool {
	pqErr, ok := pqError(err)
	return ok && pqErr.Code == uniqueViolation && strings.HasSuffix(pqErr.Constraint, "_pkey")
}

func isUniqueViolation(err error, constraint string) bool {
	pqErr, ok := pqError(err)
	return ok && pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
}

func isUndefinedTable(err error) bool {
	pqErr, ok := pqError(err)
	return ok && pqErr.Code == undefinedTable
}

// guarded runs fn under a savepoint when exec is a transaction, so that a failing
// statement leaves the transaction usable.
func guarded(ctx context.Context, exec core.DBExecutor, fn func() error) error {
	if _, inTx := exec.(*sqlx.Tx); !inTx {
		return fn()
	}
	if _, err := exec.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
		return errors.Wrap(err, "creating savepoint")
	}
	if err := fn(); err != nil {
		if _, rbErr := exec.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
			return errors.Wrap(rbErr, "rolling back to savepoint")
		}
		return err
	}
	if _, err := exec.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
		return errors.Wrap(err, "releasing savepoint")
	}
	return nil
}

// insertID runs an INSERT ... RETURNING id. A primary key clash is reported as core.ErrPKCollision.
func insertID(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) (int, error) {
	var id int
	err := guarded(ctx, exec, func() error {
		return sqlx.GetContext(ctx, exec, &id, query, args...)
	})
	if isPKCollision(err) {
		return 0, core.ErrPKCollision
	}
	return id, err
}

// repairSequence moves the sequence behind seq to the largest stored id + 1.
func repairSequence(ctx context.Context, exec core.DBExecutor, seq core.Sequence) error {
	q := fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence($1, $2), COALESCE((SELECT MAX(%s) FROM %s), 0) + 1, false)",
		pq.QuoteIdentifier(seq.Column), pq.QuoteIdentifier(seq.Table),
	)
	if _, err := exec.ExecContext(ctx, q, seq.Table, seq.Column); err != nil {
		return errors.Wrapf(err, "repairing sequence of %s.%s", seq.Table, seq.Column)
	}
	return nil
}

func int64s(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
