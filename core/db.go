package core

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor is anything that can run queries: *sqlx.DB or *sqlx.Tx.
	// The in-memory store passes a nil DBExecutor and ignores it.
	DBExecutor interface {
		sqlx.ExtContext
	}

	// Transactor runs fn inside a single transaction.
	// It commits when fn returns nil and rolls everything back otherwise.
	Transactor interface {
		InTx(ctx context.Context, fn func(exec DBExecutor) error) error
	}

	// Sequence identifies the surrogate-key sequence backing a table column.
	Sequence struct {
		Table  string
		Column string
	}
)

var (
	SeqUniversities = Sequence{Table: "universities", Column: "university_id"}
	SeqFaculties    = Sequence{Table: "faculties", Column: "faculty_id"}
	SeqDepartments  = Sequence{Table: "departments", Column: "department_id"}
	SeqExams        = Sequence{Table: "exams", Column: "exam_id"}
	SeqExamResults  = Sequence{Table: "exam_results", Column: "result_id"}
)
