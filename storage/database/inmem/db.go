// Package inmemdb is an in-memory implementation of every repository, used by tests
// and by the API in debug mode without a database.
package inmemdb

import (
	"context"
	"maps"
	"sync"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/academic"
	"github.com/morris0411/ManavisGradesApp/core/exam"
	"github.com/morris0411/ManavisGradesApp/core/student"
	"github.com/morris0411/ManavisGradesApp/core/user"
)

type (
	University struct {
		ID   int
		Name string
	}

	Faculty struct {
		ID           int
		UniversityID int
		Name         string
	}

	Department struct {
		ID        int
		FacultyID int
		Name      string
	}

	scoreKey struct {
		resultID    int
		subjectCode int
	}

	judgementKey struct {
		resultID int
		order    int
	}

	tables struct {
		students     map[int]student.Student
		users        map[int]user.User
		universities map[int]University
		faculties    map[int]Faculty
		departments  map[int]Department
		examMasters  map[int]exam.ExamMaster
		subjects     map[int]exam.SubjectMaster
		exams        map[int]exam.Exam
		results      map[int]exam.Result
		scores       map[scoreKey]exam.SubjectScore
		judgements   map[judgementKey]exam.Judgement
		rollovers    map[int]academic.Rollover
		// next holds the next surrogate id per table, like a Postgres sequence.
		next map[string]int
	}

	// DB holds every table in memory. InTx snapshots the tables and restores them when fn fails.
	DB struct {
		mu   sync.RWMutex
		txMu sync.Mutex
		t    tables

		// NoRolloverTable simulates a schema where the rollover marker table was never created.
		NoRolloverTable bool
	}
)

var _ core.Transactor = (*DB)(nil)

func Open() *DB {
	return &DB{t: tables{
		students:     make(map[int]student.Student),
		users:        make(map[int]user.User),
		universities: make(map[int]University),
		faculties:    make(map[int]Faculty),
		departments:  make(map[int]Department),
		examMasters:  make(map[int]exam.ExamMaster),
		subjects:     make(map[int]exam.SubjectMaster),
		exams:        make(map[int]exam.Exam),
		results:      make(map[int]exam.Result),
		scores:       make(map[scoreKey]exam.SubjectScore),
		judgements:   make(map[judgementKey]exam.Judgement),
		rollovers:    make(map[int]academic.Rollover),
		next:         make(map[string]int),
	}}
}

func (t tables) clone() tables {
	return tables{
		students:     maps.Clone(t.students),
		users:        maps.Clone(t.users),
		universities: maps.Clone(t.universities),
		faculties:    maps.Clone(t.faculties),
		departments:  maps.Clone(t.departments),
		examMasters:  maps.Clone(t.examMasters),
		subjects:     maps.Clone(t.subjects),
		exams:        maps.Clone(t.exams),
		results:      maps.Clone(t.results),
		scores:       maps.Clone(t.scores),
		judgements:   maps.Clone(t.judgements),
		rollovers:    maps.Clone(t.rollovers),
		next:         maps.Clone(t.next),
	}
}

// InTx runs fn with a nil executor; transactions are serialized.
func (db *DB) InTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.RLock()
	snapshot := db.t.clone()
	db.mu.RUnlock()

	if err := fn(nil); err != nil {
		db.mu.Lock()
		db.t = snapshot
		db.mu.Unlock()
		return err
	}
	return nil
}

// SetSequence makes the next generated id of table be next, e.g. to reproduce a
// sequence lagging behind manually seeded rows.
func (db *DB) SetSequence(seq core.Sequence, next int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.t.next[seq.Table] = next
}

// nextID draws an id from the sequence of table; the caller holds db.mu.
func (db *DB) nextID(table string) int {
	id := db.t.next[table]
	if id == 0 {
		id = 1
	}
	db.t.next[table] = id + 1
	return id
}

func (db *DB) repairSequence(seq core.Sequence) {
	db.mu.Lock()
	defer db.mu.Unlock()

	maxID := 0
	var ids []int
	switch seq {
	case core.SeqUniversities:
		ids = keys(db.t.universities)
	case core.SeqFaculties:
		ids = keys(db.t.faculties)
	case core.SeqDepartments:
		ids = keys(db.t.departments)
	case core.SeqExams:
		ids = keys(db.t.exams)
	case core.SeqExamResults:
		ids = keys(db.t.results)
	}
	for _, id := range ids {
		if id > maxID {
			maxID = id
		}
	}
	db.t.next[seq.Table] = maxID + 1
}

func keys[V any](m map[int]V) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
