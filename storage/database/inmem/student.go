package inmemdb

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) sorted(match func(student.Student) bool) []student.Student {
	out := make([]student.Student, 0)
	for _, s := range repo.db.t.students {
		if match(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (repo *studentRepository) GetStudent(_ context.Context, id int, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.t.students[id]; ok {
		return s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetStudentsByID(_ context.Context, ids []int, _ ...core.DBExecutor) (map[int]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	found := make(map[int]student.Student, len(ids))
	for _, id := range ids {
		if s, ok := repo.db.t.students[id]; ok {
			found[id] = s
		}
	}
	return found, nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, exists := repo.db.t.students[s.ID]; exists {
		return core.ErrPKCollision
	}
	repo.db.t.students[s.ID] = s
	return nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s student.Student, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, exists := repo.db.t.students[s.ID]; !exists {
		return student.ErrNotFound
	}
	repo.db.t.students[s.ID] = s
	return nil
}

func (repo *studentRepository) ResignAbsent(
	_ context.Context,
	keepIDs []int,
	resignGraduated bool,
	_ ...core.DBExecutor,
) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	keep := make(map[int]bool, len(keepIDs))
	for _, id := range keepIDs {
		keep[id] = true
	}
	var n int
	for id, s := range repo.db.t.students {
		if keep[id] || s.Status == student.StatusResigned {
			continue
		}
		if s.Status == student.StatusGraduated && !resignGraduated {
			continue
		}
		s.Status = student.StatusResigned
		repo.db.t.students[id] = s
		n++
	}
	return n, nil
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.QueryFilter, _ ...core.DBExecutor) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	kw := strings.ToLower(filter.Keyword)
	statuses := make(map[string]bool, len(filter.Statuses))
	for _, st := range filter.Statuses {
		statuses[st] = true
	}

	return repo.sorted(func(s student.Student) bool {
		if len(statuses) > 0 && !statuses[s.Status] {
			return false
		}
		if kw == "" {
			return true
		}
		for _, field := range []string{s.Name, s.NameKana.String, s.SchoolName, strconv.Itoa(s.ID)} {
			if strings.Contains(strings.ToLower(field), kw) {
				return true
			}
		}
		return false
	}), nil
}

func (repo *studentRepository) QueryActiveStudents(_ context.Context, _ ...core.DBExecutor) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.sorted(func(s student.Student) bool { return s.Status != student.StatusResigned }), nil
}
