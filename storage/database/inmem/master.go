package inmemdb

import (
	"context"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/master"
)

type masterRepository struct {
	db *DB
}

var _ master.Repository = (*masterRepository)(nil) // interface compliance check

func NewMasterRepository(db *DB) *masterRepository {
	return &masterRepository{db: db}
}

func (repo *masterRepository) FindUniversity(_ context.Context, name string, _ ...core.DBExecutor) (int, bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for id, u := range repo.db.t.universities {
		if u.Name == name {
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (repo *masterRepository) CreateUniversity(_ context.Context, name string, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	id := repo.db.nextID(core.SeqUniversities.Table)
	if _, taken := repo.db.t.universities[id]; taken {
		return 0, core.ErrPKCollision
	}
	repo.db.t.universities[id] = University{ID: id, Name: name}
	return id, nil
}

func (repo *masterRepository) FindFaculty(_ context.Context, universityID int, name string, _ ...core.DBExecutor) (int, bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for id, f := range repo.db.t.faculties {
		if f.UniversityID == universityID && f.Name == name {
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (repo *masterRepository) CreateFaculty(_ context.Context, universityID int, name string, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	id := repo.db.nextID(core.SeqFaculties.Table)
	if _, taken := repo.db.t.faculties[id]; taken {
		return 0, core.ErrPKCollision
	}
	repo.db.t.faculties[id] = Faculty{ID: id, UniversityID: universityID, Name: name}
	return id, nil
}

func (repo *masterRepository) FindDepartment(_ context.Context, facultyID int, name string, _ ...core.DBExecutor) (int, bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for id, d := range repo.db.t.departments {
		if d.FacultyID == facultyID && d.Name == name {
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (repo *masterRepository) CreateDepartment(_ context.Context, facultyID int, name string, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	id := repo.db.nextID(core.SeqDepartments.Table)
	if _, taken := repo.db.t.departments[id]; taken {
		return 0, core.ErrPKCollision
	}
	repo.db.t.departments[id] = Department{ID: id, FacultyID: facultyID, Name: name}
	return id, nil
}

func (repo *masterRepository) RepairSequence(_ context.Context, seq core.Sequence, _ ...core.DBExecutor) error {
	repo.db.repairSequence(seq)
	return nil
}

// SeedUniversity stores a university under a chosen id without touching the sequence,
// as a manual data load would.
func (db *DB) SeedUniversity(id int, name string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.t.universities[id] = University{ID: id, Name: name}
}

// Universities returns a copy of the university table.
func (db *DB) Universities() map[int]University {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make(map[int]University, len(db.t.universities))
	for k, v := range db.t.universities {
		out[k] = v
	}
	return out
}
