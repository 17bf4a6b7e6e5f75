// Package master resolves university, faculty and department names to ids,
// creating master rows on first sight.
package master

import (
	"context"

	"github.com/pkg/errors"

	"github.com/morris0411/ManavisGradesApp/core"
)

// Placeholder is stored for a missing faculty or department (recruitment category) name.
const Placeholder = "-"

type Repository interface {
	FindUniversity(ctx context.Context, name string, exec ...core.DBExecutor) (id int, found bool, err error)
	CreateUniversity(ctx context.Context, name string, exec ...core.DBExecutor) (int, error)
	FindFaculty(ctx context.Context, universityID int, name string, exec ...core.DBExecutor) (id int, found bool, err error)
	CreateFaculty(ctx context.Context, universityID int, name string, exec ...core.DBExecutor) (int, error)
	FindDepartment(ctx context.Context, facultyID int, name string, exec ...core.DBExecutor) (id int, found bool, err error)
	CreateDepartment(ctx context.Context, facultyID int, name string, exec ...core.DBExecutor) (int, error)
	// RepairSequence moves the id sequence of seq past the largest stored id.
	RepairSequence(ctx context.Context, seq core.Sequence, exec ...core.DBExecutor) error
}

type facultyKey struct {
	universityID int
	name         string
}

type departmentKey struct {
	facultyID int
	name      string
}

// Resolver caches name -> id for the lifetime of one import run.
// It is not safe for concurrent use.
type Resolver struct {
	repo         Repository
	exec         core.DBExecutor
	universities map[string]int
	faculties    map[facultyKey]int
	departments  map[departmentKey]int
	created      int
}

// NewResolver returns a resolver working through exec (usually the import transaction).
func NewResolver(repo Repository, exec core.DBExecutor) *Resolver {
	return &Resolver{
		repo:         repo,
		exec:         exec,
		universities: make(map[string]int),
		faculties:    make(map[facultyKey]int),
		departments:  make(map[departmentKey]int),
	}
}

// Created returns how many master rows this resolver inserted.
func (r *Resolver) Created() int { return r.created }

func (r *Resolver) ResolveUniversity(ctx context.Context, name string) (int, error) {
	name = core.StripSpaces(name)
	if id, ok := r.universities[name]; ok {
		return id, nil
	}
	id, err := r.findOrCreate(ctx, core.SeqUniversities,
		func() (int, bool, error) { return r.repo.FindUniversity(ctx, name, r.exec) },
		func() (int, error) { return r.repo.CreateUniversity(ctx, name, r.exec) },
	)
	if err != nil {
		return 0, errors.Wrapf(err, "resolving university %q", name)
	}
	r.universities[name] = id
	return id, nil
}

func (r *Resolver) ResolveFaculty(ctx context.Context, universityID int, name string) (int, error) {
	key := facultyKey{universityID: universityID, name: core.StripSpaces(name)}
	if id, ok := r.faculties[key]; ok {
		return id, nil
	}
	id, err := r.findOrCreate(ctx, core.SeqFaculties,
		func() (int, bool, error) { return r.repo.FindFaculty(ctx, key.universityID, key.name, r.exec) },
		func() (int, error) { return r.repo.CreateFaculty(ctx, key.universityID, key.name, r.exec) },
	)
	if err != nil {
		return 0, errors.Wrapf(err, "resolving faculty %q", key.name)
	}
	r.faculties[key] = id
	return id, nil
}

func (r *Resolver) ResolveDepartment(ctx context.Context, facultyID int, category string) (int, error) {
	key := departmentKey{facultyID: facultyID, name: core.StripSpaces(category)}
	if key.name == "" {
		key.name = Placeholder
	}
	if id, ok := r.departments[key]; ok {
		return id, nil
	}
	id, err := r.findOrCreate(ctx, core.SeqDepartments,
		func() (int, bool, error) { return r.repo.FindDepartment(ctx, key.facultyID, key.name, r.exec) },
		func() (int, error) { return r.repo.CreateDepartment(ctx, key.facultyID, key.name, r.exec) },
	)
	if err != nil {
		return 0, errors.Wrapf(err, "resolving department %q", key.name)
	}
	r.departments[key] = id
	return id, nil
}

// Resolve walks the whole university > faculty > department chain for one choice.
// An empty faculty name falls back to the placeholder.
func (r *Resolver) Resolve(ctx context.Context, university, faculty, department string) (int, error) {
	uniID, err := r.ResolveUniversity(ctx, university)
	if err != nil {
		return 0, err
	}
	if core.StripSpaces(faculty) == "" {
		faculty = Placeholder
	}
	facID, err := r.ResolveFaculty(ctx, uniID, faculty)
	if err != nil {
		return 0, err
	}
	return r.ResolveDepartment(ctx, facID, department)
}

func (r *Resolver) findOrCreate(
	ctx context.Context,
	seq core.Sequence,
	find func() (int, bool, error),
	create func() (int, error),
) (int, error) {
	var id int
	err := core.RetryAfterRepair(
		func() error {
			found, ok, err := find()
			if err != nil {
				return err
			}
			if ok {
				id = found
				return nil
			}
			if id, err = create(); err != nil {
				return err
			}
			r.created++
			return nil
		},
		func() error { return r.repo.RepairSequence(ctx, seq, r.exec) },
	)
	return id, err
}
