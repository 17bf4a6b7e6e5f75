package inmemdb

import (
	"context"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/academic"
)

type rolloverRepository struct {
	db *DB
}

var _ academic.Repository = (*rolloverRepository)(nil) // interface compliance check

func NewRolloverRepository(db *DB) *rolloverRepository {
	return &rolloverRepository{db: db}
}

func (repo *rolloverRepository) LatestRollover(_ context.Context, _ ...core.DBExecutor) (academic.Rollover, bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if repo.db.NoRolloverTable {
		return academic.Rollover{}, false, nil
	}
	var latest academic.Rollover
	found := false
	for _, r := range repo.db.t.rollovers {
		if !found || r.Year > latest.Year {
			latest, found = r, true
		}
	}
	return latest, found, nil
}

func (repo *rolloverRepository) SaveRollover(_ context.Context, r academic.Rollover, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.t.rollovers[r.Year] = r
	return nil
}
