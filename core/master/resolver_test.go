package master_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/master"
	"github.com/morris0411/ManavisGradesApp/storage/database/inmem"
)

// countingRepo counts lookups and can force collisions.
type countingRepo struct {
	master.Repository
	finds      int
	collisions int
	repairs    int
}

func (r *countingRepo) FindUniversity(ctx context.Context, name string, exec ...core.DBExecutor) (int, bool, error) {
	r.finds++
	return r.Repository.FindUniversity(ctx, name, exec...)
}

func (r *countingRepo) CreateUniversity(ctx context.Context, name string, exec ...core.DBExecutor) (int, error) {
	if r.collisions > 0 {
		r.collisions--
		return 0, errors.Wrap(core.ErrPKCollision, "inserting university")
	}
	return r.Repository.CreateUniversity(ctx, name, exec...)
}

func (r *countingRepo) RepairSequence(ctx context.Context, seq core.Sequence, exec ...core.DBExecutor) error {
	r.repairs++
	return r.Repository.RepairSequence(ctx, seq, exec...)
}

func TestResolver_cache(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{Repository: inmemdb.NewMasterRepository(inmemdb.Open())}
	res := master.NewResolver(repo, nil)

	id1, err := res.ResolveUniversity(ctx, "東京　大学")
	require.NoError(t, err)
	id2, err := res.ResolveUniversity(ctx, " 東京大学 ")
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, repo.finds, "second lookup is served from the cache")
	assert.Equal(t, 1, res.Created())

	// a fresh resolver finds the stored row instead of creating a new one
	other := master.NewResolver(repo, nil)
	id3, err := other.ResolveUniversity(ctx, "東京大学")
	require.NoError(t, err)
	assert.Equal(t, id1, id3)
	assert.Equal(t, 0, other.Created())
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	repo := inmemdb.NewMasterRepository(inmemdb.Open())
	res := master.NewResolver(repo, nil)

	dep1, err := res.Resolve(ctx, "北海道大学", "", "")
	require.NoError(t, err)
	dep2, err := res.Resolve(ctx, "北海道大学", master.Placeholder, master.Placeholder)
	require.NoError(t, err)
	dep3, err := res.Resolve(ctx, "北海道大学", "医学部", "")
	require.NoError(t, err)
	dep4, err := res.Resolve(ctx, "札幌医科大学", "医学部", "")
	require.NoError(t, err)

	assert.Equal(t, dep1, dep2, "empty names fall back to the placeholder")
	assert.NotEqual(t, dep1, dep3)
	assert.NotEqual(t, dep3, dep4, "faculties are scoped to their university")
	assert.Equal(t, 8, res.Created())
}

func TestResolver_sequenceDrift(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.Open()
	db.SeedUniversity(1, "東京大学")
	db.SeedUniversity(2, "京都大学")
	repo := &countingRepo{Repository: inmemdb.NewMasterRepository(db)}

	id, err := master.NewResolver(repo, nil).ResolveUniversity(ctx, "大阪大学")
	require.NoError(t, err)
	assert.Equal(t, 3, id)
	assert.Equal(t, 1, repo.repairs)
	assert.Len(t, db.Universities(), 3)
}

func TestResolver_secondCollisionIsFatal(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{Repository: inmemdb.NewMasterRepository(inmemdb.Open()), collisions: 2}

	_, err := master.NewResolver(repo, nil).ResolveUniversity(ctx, "名古屋大学")
	require.Error(t, err)
	assert.Equal(t, core.ErrPKCollision, errors.Cause(err))
	assert.Equal(t, 1, repo.repairs)
}
