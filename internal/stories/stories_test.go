package stories_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mdouchement/creativespace/internal/localstore"
	"github.com/mdouchement/creativespace/internal/model"
	"github.com/mdouchement/creativespace/internal/stories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *stories.Repository {
	slot, err := localstore.Open(filepath.Join(t.TempDir(), "slots.cbor"), 0)
	require.NoError(t, err)
	return stories.New(slot)
}

func story(id string, at time.Time) *model.Story {
	return &model.Story{ID: id, Title: id, Author: "Alice", Timestamp: at.UnixMilli()}
}

func TestRepository_LoadEmpty(t *testing.T) {
	repo := setup(t)

	list, err := repo.Load()
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)
}

func TestActive(t *testing.T) {
	now := time.Now()
	list := []*model.Story{
		story("old", now.Add(-25*time.Hour)),
		story("recent", now.Add(-23*time.Hour)),
		story("fresh", now.Add(-time.Minute)),
	}

	active := stories.Active(list, now)
	require.Len(t, active, 2)
	assert.Equal(t, "fresh", active[0].ID)
	assert.Equal(t, "recent", active[1].ID)
}

func TestRepository_ReadsNeverPurge(t *testing.T) {
	repo := setup(t)
	now := time.Now()

	// Written two hours ago, when nothing was expired yet.
	_, err := repo.Save([]*model.Story{
		story("old", now.Add(-25*time.Hour)),
		story("recent", now.Add(-23*time.Hour)),
	}, now.Add(-2*time.Hour))
	require.NoError(t, err)

	list, err := repo.Load()
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Len(t, stories.Active(list, now), 1)

	list, err = repo.Load()
	require.NoError(t, err)
	assert.Len(t, list, 2, "the expired story is still stored")
}

func TestRepository_SaveLifetimeBoundary(t *testing.T) {
	repo := setup(t)
	created := time.UnixMilli(time.Now().UnixMilli())

	kept, err := repo.Save([]*model.Story{story("edge", created)}, created.Add(model.StoryLifetime-time.Millisecond))
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	kept, err = repo.Save([]*model.Story{story("edge", created)}, created.Add(model.StoryLifetime))
	require.NoError(t, err)
	assert.Empty(t, kept, "a story is expired once exactly 24h old")

	list, err := repo.Load()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRepository_SavePurgesExpired(t *testing.T) {
	repo := setup(t)
	now := time.Now()

	kept, err := repo.Save([]*model.Story{
		story("old", now.Add(-25*time.Hour)),
		story("recent", now.Add(-23*time.Hour)),
	}, now)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "recent", kept[0].ID)

	list, err := repo.Load()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "recent", list[0].ID)
}

func TestRepository_Purge(t *testing.T) {
	repo := setup(t)
	now := time.Now()

	_, err := repo.Save([]*model.Story{
		story("old", now.Add(-25*time.Hour)),
		story("recent", now.Add(-23*time.Hour)),
	}, now.Add(-2*time.Hour))
	require.NoError(t, err)

	n, err := repo.Purge(now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.Purge(now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
