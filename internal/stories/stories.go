// Package stories persists the flat list of ephemeral stories in the local store.
package stories

import (
	"sort"
	"time"

	"github.com/mdouchement/creativespace/internal/localstore"
	"github.com/mdouchement/creativespace/internal/model"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// A Repository reads and writes the stories slot.
// Reads return the stored list as is, expired stories are only purged on write.
type Repository struct {
	slot *localstore.Store
}

// New returns a new Repository backed by the given slot store.
func New(slot *localstore.Store) *Repository {
	return &Repository{slot: slot}
}

// Load returns all the stored stories, including the expired ones.
func (r *Repository) Load() ([]*model.Story, error) {
	var stories []*model.Story
	err := r.slot.Get(localstore.KeyStories, &stories)
	if err != nil {
		if errors.Is(err, localstore.ErrNotFound) {
			return []*model.Story{}, nil
		}
		return nil, errors.Wrap(err, "could not load stories")
	}
	return stories, nil
}

// Save writes the given list without the stories expired at now.
// It returns the written list.
func (r *Repository) Save(stories []*model.Story, now time.Time) ([]*model.Story, error) {
	kept := lo.Reject(stories, func(s *model.Story, _ int) bool {
		return s.Expired(now)
	})

	if err := r.slot.Set(localstore.KeyStories, kept); err != nil {
		return nil, err
	}
	return kept, nil
}

// Purge removes the stories expired at now from the slot.
// It returns the number of removed stories.
func (r *Repository) Purge(now time.Time) (int, error) {
	stories, err := r.Load()
	if err != nil {
		return 0, err
	}

	kept, err := r.Save(stories, now)
	if err != nil {
		return 0, err
	}
	return len(stories) - len(kept), nil
}

// Active returns the stories younger than model.StoryLifetime at now, newest first.
func Active(stories []*model.Story, now time.Time) []*model.Story {
	active := lo.Filter(stories, func(s *model.Story, _ int) bool {
		return !s.Expired(now)
	})

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Timestamp > active[j].Timestamp
	})
	return active
}
