package app

import (
	"strings"

	"github.com/gofrs/uuid"
	"github.com/mdouchement/creativespace/internal/apperror"
	"github.com/mdouchement/creativespace/internal/localstore"
	"github.com/mdouchement/creativespace/internal/model"
	"github.com/mdouchement/creativespace/internal/stories"
	"github.com/samber/lo"
)

// A StoryInput holds the fields of a new story.
type StoryInput struct {
	Title    string   `json:"title"`
	Excerpt  string   `json:"excerpt"`
	ImageURL string   `json:"image_url"`
	Link     string   `json:"link"`
	Tags     []string `json:"tags"`
}

// PostStory publishes a story from the signed in user.
// The whole story list is rewritten, expired stories are dropped on the way.
func (a *App) PostStory(in StoryInput) (_ *model.Story, err error) {
	defer a.report(&err)

	in.Title = strings.TrimSpace(in.Title)

	a.mu.Lock()
	defer a.mu.Unlock()

	user, err := a.requireSession("Please sign in to post a story.")
	if err != nil {
		return nil, err
	}
	if in.Title == "" && in.ImageURL == "" {
		return nil, apperror.New(apperror.ValidationError, "A story needs a caption or an image.")
	}

	now := a.now()
	story := &model.Story{
		ID:           uuid.Must(uuid.NewV4()).String(),
		Title:        in.Title,
		Excerpt:      in.Excerpt,
		Date:         now.Format("Jan 2, 2006"),
		Author:       user.Name,
		AuthorAvatar: user.Avatar,
		ImageURL:     in.ImageURL,
		Link:         in.Link,
		Tags:         in.Tags,
		UserID:       user.Email,
		Timestamp:    now.UnixMilli(),
	}

	previous := a.storyList
	a.storyList = append([]*model.Story{story}, a.storyList...)
	if err = a.saveStories(); err != nil {
		a.storyList = previous
		return nil, err
	}

	a.notify(NotifySuccess, "Story posted")
	return copyStory(story), nil
}

// UpdateStory edits the caption of a story owned by the signed in user.
func (a *App) UpdateStory(id string, patch model.StoryPatch) (_ *model.Story, err error) {
	defer a.report(&err)

	a.mu.Lock()
	defer a.mu.Unlock()

	story, err := a.ownedStory(id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, apperror.New(apperror.ValidationError, "title is required.")
		}
		previous := story.Title
		story.Title = title
		if err = a.saveStories(); err != nil {
			story.Title = previous
			return nil, err
		}
	}

	return copyStory(story), nil
}

// DeleteStory removes a story owned by the signed in user.
func (a *App) DeleteStory(id string) (err error) {
	defer a.report(&err)

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err = a.ownedStory(id); err != nil {
		return err
	}

	previous := a.storyList
	a.storyList = lo.Reject(a.storyList, func(s *model.Story, _ int) bool {
		return s.ID == id
	})
	if err = a.saveStories(); err != nil {
		a.storyList = previous
		return err
	}

	a.notify(NotifySuccess, "Story deleted")
	return nil
}

// ActiveStories returns the stories younger than a day, newest first.
func (a *App) ActiveStories() []*model.Story {
	a.mu.Lock()
	defer a.mu.Unlock()

	return lo.Map(stories.Active(a.storyList, a.now()), func(s *model.Story, _ int) *model.Story {
		return copyStory(s)
	})
}

// MarkStoryWatched remembers that the story has been watched.
func (a *App) MarkStoryWatched(id string) (err error) {
	defer a.report(&err)

	a.mu.Lock()
	defer a.mu.Unlock()

	if !lo.ContainsBy(a.storyList, func(s *model.Story) bool { return s.ID == id }) {
		return apperror.New(apperror.NotFound, "Story not found")
	}
	if lo.Contains(a.session.WatchedStories, id) {
		return nil
	}

	a.session.WatchedStories = append(a.session.WatchedStories, id)
	if err := a.slot.Set(localstore.KeyWatchedStories, a.session.WatchedStories); err != nil {
		a.fail(err, "could not save watched stories")
	}
	return nil
}

// PurgeStories drops the expired stories from storage.
// It returns the number of dropped stories.
func (a *App) PurgeStories() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	before := len(a.storyList)
	if err := a.saveStories(); err != nil {
		return 0, err
	}

	// Watched marks of purged stories are useless.
	watched := lo.Filter(a.session.WatchedStories, func(id string, _ int) bool {
		return lo.ContainsBy(a.storyList, func(s *model.Story) bool { return s.ID == id })
	})
	if len(watched) != len(a.session.WatchedStories) {
		a.session.WatchedStories = watched
		if err := a.slot.Set(localstore.KeyWatchedStories, watched); err != nil {
			a.fail(err, "could not save watched stories")
		}
	}

	return before - len(a.storyList), nil
}

// saveStories rewrites the whole list. Must be called with the lock held.
func (a *App) saveStories() error {
	kept, err := a.stories.Save(a.storyList, a.now())
	if err != nil {
		return err
	}
	a.storyList = kept
	return nil
}

func (a *App) ownedStory(id string) (*model.Story, error) {
	user, err := a.requireSession("Please sign in to manage your stories.")
	if err != nil {
		return nil, err
	}

	story, ok := lo.Find(a.storyList, func(s *model.Story) bool { return s.ID == id })
	if !ok {
		return nil, apperror.New(apperror.NotFound, "Story not found")
	}
	if story.UserID != user.Email {
		return nil, apperror.New(apperror.Forbidden, "You can only edit your own stories.")
	}
	return story, nil
}

func copyStory(s *model.Story) *model.Story {
	c := *s
	c.Tags = append([]string(nil), s.Tags...)
	return &c
}
