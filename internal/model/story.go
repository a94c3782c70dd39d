package model

import (
	"time"
)

// StoryLifetime is the duration a story stays in the active tray.
const StoryLifetime = 24 * time.Hour

type (
	// A Story is an ephemeral post.
	Story struct {
		ID           string   `json:"id"                      codec:"id"`
		Title        string   `json:"title"                   codec:"title"`
		Excerpt      string   `json:"excerpt,omitempty"       codec:"excerpt,omitempty"`
		Date         string   `json:"date,omitempty"          codec:"date,omitempty"`
		Author       string   `json:"author"                  codec:"author"`
		AuthorAvatar string   `json:"author_avatar,omitempty" codec:"author_avatar,omitempty"`
		ImageURL     string   `json:"image_url,omitempty"     codec:"image_url,omitempty"`
		Link         string   `json:"link,omitempty"          codec:"link,omitempty"`
		Tags         []string `json:"tags,omitempty"          codec:"tags,omitempty"`
		UserID       string   `json:"user_id,omitempty"       codec:"user_id,omitempty"`
		Timestamp    int64    `json:"timestamp"               codec:"timestamp"` // Unix milliseconds
	}

	// A StoryPatch holds the editable fields of a story.
	StoryPatch struct {
		Title *string `json:"title"`
	}
)

// CreatedAt returns the story's creation time.
func (s *Story) CreatedAt() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// Expired returns true when the story is at least StoryLifetime old at now.
func (s *Story) Expired(now time.Time) bool {
	return now.Sub(s.CreatedAt()) >= StoryLifetime
}
