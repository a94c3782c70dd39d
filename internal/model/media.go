package model

import (
	"strings"
	"time"
)

// Kinds of media.
const (
	KindImage = "image"
	KindVideo = "video"
)

// DefaultCategory is the category given to uploaded media.
const DefaultCategory = "Photography"

type (
	// A Comment is a message left on a media item.
	Comment struct {
		ID           string    `json:"id"            msgpack:"id"`
		Text         string    `json:"text"          msgpack:"text"`
		UserID       string    `json:"user_id"       msgpack:"user_id"`
		AuthorName   string    `json:"author_name"   msgpack:"author_name"`
		AuthorAvatar string    `json:"author_avatar" msgpack:"author_avatar,omitempty"`
		CreatedAt    time.Time `json:"created_at"    msgpack:"created_at"`
	}

	// A MediaRecord represents the storable form of a media item.
	// It holds either a remote URL or the raw payload, never an ephemeral handle.
	MediaRecord struct {
		Base `msgpack:",inline" storm:"inline"`

		Kind         string    `msgpack:"kind"`
		Name         string    `msgpack:"name"`
		Title        string    `msgpack:"title,omitempty"`
		Description  string    `msgpack:"description,omitempty"`
		Link         string    `msgpack:"link,omitempty"`
		Category     string    `msgpack:"category,omitempty"    storm:"index"`
		Likes        int       `msgpack:"likes"`
		Views        int       `msgpack:"views"`
		LikedByUser  bool      `msgpack:"liked_by_user"`
		Comments     []Comment `msgpack:"comments"`
		UserID       string    `msgpack:"user_id,omitempty"     storm:"index"`
		AuthorName   string    `msgpack:"author_name,omitempty"`
		AuthorAvatar string    `msgpack:"author_avatar,omitempty"`
		RemoteURL    string    `msgpack:"url,omitempty"`
		ContentType  string    `msgpack:"content_type,omitempty"`
		Payload      []byte    `msgpack:"payload,omitempty"`
	}

	// A MediaItem is the displayable form of a media item.
	// URL is usable directly by a rendering surface.
	MediaItem struct {
		ID           string     `json:"id"`
		Kind         string     `json:"type"`
		URL          string     `json:"url"`
		Name         string     `json:"name"`
		Title        string     `json:"title,omitempty"`
		Description  string     `json:"description,omitempty"`
		Link         string     `json:"link,omitempty"`
		Category     string     `json:"category,omitempty"`
		Likes        int        `json:"likes"`
		Views        int        `json:"views"`
		LikedByUser  bool       `json:"liked_by_user"`
		Comments     []Comment  `json:"comments"`
		UserID       string     `json:"user_id,omitempty"`
		AuthorName   string     `json:"author_name,omitempty"`
		AuthorAvatar string     `json:"author_avatar,omitempty"`
		ContentType  string     `json:"content_type,omitempty"`
		CreatedAt    *time.Time `json:"created_at,omitempty"`

		// Handle is the ephemeral blob handle backing URL, empty for remote items.
		Handle string `json:"-"`
	}

	// ItemDetails are the editable fields of a media item.
	// Nil fields are left untouched.
	ItemDetails struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Link        *string `json:"link"`
		Category    *string `json:"category"`
	}
)

// IsRemote returns true if the item is backed by a stable remote URL.
func (m *MediaItem) IsRemote() bool {
	return m.Handle == "" && IsRemoteURL(m.URL)
}

// Clone returns a deep copy of the item.
func (m *MediaItem) Clone() *MediaItem {
	c := *m
	c.Comments = append([]Comment(nil), m.Comments...)
	if m.CreatedAt != nil {
		t := *m.CreatedAt
		c.CreatedAt = &t
	}
	return &c
}

// ToggleLike flips the liked flag and adjusts the counter accordingly.
func (m *MediaItem) ToggleLike() {
	m.LikedByUser = !m.LikedByUser
	if m.LikedByUser {
		m.Likes++
		return
	}
	if m.Likes > 0 {
		m.Likes--
	}
}

// Apply updates the item with the given details.
func (m *MediaItem) Apply(d ItemDetails) {
	if d.Title != nil {
		m.Title = *d.Title
	}
	if d.Description != nil {
		m.Description = *d.Description
	}
	if d.Link != nil {
		m.Link = *d.Link
	}
	if d.Category != nil {
		m.Category = *d.Category
	}
}

// Record converts the displayable item into its storable form.
// The ephemeral handle is dropped, only stable remote URLs are kept.
func (m *MediaItem) Record(payload []byte) *MediaRecord {
	r := &MediaRecord{
		Base:         Base{ID: m.ID},
		Kind:         m.Kind,
		Name:         m.Name,
		Title:        m.Title,
		Description:  m.Description,
		Link:         m.Link,
		Category:     m.Category,
		Likes:        m.Likes,
		Views:        m.Views,
		LikedByUser:  m.LikedByUser,
		Comments:     append([]Comment(nil), m.Comments...),
		UserID:       m.UserID,
		AuthorName:   m.AuthorName,
		AuthorAvatar: m.AuthorAvatar,
		ContentType:  m.ContentType,
		Payload:      payload,
	}
	if m.Handle == "" && IsRemoteURL(m.URL) {
		r.RemoteURL = m.URL
	}
	if m.CreatedAt != nil {
		r.SetCreatedAt(*m.CreatedAt)
	}
	return r
}

// Source returns the tagged source of the record.
func (r *MediaRecord) Source() Source {
	if len(r.Payload) > 0 {
		return LocalSource(r.Payload, r.ContentType)
	}
	return RemoteSource(r.RemoteURL)
}

// Item converts the storable record into its displayable form using the given URL and handle.
func (r *MediaRecord) Item(url, handle string) *MediaItem {
	comments := r.Comments
	if comments == nil {
		comments = []Comment{}
	}

	return &MediaItem{
		ID:           r.ID,
		Kind:         r.Kind,
		URL:          url,
		Name:         r.Name,
		Title:        r.Title,
		Description:  r.Description,
		Link:         r.Link,
		Category:     r.Category,
		Likes:        r.Likes,
		Views:        r.Views,
		LikedByUser:  r.LikedByUser,
		Comments:     append([]Comment(nil), comments...),
		UserID:       r.UserID,
		AuthorName:   r.AuthorName,
		AuthorAvatar: r.AuthorAvatar,
		ContentType:  r.ContentType,
		CreatedAt:    r.CreatedAt,
		Handle:       handle,
	}
}

// IsRemoteURL returns true if the given URL is a stable http(s) URL.
func IsRemoteURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}
