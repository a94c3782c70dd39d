package app

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gofrs/uuid"
	"github.com/mdouchement/creativespace/internal/apperror"
	"github.com/mdouchement/creativespace/internal/blob"
	"github.com/mdouchement/creativespace/internal/model"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

var idCharset = []rune("0123456789abcdefghijklmnopqrstuvwxyz")

// A File is an uploaded file.
type File struct {
	Name        string
	ContentType string
	Payload     []byte
}

// Upload adds the given files to the gallery.
// The items are displayed immediately and persisted behind.
func (a *App) Upload(files ...File) (_ []*model.MediaItem, err error) {
	defer a.report(&err)

	for _, f := range files {
		if len(f.Payload) == 0 {
			return nil, apperror.Newf(apperror.ValidationError, "%s is empty.", f.Name)
		}
		if !strings.HasPrefix(f.ContentType, "image/") && !strings.HasPrefix(f.ContentType, "video/") {
			return nil, apperror.Newf(apperror.ValidationError, "%s is not an image nor a video.", f.Name)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now().UTC()
	owner := a.session.User
	created := make([]*model.MediaItem, 0, len(files))

	for _, f := range files {
		h := a.blobs.Mint(f.Payload, f.ContentType)

		item := &model.MediaItem{
			ID:          a.newItemID(),
			Kind:        model.KindImage,
			URL:         h.URL(),
			Name:        f.Name,
			Title:       TitleFromFilename(f.Name),
			Category:    model.DefaultCategory,
			Comments:    []model.Comment{},
			ContentType: f.ContentType,
			CreatedAt:   &now,
			Handle:      string(h),
		}
		if strings.HasPrefix(f.ContentType, "video") {
			item.Kind = model.KindVideo
		}
		if owner != nil {
			item.UserID = owner.Email
			item.AuthorName = owner.Name
			item.AuthorAvatar = owner.Avatar
		}

		a.items = append(a.items, item)
		created = append(created, item.Clone())

		snapshot := item.Clone()
		a.writer.Enqueue("upload", func() error {
			payload, _, err := a.blobs.Fetch(h)
			if err != nil {
				// The item stays displayed for the session.
				a.log.WithField("id", snapshot.ID).Warnf("could not read uploaded payload: %s", err)
				return nil
			}
			return a.store.SaveMediaItem(snapshot, payload)
		})
	}

	a.notify(NotifySuccess, uploadMessage(len(created)))
	return created, nil
}

// ToggleLike flips the liked flag of the item and adjusts its counter.
func (a *App) ToggleLike(id string) (_ *model.MediaItem, err error) {
	defer a.report(&err)

	a.mu.Lock()
	defer a.mu.Unlock()

	_, item, err := a.find(id)
	if err != nil {
		return nil, err
	}

	item.ToggleLike()
	a.persist("like", item)
	return item.Clone(), nil
}

// IncrementView counts one more view of the item.
func (a *App) IncrementView(id string) (_ *model.MediaItem, err error) {
	defer a.report(&err)

	a.mu.Lock()
	defer a.mu.Unlock()

	_, item, err := a.find(id)
	if err != nil {
		return nil, err
	}

	a.view(item)
	return item.Clone(), nil
}

func (a *App) view(item *model.MediaItem) {
	item.Views++
	a.persist("view", item)
}

// UpdateItemDetails edits the title, description, link or category of the item.
func (a *App) UpdateItemDetails(id string, details model.ItemDetails) (_ *model.MediaItem, err error) {
	defer a.report(&err)

	a.mu.Lock()
	defer a.mu.Unlock()

	_, item, err := a.find(id)
	if err != nil {
		return nil, err
	}
	if err = a.authorize(item.UserID); err != nil {
		return nil, err
	}

	item.Apply(details)
	a.persist("details", item)
	a.notify(NotifySuccess, "Media details updated")
	return item.Clone(), nil
}

// DeleteItem removes the item from the gallery and releases its handle right away.
func (a *App) DeleteItem(id string) (err error) {
	defer a.report(&err)

	a.mu.Lock()
	defer a.mu.Unlock()

	i, item, err := a.find(id)
	if err != nil {
		return err
	}
	if err = a.authorize(item.UserID); err != nil {
		return err
	}

	a.items = append(a.items[:i], a.items[i+1:]...)
	a.releaseItems(item)
	a.fixViewer(i)

	a.writer.Enqueue("delete", func() error {
		return a.store.DeleteMediaItem(id)
	})
	a.notify(NotifySuccess, "Media item deleted")
	return nil
}

// ClearMyItems removes every item owned by the signed in user.
// It returns the number of removed items.
func (a *App) ClearMyItems() (_ int, err error) {
	defer a.report(&err)

	a.mu.Lock()
	defer a.mu.Unlock()

	user, err := a.requireSession("Please sign in to manage your media.")
	if err != nil {
		return 0, err
	}

	mine, others := lo.FilterReject(a.items, func(item *model.MediaItem, _ int) bool {
		return item.UserID == user.Email
	})
	a.items = others
	a.releaseItems(mine...)
	a.viewer = viewer{}

	email := user.Email
	a.writer.Enqueue("clear", func() error {
		ids, err := a.store.DeleteAllMediaForUser(email)
		a.log.WithFields(logrus.Fields{"user": email, "count": len(ids)}).Info("media cleared")
		return err
	})
	a.notify(NotifySuccess, "Your gallery has been cleared")
	return len(mine), nil
}

// SaveToCollection copies the item into the signed in user's gallery.
func (a *App) SaveToCollection(id string) (_ *model.MediaItem, err error) {
	defer a.report(&err)

	a.mu.Lock()
	defer a.mu.Unlock()

	user, err := a.requireSession("Please sign in to save media.")
	if err != nil {
		return nil, err
	}

	_, item, err := a.find(id)
	if err != nil {
		return nil, err
	}

	now := a.now().UTC()
	saved := item.Clone()
	saved.ID = a.newItemID()
	saved.Likes = 0
	saved.Views = 0
	saved.LikedByUser = false
	saved.Comments = []model.Comment{}
	saved.UserID = user.Email
	saved.AuthorName = user.Name
	saved.AuthorAvatar = user.Avatar
	saved.CreatedAt = &now
	saved.Handle = ""

	var payload []byte
	if item.Handle != "" {
		p, contentType, err := a.blobs.Fetch(blob.Handle(item.Handle))
		if err != nil {
			return nil, apperror.New(apperror.NotFound, "Media not found")
		}
		payload = append([]byte(nil), p...)

		h := a.blobs.Mint(payload, contentType)
		saved.Handle = string(h)
		saved.URL = h.URL()
	}

	a.items = append(a.items, saved)

	snapshot := saved.Clone()
	a.writer.Enqueue("save", func() error {
		return a.store.SaveMediaItem(snapshot, payload)
	})
	a.notify(NotifySuccess, "Saved to your collection")
	return saved.Clone(), nil
}

///// Comments
////
//

// AddComment appends a comment from the signed in user to the item.
func (a *App) AddComment(id, text string) (_ *model.Comment, err error) {
	defer a.report(&err)

	text = strings.TrimSpace(text)

	a.mu.Lock()
	defer a.mu.Unlock()

	user, err := a.requireSession("Please sign in to comment.")
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, apperror.New(apperror.ValidationError, "text is required.")
	}

	_, item, err := a.find(id)
	if err != nil {
		return nil, err
	}

	comment := model.Comment{
		ID:           uuid.Must(uuid.NewV4()).String(),
		Text:         text,
		UserID:       user.Email,
		AuthorName:   user.Name,
		AuthorAvatar: user.Avatar,
		CreatedAt:    a.now().UTC(),
	}
	item.Comments = append(item.Comments, comment)

	a.persist("comment", item)
	return &comment, nil
}

// DeleteComment removes a comment. Only its author and the item's owner can remove it.
func (a *App) DeleteComment(id, commentID string) (err error) {
	defer a.report(&err)

	a.mu.Lock()
	defer a.mu.Unlock()

	user, err := a.requireSession("Please sign in to manage comments.")
	if err != nil {
		return err
	}

	_, item, err := a.find(id)
	if err != nil {
		return err
	}

	comment, i, ok := lo.FindIndexOf(item.Comments, func(c model.Comment) bool {
		return c.ID == commentID
	})
	if !ok {
		return apperror.New(apperror.NotFound, "Comment not found")
	}
	if comment.UserID != user.Email && item.UserID != user.Email {
		return apperror.New(apperror.Forbidden, "You can only delete your own comments.")
	}

	item.Comments = append(item.Comments[:i:i], item.Comments[i+1:]...)
	a.persist("uncomment", item)
	return nil
}

///// Viewer
////
//

// OpenItem opens the item at the given index in the viewer and counts a view.
func (a *App) OpenItem(index int) (_ *model.MediaItem, err error) {
	defer a.report(&err)

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.openItem(index)
}

func (a *App) openItem(index int) (*model.MediaItem, error) {
	if index < 0 || index >= len(a.items) {
		return nil, apperror.New(apperror.NotFound, "Media not found")
	}

	a.viewer = viewer{open: true, index: index}
	item := a.items[index]
	a.view(item)
	return item.Clone(), nil
}

// Next moves the viewer to the next item. Views are counted only when the viewer actually moves.
func (a *App) Next() (*model.MediaItem, error) {
	return a.move(1)
}

// Prev moves the viewer to the previous item. Views are counted only when the viewer actually moves.
func (a *App) Prev() (*model.MediaItem, error) {
	return a.move(-1)
}

func (a *App) move(delta int) (_ *model.MediaItem, err error) {
	defer a.report(&err)

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.viewer.open || len(a.items) == 0 {
		return nil, apperror.New(apperror.NotFound, "Viewer is closed")
	}

	index := lo.Clamp(a.viewer.index+delta, 0, len(a.items)-1)
	if index == a.viewer.index {
		return a.items[index].Clone(), nil
	}
	return a.openItem(index)
}

// CloseViewer closes the viewer.
func (a *App) CloseViewer() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.viewer.open = false
}

// Viewer returns the item displayed in the viewer, nil when closed.
func (a *App) Viewer() *model.MediaItem {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.viewer.open || a.viewer.index >= len(a.items) {
		return nil
	}
	return a.items[a.viewer.index].Clone()
}

func (a *App) fixViewer(removed int) {
	switch {
	case len(a.items) == 0:
		a.viewer = viewer{}
	case removed < a.viewer.index:
		a.viewer.index--
	case a.viewer.index >= len(a.items):
		a.viewer.index = len(a.items) - 1
	}
}

///// Helpers
////
//

// authorize checks the signed in user can edit a record owned by owner.
// Records without owner are editable by anyone.
func (a *App) authorize(owner string) error {
	if owner == "" {
		return nil
	}
	if a.currentEmail() != owner {
		return apperror.New(apperror.Forbidden, "You can only edit your own media.")
	}
	return nil
}

func (a *App) newItemID() string {
	for {
		id := lo.RandomString(9, idCharset)
		if _, _, err := a.find(id); err != nil {
			return id
		}
	}
}

// TitleFromFilename derives a display title from an uploaded file name.
// The extension is dropped, the first letter is upper-cased, dashes and underscores become spaces.
func TitleFromFilename(name string) string {
	if ext := filepath.Ext(name); ext != "" && ext != "." {
		name = strings.TrimSuffix(name, ext)
	}
	if name == "" {
		return ""
	}

	first, size := utf8.DecodeRuneInString(name)
	rest := strings.NewReplacer("-", " ", "_", " ").Replace(name[size:])
	return string(unicode.ToUpper(first)) + rest
}

func uploadMessage(n int) string {
	if n == 1 {
		return "1 file uploaded"
	}
	return fmt.Sprintf("%d files uploaded", n)
}
