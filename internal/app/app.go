// Package app holds the in-memory state of a Creative Space session and mediates every mutation.
//
// Mutations are applied to the in-memory state first, then persisted behind
// through a single Writer so writes of the same record land in the order they were issued.
package app

import (
	"sync"
	"time"

	"github.com/mdouchement/creativespace/internal/apperror"
	"github.com/mdouchement/creativespace/internal/blob"
	"github.com/mdouchement/creativespace/internal/localstore"
	"github.com/mdouchement/creativespace/internal/model"
	"github.com/mdouchement/creativespace/internal/stories"
	"github.com/mdouchement/creativespace/internal/store"
	"github.com/mdouchement/creativespace/pkg/libcs"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// Size limits of user-provided images.
const (
	MaxAvatarSize      = 2 << 20
	MaxHeaderPhotoSize = 10 << 20
)

type (
	// Options are used to build an App.
	Options struct {
		Store *store.Store
		// Blobs must be the scope given to Store.
		Blobs *blob.Scope
		Slot  *localstore.Store
		// Auth is the remote authentication endpoint, local accounts are used when nil.
		Auth     libcs.Client
		Logger   logrus.FieldLogger
		Notifier Notifier
		// Clock defaults to time.Now.
		Clock func() time.Time
	}

	// An App is the application state controller.
	App struct {
		mu       sync.Mutex
		store    *store.Store
		blobs    *blob.Scope
		slot     *localstore.Store
		stories  *stories.Repository
		auth     libcs.Client
		log      logrus.FieldLogger
		notifier Notifier
		writer   *Writer
		now      func() time.Time

		items       []*model.MediaItem
		storyList   []*model.Story
		header      *model.HeaderConfig
		headerPhoto blob.Handle
		session     model.Session
		viewer      viewer
	}

	viewer struct {
		open  bool
		index int
	}

	// A Header is the displayable site branding.
	Header struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		PhotoURL    string `json:"photo_url,omitempty"`
	}
)

// New returns a new App. Load must be called before use.
func New(opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier(opts.Logger)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	a := &App{
		store:    opts.Store,
		blobs:    opts.Blobs,
		slot:     opts.Slot,
		stories:  stories.New(opts.Slot),
		auth:     opts.Auth,
		log:      opts.Logger,
		notifier: opts.Notifier,
		now:      opts.Clock,
		items:    []*model.MediaItem{},
		header:   model.DefaultHeaderConfig(),
	}
	a.writer = NewWriter(opts.Logger, func(name string, err error) {
		a.notifier.Notify(Notification{Kind: NotifyError, Message: apperror.Message(err)})
	})

	return a
}

// Load reads the whole state from the stores.
// Failures are reported and leave the corresponding part of the state empty.
func (a *App) Load() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error

	// Config
	header, err := a.store.LoadConfig()
	if err != nil {
		errs = append(errs, a.fail(err, "could not load config"))
	}
	if header == nil {
		header = model.DefaultHeaderConfig()
	}
	a.setHeader(header)

	// Media
	a.releaseItems(a.items...)
	a.items = []*model.MediaItem{}
	a.viewer = viewer{}
	items, err := a.store.LoadAllMediaItems()
	if err != nil {
		errs = append(errs, a.fail(err, "could not load media"))
	} else {
		a.items = items
	}

	// Stories
	a.storyList, err = a.stories.Load()
	if err != nil {
		errs = append(errs, a.fail(err, "could not load stories"))
		a.storyList = []*model.Story{}
	}

	// Session
	a.session = model.Session{WatchedStories: []string{}}
	var user model.User
	switch err = a.slot.Get(localstore.KeyCurrentUser, &user); {
	case err == nil:
		a.session.User = &user
	case !errors.Is(err, localstore.ErrNotFound):
		errs = append(errs, a.fail(err, "could not load session"))
	}

	var watched []string
	switch err = a.slot.Get(localstore.KeyWatchedStories, &watched); {
	case err == nil:
		a.session.WatchedStories = watched
	case !errors.Is(err, localstore.ErrNotFound):
		errs = append(errs, a.fail(err, "could not load watched stories"))
	}

	a.log.WithFields(logrus.Fields{
		"items":   len(a.items),
		"stories": len(a.storyList),
	}).Info("state loaded")

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Flush waits for every pending save-behind write.
func (a *App) Flush() {
	a.writer.Flush()
}

// Close performs the pending writes and releases every handle.
func (a *App) Close() error {
	a.writer.Close()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.releaseItems(a.items...)
	if a.headerPhoto != "" {
		a.blobs.Release(a.headerPhoto)
		a.headerPhoto = ""
	}
	return a.blobs.Close()
}

///// Snapshots
////
//

// Items returns a copy of the displayed media items.
func (a *App) Items() []*model.MediaItem {
	a.mu.Lock()
	defer a.mu.Unlock()

	return lo.Map(a.items, func(item *model.MediaItem, _ int) *model.MediaItem {
		return item.Clone()
	})
}

// Item returns a copy of the media item for the given id.
func (a *App) Item(id string) (*model.MediaItem, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, item, err := a.find(id)
	if err != nil {
		return nil, err
	}
	return item.Clone(), nil
}

// Session returns a copy of the current session.
func (a *App) Session() model.Session {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := model.Session{WatchedStories: append([]string{}, a.session.WatchedStories...)}
	if a.session.User != nil {
		s.User = a.session.User.Safe()
	}
	return s
}

// CurrentUser returns the signed in user or nil.
func (a *App) CurrentUser() *model.User {
	return a.Session().User
}

// Header returns the displayable site branding.
func (a *App) Header() Header {
	a.mu.Lock()
	defer a.mu.Unlock()

	h := Header{
		Title:       a.header.Title,
		Description: a.header.Description,
		PhotoURL:    a.header.Photo.Remote,
	}
	if a.headerPhoto != "" {
		h.PhotoURL = a.headerPhoto.URL()
	}
	return h
}

// Blob returns the payload behind the given handle or handle URL.
func (a *App) Blob(handle string) ([]byte, string, error) {
	h, ok := blob.ParseHandle(handle)
	if !ok {
		return nil, "", apperror.New(apperror.NotFound, "Media not found")
	}

	payload, contentType, err := a.blobs.Fetch(h)
	if err != nil {
		return nil, "", apperror.New(apperror.NotFound, "Media not found")
	}
	return payload, contentType, nil
}

///// Helpers
////
//

func (a *App) notify(kind NotificationKind, message string) {
	a.notifier.Notify(Notification{Kind: kind, Message: message})
}

// fail logs the error and turns it into a user notification.
// It returns the error for callers that report it.
func (a *App) fail(err error, context string) error {
	a.log.Errorf("%s: %+v", context, err)
	a.notify(NotifyError, apperror.Message(err))
	return err
}

// report turns a failure returned to the caller into an error notification.
// Sign-in refusals already asked for the sign-in flow.
func (a *App) report(err *error) {
	if *err == nil || apperror.Is(*err, apperror.SignInRequired) {
		return
	}
	a.notify(NotifyError, apperror.Message(*err))
}

func (a *App) find(id string) (int, *model.MediaItem, error) {
	item, i, ok := lo.FindIndexOf(a.items, func(item *model.MediaItem) bool {
		return item.ID == id
	})
	if !ok {
		return -1, nil, apperror.New(apperror.NotFound, "Media not found")
	}
	return i, item, nil
}

func (a *App) currentEmail() string {
	if !a.session.Authenticated() {
		return ""
	}
	return a.session.User.Email
}

func (a *App) requireSession(message string) (*model.User, error) {
	if !a.session.Authenticated() {
		a.notify(NotifySignIn, message)
		return nil, apperror.New(apperror.SignInRequired, message)
	}
	return a.session.User, nil
}

func (a *App) releaseItems(items ...*model.MediaItem) {
	for _, item := range items {
		if item.Handle != "" {
			a.blobs.Release(blob.Handle(item.Handle))
		}
	}
}

// persist saves the item behind. The snapshot is taken now so writes land in issue order.
func (a *App) persist(name string, item *model.MediaItem) {
	snapshot := item.Clone()
	a.writer.Enqueue(name, func() error {
		return a.store.SaveMediaItem(snapshot, nil)
	})
}

func (a *App) setHeader(config *model.HeaderConfig) {
	if a.headerPhoto != "" {
		a.blobs.Release(a.headerPhoto)
		a.headerPhoto = ""
	}

	a.header = config
	if config.Photo.IsLocal() {
		a.headerPhoto = a.blobs.Mint(config.Photo.Payload, config.Photo.ContentType)
	}
}

func (a *App) saveSessionUser() {
	if err := a.slot.Set(localstore.KeyCurrentUser, a.session.User); err != nil {
		a.fail(err, "could not save session")
	}
}
