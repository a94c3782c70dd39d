package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mdouchement/creativespace/internal/app"
	"github.com/mdouchement/creativespace/internal/apperror"
	"github.com/mdouchement/creativespace/internal/blob"
	"github.com/mdouchement/creativespace/internal/database"
	"github.com/mdouchement/creativespace/internal/localstore"
	"github.com/mdouchement/creativespace/internal/logger"
	"github.com/mdouchement/creativespace/internal/model"
	"github.com/mdouchement/creativespace/internal/store"
	"github.com/mdouchement/creativespace/pkg/libcs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var png = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x42}

type fixture struct {
	t     *testing.T
	dir   string
	db    database.Client
	store *store.Store
	blobs *blob.Scope
	inbox *app.Inbox
	now   time.Time
	auth  libcs.Client
	app   *app.App
}

func setup(t *testing.T) *fixture {
	dir := t.TempDir()
	db, err := database.StormOpen(filepath.Join(dir, "creativespace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		t:   t,
		dir: dir,
		db:  db,
		now: time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC),
	}
	f.start()
	return f
}

// start builds a fresh App over the same stores, like a process restart.
func (f *fixture) start() {
	if f.app != nil {
		require.NoError(f.t, f.app.Close())
	}

	slot, err := localstore.Open(filepath.Join(f.dir, "slots.cbor"), 0)
	require.NoError(f.t, err)

	f.blobs = blob.NewRegistry().NewScope()
	f.store = store.New(f.db, f.blobs)
	f.inbox = app.NewInbox(64)
	f.app = app.New(app.Options{
		Store:    f.store,
		Blobs:    f.blobs,
		Slot:     slot,
		Auth:     f.auth,
		Logger:   logger.Discard(),
		Notifier: f.inbox,
		Clock:    func() time.Time { return f.now },
	})
	require.NoError(f.t, f.app.Load())

	a := f.app
	f.t.Cleanup(func() { a.Close() })
}

func (f *fixture) register(email, name string) *model.User {
	user, err := f.app.Register(context.Background(), email, "secret1", name)
	require.NoError(f.t, err)
	return user
}

func (f *fixture) upload(name string) *model.MediaItem {
	items, err := f.app.Upload(app.File{Name: name, ContentType: "image/png", Payload: png})
	require.NoError(f.t, err)
	require.Len(f.t, items, 1)
	return items[0]
}

func TestApp_LoadSeeds(t *testing.T) {
	f := setup(t)

	items := f.app.Items()
	assert.Len(t, items, 4)
	assert.Equal(t, "Creative Space", f.app.Header().Title)
	assert.Nil(t, f.app.CurrentUser())
}

func TestApp_UploadLikeViewScenario(t *testing.T) {
	f := setup(t)

	item := f.upload("my-cat_photo.png")
	assert.Regexp(t, `^[0-9a-z]{9}$`, item.ID)
	assert.Equal(t, "My cat photo", item.Title)
	assert.Equal(t, model.KindImage, item.Kind)
	assert.Equal(t, model.DefaultCategory, item.Category)
	assert.Equal(t, 0, item.Likes)
	assert.Equal(t, 0, item.Views)
	assert.False(t, item.LikedByUser)

	payload, ct, err := f.app.Blob(item.URL)
	require.NoError(t, err)
	assert.Equal(t, png, payload)
	assert.Equal(t, "image/png", ct)

	item, err = f.app.ToggleLike(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, item.Likes)
	assert.True(t, item.LikedByUser)

	index := len(f.app.Items()) - 1
	item, err = f.app.OpenItem(index)
	require.NoError(t, err)
	assert.Equal(t, 1, item.Views)

	item, err = f.app.ToggleLike(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, item.Likes)
	assert.False(t, item.LikedByUser)

	// Restart
	f.app.Flush()
	f.start()

	reloaded, err := f.app.Item(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Likes)
	assert.Equal(t, 1, reloaded.Views)
	assert.False(t, reloaded.LikedByUser)
	assert.NotEqual(t, item.Handle, reloaded.Handle, "a fresh handle is minted on load")

	payload, _, err = f.app.Blob(reloaded.URL)
	require.NoError(t, err)
	assert.Equal(t, png, payload, "payload survives the restart")
}

func TestApp_UploadValidation(t *testing.T) {
	f := setup(t)

	_, err := f.app.Upload(app.File{Name: "notes.txt", ContentType: "text/plain", Payload: []byte("hi")})
	assert.True(t, apperror.Is(err, apperror.ValidationError))

	items, err := f.app.Upload(app.File{Name: "clip.mp4", ContentType: "video/mp4", Payload: []byte{0, 0, 0, 0x18}})
	require.NoError(t, err)
	assert.Equal(t, model.KindVideo, items[0].Kind)
	assert.Equal(t, "Clip", items[0].Title)
}

func TestApp_ToggleLikeIsAnInvolution(t *testing.T) {
	f := setup(t)

	for _, item := range f.app.Items() {
		_, err := f.app.ToggleLike(item.ID)
		require.NoError(t, err)
		toggled, err := f.app.ToggleLike(item.ID)
		require.NoError(t, err)

		assert.Equal(t, item.Likes, toggled.Likes)
		assert.Equal(t, item.LikedByUser, toggled.LikedByUser)
	}
}

func TestApp_ViewerNavigation(t *testing.T) {
	f := setup(t)
	items := f.app.Items()

	_, err := f.app.Next()
	assert.True(t, apperror.Is(err, apperror.NotFound), "viewer is closed")

	first, err := f.app.OpenItem(0)
	require.NoError(t, err)
	assert.Equal(t, items[0].Views+1, first.Views)

	prev, err := f.app.Prev()
	require.NoError(t, err)
	assert.Equal(t, first.Views, prev.Views, "no view counted when the viewer does not move")

	next, err := f.app.Next()
	require.NoError(t, err)
	assert.Equal(t, items[1].ID, next.ID)
	assert.Equal(t, items[1].Views+1, next.Views)
	assert.Equal(t, items[1].ID, f.app.Viewer().ID)

	f.app.CloseViewer()
	assert.Nil(t, f.app.Viewer())
}

func TestApp_CommentRequiresSignIn(t *testing.T) {
	f := setup(t)
	item := f.app.Items()[0]

	_, err := f.app.AddComment(item.ID, "Lovely")
	assert.True(t, apperror.Is(err, apperror.SignInRequired))
	assert.Contains(t, f.inbox.Drain(), app.Notification{Kind: app.NotifySignIn, Message: "Please sign in to comment."})

	f.register("a@x.com", "Alice")
	comment, err := f.app.AddComment(item.ID, "  Lovely  ")
	require.NoError(t, err)
	assert.Equal(t, "Lovely", comment.Text)
	assert.Equal(t, "Alice", comment.AuthorName)

	item, err = f.app.Item(item.ID)
	require.NoError(t, err)
	require.Len(t, item.Comments, 1)

	f.app.Logout()
	f.register("b@x.com", "Bob")
	err = f.app.DeleteComment(item.ID, comment.ID)
	assert.True(t, apperror.Is(err, apperror.Forbidden))

	f.app.Logout()
	_, err = f.app.Login(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, f.app.DeleteComment(item.ID, comment.ID))

	f.app.Flush()
	record, err := f.store.FindMediaRecord(item.ID)
	require.NoError(t, err)
	assert.Empty(t, record.Comments)
}

func TestApp_RegisterAndAuthenticate(t *testing.T) {
	f := setup(t)

	user := f.register("a@x.com", "Alice")
	assert.Equal(t, "Alice", user.Name)
	assert.Empty(t, user.Password)

	_, err := f.app.Register(context.Background(), "a@x.com", "secret2", "Alice Bis")
	assert.True(t, apperror.Is(err, apperror.AlreadyExists))

	f.app.Logout()
	assert.Nil(t, f.app.CurrentUser())

	_, err = f.app.Login(context.Background(), "a@x.com", "nope-nope")
	assert.True(t, apperror.Is(err, apperror.InvalidCredentials))

	user, err = f.app.Login(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)

	// The session survives a restart.
	f.start()
	require.NotNil(t, f.app.CurrentUser())
	assert.Equal(t, "Alice", f.app.CurrentUser().Name)
	assert.Empty(t, f.app.CurrentUser().Password)
}

func TestApp_ProfileRenamePropagation(t *testing.T) {
	f := setup(t)
	f.register("u@x.com", "Old Name")

	a := f.upload("a.png")
	b := f.upload("b.png")
	story, err := f.app.PostStory(app.StoryInput{Title: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "Old Name", story.Author)

	user, err := f.app.UpdateProfile(model.ProfilePatch{Name: lo.ToPtr("New")})
	require.NoError(t, err)
	assert.Equal(t, "New", user.Name)
	assert.Equal(t, "New", f.app.CurrentUser().Name)

	for _, id := range []string{a.ID, b.ID} {
		item, err := f.app.Item(id)
		require.NoError(t, err)
		assert.Equal(t, "New", item.AuthorName)
	}
	assert.Equal(t, "New", f.app.ActiveStories()[0].Author)

	f.app.Flush()
	for _, id := range []string{a.ID, b.ID} {
		record, err := f.store.FindMediaRecord(id)
		require.NoError(t, err)
		assert.Equal(t, "New", record.AuthorName)
		assert.Equal(t, png, record.Payload)
	}

	others, err := f.store.FindMediaRecord("seed-1")
	require.NoError(t, err)
	assert.Equal(t, "Sarah Jenkins", others.AuthorName)
}

func TestApp_ProfileRecovery(t *testing.T) {
	f := setup(t)
	f.register("u@x.com", "Alice")

	// The record disappears behind the session's back.
	_, err := f.store.DeleteUser("u@x.com")
	require.NoError(t, err)

	user, err := f.app.UpdateProfile(model.ProfilePatch{Bio: lo.ToPtr("Painter")})
	require.NoError(t, err)
	assert.Equal(t, "Painter", user.Bio)

	stored, err := f.store.FindUser("u@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", stored.Name)
	assert.Equal(t, "Painter", stored.Bio)
}

func TestApp_ProfileAvatarLimit(t *testing.T) {
	f := setup(t)
	f.register("u@x.com", "Alice")

	avatar := string(make([]byte, app.MaxAvatarSize+1))
	_, err := f.app.UpdateProfile(model.ProfilePatch{Avatar: &avatar})
	assert.True(t, apperror.Is(err, apperror.ValidationError))
}

func TestApp_ChangePassword(t *testing.T) {
	f := setup(t)

	err := f.app.ChangePassword("secret1", "secret2")
	assert.True(t, apperror.Is(err, apperror.SignInRequired))

	f.register("u@x.com", "Alice")
	err = f.app.ChangePassword("wrong-one", "secret2")
	assert.True(t, apperror.Is(err, apperror.IncorrectPassword))

	require.NoError(t, f.app.ChangePassword("secret1", "secret2"))
	_, err = f.app.Login(context.Background(), "u@x.com", "secret2")
	assert.NoError(t, err)
}

func TestApp_DeleteItem(t *testing.T) {
	f := setup(t)
	f.register("u@x.com", "Alice")
	item := f.upload("a.png")

	err := f.app.DeleteItem("seed-1")
	assert.True(t, apperror.Is(err, apperror.Forbidden))

	require.NoError(t, f.app.DeleteItem(item.ID))
	_, _, err = f.app.Blob(item.URL)
	assert.True(t, apperror.Is(err, apperror.NotFound), "handle released immediately")

	_, err = f.app.Item(item.ID)
	assert.True(t, apperror.Is(err, apperror.NotFound))

	f.app.Flush()
	_, err = f.store.FindMediaRecord(item.ID)
	assert.True(t, apperror.Is(err, apperror.NotFound))
}

func TestApp_ClearMyItems(t *testing.T) {
	f := setup(t)

	_, err := f.app.ClearMyItems()
	assert.True(t, apperror.Is(err, apperror.SignInRequired))

	f.register("u@x.com", "Alice")
	f.upload("a.png")
	f.upload("b.png")

	n, err := f.app.ClearMyItems()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, f.app.Items(), 4)

	f.app.Flush()
	f.start()
	assert.Len(t, f.app.Items(), 4, "only the user's media are purged")
}

func TestApp_SaveToCollection(t *testing.T) {
	f := setup(t)
	f.register("u@x.com", "Alice")
	original := f.upload("a.png")

	f.app.Logout()
	f.register("v@x.com", "Bob")

	saved, err := f.app.SaveToCollection(original.ID)
	require.NoError(t, err)
	assert.NotEqual(t, original.ID, saved.ID)
	assert.Equal(t, "v@x.com", saved.UserID)
	assert.Equal(t, "Bob", saved.AuthorName)
	assert.Equal(t, 0, saved.Likes)

	payload, _, err := f.app.Blob(saved.URL)
	require.NoError(t, err)
	assert.Equal(t, png, payload)

	seed, err := f.app.SaveToCollection("seed-2")
	require.NoError(t, err)
	assert.True(t, seed.IsRemote())

	f.app.Flush()
	record, err := f.store.FindMediaRecord(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, png, record.Payload)
}

func TestApp_StoryVisibility(t *testing.T) {
	f := setup(t)
	f.register("u@x.com", "Alice")

	now := f.now
	f.now = now.Add(-25 * time.Hour)
	old, err := f.app.PostStory(app.StoryInput{Title: "Old"})
	require.NoError(t, err)

	f.now = now.Add(-23 * time.Hour)
	recent, err := f.app.PostStory(app.StoryInput{Title: "Recent"})
	require.NoError(t, err)

	f.now = now
	active := f.app.ActiveStories()
	require.Len(t, active, 1)
	assert.Equal(t, recent.ID, active[0].ID)

	// Reading never purges.
	f.start()
	require.Len(t, f.app.ActiveStories(), 1)
	var stored []*model.Story
	slot, err := localstore.Open(filepath.Join(f.dir, "slots.cbor"), 0)
	require.NoError(t, err)
	require.NoError(t, slot.Get(localstore.KeyStories, &stored))
	assert.Len(t, stored, 2)

	require.NoError(t, f.app.MarkStoryWatched(old.ID))
	n, err := f.app.PurgeStories()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, f.app.Session().WatchedStories)
}

func TestApp_StoryOwnership(t *testing.T) {
	f := setup(t)

	_, err := f.app.PostStory(app.StoryInput{Title: "Hello"})
	assert.True(t, apperror.Is(err, apperror.SignInRequired))

	f.register("u@x.com", "Alice")
	story, err := f.app.PostStory(app.StoryInput{Title: "Hello", Link: "https://blog.lan"})
	require.NoError(t, err)

	story, err = f.app.UpdateStory(story.ID, model.StoryPatch{Title: lo.ToPtr("Hello world")})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", story.Title)

	require.NoError(t, f.app.MarkStoryWatched(story.ID))
	require.NoError(t, f.app.MarkStoryWatched(story.ID))
	assert.Equal(t, []string{story.ID}, f.app.Session().WatchedStories)

	f.app.Logout()
	f.register("v@x.com", "Bob")
	err = f.app.DeleteStory(story.ID)
	assert.True(t, apperror.Is(err, apperror.Forbidden))

	f.app.Logout()
	_, err = f.app.Login(context.Background(), "u@x.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, f.app.DeleteStory(story.ID))
	assert.Empty(t, f.app.ActiveStories())
}

func TestApp_Header(t *testing.T) {
	f := setup(t)

	_, err := f.app.UpdateHeader("  ", "nothing")
	assert.True(t, apperror.Is(err, apperror.ValidationError))

	header, err := f.app.UpdateHeader("My Space", "Photos and more")
	require.NoError(t, err)
	assert.Equal(t, "My Space", header.Title)

	header, err = f.app.UpdateHeaderPhoto(model.LocalSource(png, "image/png"))
	require.NoError(t, err)
	h, ok := blob.ParseHandle(header.PhotoURL)
	require.True(t, ok)
	payload, _, err := f.app.Blob(string(h))
	require.NoError(t, err)
	assert.Equal(t, png, payload)

	_, err = f.app.UpdateHeaderPhoto(model.LocalSource(make([]byte, app.MaxHeaderPhotoSize+1), "image/png"))
	assert.True(t, apperror.Is(err, apperror.ValidationError))

	f.app.Flush()
	f.start()
	header = f.app.Header()
	assert.Equal(t, "My Space", header.Title)
	assert.Equal(t, "Photos and more", header.Description)
	_, ok = blob.ParseHandle(header.PhotoURL)
	assert.True(t, ok)
}

func TestApp_ResolveDeepLink(t *testing.T) {
	f := setup(t)
	f.register("a@x.com", "Alice")
	item := f.upload("a.png")

	link, err := f.app.ResolveDeepLink("item=" + item.ID + "&user=a@x.com&ref=newsletter")
	require.NoError(t, err)
	require.NotNil(t, link.Item)
	assert.Equal(t, item.ID, link.Item.ID)
	assert.Equal(t, 1, link.Item.Views)
	require.NotNil(t, link.Profile)
	assert.Equal(t, "Alice", link.Profile.User.Name)
	assert.Len(t, link.Profile.Items, 1)
	assert.Equal(t, "ref=newsletter", link.Query)
	assert.Equal(t, item.ID, f.app.Viewer().ID)

	link, err = f.app.ResolveDeepLink("item=unknown&user=ghost@x.com")
	require.NoError(t, err)
	assert.Nil(t, link.Item)
	assert.Nil(t, link.Profile)
	assert.Empty(t, link.Query)
}

func TestApp_SearchUsers(t *testing.T) {
	f := setup(t)
	f.register("alice@x.com", "Alice")
	_, err := f.app.UpdateProfile(model.ProfilePatch{Location: lo.ToPtr("Paris")})
	require.NoError(t, err)
	f.register("bob@y.com", "Bob")

	users, err := f.app.SearchUsers("PARIS")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice@x.com", users[0].Email)

	users, err = f.app.SearchUsers("")
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestApp_GoogleLogin(t *testing.T) {
	f := setup(t)

	user, err := f.app.GoogleLogin(app.GoogleProfile{Email: "g@x.com", Name: "Gina Lee"})
	require.NoError(t, err)
	assert.Equal(t, "https://api.dicebear.com/7.x/avataaars/svg?seed=GinaLee", user.Avatar)
	assert.Equal(t, "g@x.com", f.app.CurrentUser().Email)

	_, err = f.app.UpdateProfile(model.ProfilePatch{Bio: lo.ToPtr("Hi")})
	require.NoError(t, err)

	user, err = f.app.GoogleLogin(app.GoogleProfile{Email: "g@x.com", Name: "Other"})
	require.NoError(t, err)
	assert.Equal(t, "Gina Lee", user.Name)
	assert.Equal(t, "Hi", user.Bio)
}

func TestApp_RemoteAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("password") == "secret1" {
			w.Write([]byte(`{"success":true,"data":{"name":"Remote Alice"}}`))
			return
		}
		w.Write([]byte(`{"success":false,"message":"Wrong password"}`))
	}))
	defer srv.Close()

	auth, err := libcs.NewClient(srv.Client(), srv.URL)
	require.NoError(t, err)

	f := setup(t)
	f.auth = auth
	f.start()

	user, err := f.app.Login(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Remote Alice", user.Name)

	stored, err := f.store.FindUser("a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Remote Alice", stored.Name)

	_, err = f.app.Login(context.Background(), "a@x.com", "bad-password")
	assert.True(t, apperror.Is(err, apperror.InvalidCredentials))
	assert.EqualError(t, err, "Wrong password")

	srv.Close()
	_, err = f.app.Login(context.Background(), "a@x.com", "secret1")
	assert.True(t, apperror.Is(err, apperror.NetworkError))
}

func TestApp_FailuresAreNotified(t *testing.T) {
	f := setup(t)
	errorOf := func(err error) app.Notification {
		return app.Notification{Kind: app.NotifyError, Message: apperror.Message(err)}
	}
	f.inbox.Drain()

	_, err := f.app.ToggleLike("nope")
	require.Error(t, err)
	assert.Equal(t, []app.Notification{errorOf(err)}, f.inbox.Drain())

	f.register("a@x.com", "Alice")
	item := f.upload("cat.png")
	f.app.Logout()

	_, err = f.app.Register(context.Background(), "a@x.com", "secret1", "Alice")
	assert.True(t, apperror.Is(err, apperror.AlreadyExists))
	assert.Contains(t, f.inbox.Drain(), errorOf(err))

	_, err = f.app.Login(context.Background(), "a@x.com", "wrong-secret")
	assert.True(t, apperror.Is(err, apperror.InvalidCredentials))
	assert.Equal(t, []app.Notification{errorOf(err)}, f.inbox.Drain())

	f.register("b@x.com", "Bob")
	f.inbox.Drain()
	err = f.app.DeleteItem(item.ID)
	assert.True(t, apperror.Is(err, apperror.Forbidden))
	assert.Equal(t, []app.Notification{errorOf(err)}, f.inbox.Drain())

	// A sign-in refusal only asks for the sign-in flow.
	f.app.Logout()
	f.inbox.Drain()
	_, err = f.app.AddComment(item.ID, "Nice")
	assert.True(t, apperror.Is(err, apperror.SignInRequired))
	assert.Equal(t, []app.Notification{{Kind: app.NotifySignIn, Message: "Please sign in to comment."}}, f.inbox.Drain())
}
