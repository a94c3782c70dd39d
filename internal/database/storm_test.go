package database_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mdouchement/creativespace/internal/database"
	"github.com/mdouchement/creativespace/internal/model"
	"github.com/mdouchement/creativespace/pkg/stormsql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorm_SaveAndFindMedia(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	record := &model.MediaRecord{
		Base:    model.Base{ID: "abc123xyz"},
		Kind:    model.KindImage,
		Name:    "cat.png",
		UserID:  "alice@nowhere.lan",
		Payload: []byte{0x89, 0x50, 0x4e, 0x47},
	}
	require.NoError(t, db.Save(record))
	assert.NotNil(t, record.CreatedAt)
	assert.NotNil(t, record.UpdatedAt)

	found, err := db.FindMedia("abc123xyz")
	require.NoError(t, err)
	assert.Equal(t, record.Payload, found.Payload)
	assert.Equal(t, "cat.png", found.Name)

	_, err = db.FindMedia("unknown")
	assert.True(t, db.IsNotFound(err))
}

func TestStorm_SaveMintsID(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	record := &model.MediaRecord{Kind: model.KindImage}
	require.NoError(t, db.Save(record))
	assert.NotEmpty(t, record.ID)
}

func TestStorm_DeleteMediaByUserID(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	for _, r := range []*model.MediaRecord{
		{Base: model.Base{ID: "a1"}, UserID: "alice@nowhere.lan"},
		{Base: model.Base{ID: "a2"}, UserID: "alice@nowhere.lan"},
		{Base: model.Base{ID: "b1"}, UserID: "bob@nowhere.lan"},
		{Base: model.Base{ID: "n1"}},
	} {
		require.NoError(t, db.Save(r))
	}

	ids, err := db.DeleteMediaByUserID("alice@nowhere.lan")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a1", "a2"}, ids)

	records, err := db.FindAllMedia()
	require.NoError(t, err)
	remaining := []string{}
	for _, r := range records {
		remaining = append(remaining, r.ID)
	}
	assert.ElementsMatch(t, []string{"b1", "n1"}, remaining)

	ids, err = db.DeleteMediaByUserID("nobody@nowhere.lan")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStorm_UpdateAuthor(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	require.NoError(t, db.Save(&model.MediaRecord{Base: model.Base{ID: "a1"}, UserID: "alice@nowhere.lan", AuthorName: "Alice"}))
	require.NoError(t, db.Save(&model.MediaRecord{Base: model.Base{ID: "a2"}, UserID: "alice@nowhere.lan", AuthorName: "Alice"}))
	require.NoError(t, db.Save(&model.MediaRecord{Base: model.Base{ID: "b1"}, UserID: "bob@nowhere.lan", AuthorName: "Bob"}))

	ids, err := db.UpdateAuthor("alice@nowhere.lan", "New", "https://avatars.lan/new.png")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a1", "a2"}, ids)

	for _, id := range []string{"a1", "a2"} {
		r, err := db.FindMedia(id)
		require.NoError(t, err)
		assert.Equal(t, "New", r.AuthorName)
		assert.Equal(t, "https://avatars.lan/new.png", r.AuthorAvatar)
	}

	r, err := db.FindMedia("b1")
	require.NoError(t, err)
	assert.Equal(t, "Bob", r.AuthorName)
}

func TestStorm_Seed(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	seeds := func() []*model.MediaRecord {
		return []*model.MediaRecord{
			{Base: model.Base{ID: "seed-1"}, RemoteURL: "https://images.lan/1.jpg"},
			{Base: model.Base{ID: "seed-2"}, RemoteURL: "https://images.lan/2.jpg"},
		}
	}

	seeded, err := db.Seed(seeds())
	require.NoError(t, err)
	assert.True(t, seeded)

	records, err := db.FindAllMedia()
	require.NoError(t, err)
	assert.Len(t, records, 2)

	require.NoError(t, db.DeleteMedia("seed-1"))
	require.NoError(t, db.DeleteMedia("seed-2"))

	seeded, err = db.Seed(seeds())
	require.NoError(t, err)
	assert.False(t, seeded, "samples must not come back once deleted")

	records, err = db.FindAllMedia()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStorm_SeedSkippedWhenDataExists(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	require.NoError(t, db.Save(&model.MediaRecord{Base: model.Base{ID: "mine"}}))

	seeded, err := db.Seed([]*model.MediaRecord{{Base: model.Base{ID: "seed-1"}}})
	require.NoError(t, err)
	assert.False(t, seeded)

	_, err = db.FindMedia("seed-1")
	assert.True(t, db.IsNotFound(err))
}

func TestStorm_Users(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	require.NoError(t, db.Save(&model.User{Email: "alice@nowhere.lan", Name: "Alice", Password: "hash"}))
	require.NoError(t, db.Save(&model.User{Email: "bob@nowhere.lan", Name: "Bob"}))

	user, err := db.FindUser("alice@nowhere.lan")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "hash", user.Password)

	users, err := db.FindAllUsers()
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = db.FindUser("nobody@nowhere.lan")
	assert.True(t, db.IsNotFound(err))
}

func TestStorm_Config(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	_, err := db.FindConfig(model.HeaderConfigKey)
	assert.True(t, db.IsNotFound(err))

	config := model.DefaultHeaderConfig()
	config.Title = "My Space"
	require.NoError(t, db.Save(config))

	found, err := db.FindConfig(model.HeaderConfigKey)
	require.NoError(t, err)
	assert.Equal(t, "My Space", found.Title)
}

func TestStormInit_KeepsData(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "creativespace.db")

	db, err := database.StormOpen(filename)
	require.NoError(t, err)
	require.NoError(t, db.Save(&model.User{Email: "alice@nowhere.lan", Name: "Alice"}))
	require.NoError(t, db.Close())

	require.NoError(t, database.StormInit(filename))
	require.NoError(t, database.StormInit(filename))

	db, err = database.StormOpen(filename)
	require.NoError(t, err)
	defer db.Close()

	user, err := db.FindUser("alice@nowhere.lan")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
}

func TestStorm_Query(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	for i, likes := range []int{5, 150, 300} {
		require.NoError(t, db.Save(&model.MediaRecord{
			Base:   model.Base{ID: fmt.Sprintf("item-%d", i)},
			Kind:   model.KindImage,
			Likes:  likes,
			UserID: "sarah@example.com",
		}))
	}

	sc, err := stormsql.ParseSelect("SELECT count(*) FROM media WHERE UserID = 'sarah@example.com' AND Likes > 100")
	require.NoError(t, err)
	n, err := db.Query(sc)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sc, err = stormsql.ParseSelect("SELECT * FROM media ORDER BY Likes DESC LIMIT 1")
	require.NoError(t, err)
	v, err := db.Query(sc)
	require.NoError(t, err)
	records := *v.(*[]*model.MediaRecord)
	require.Len(t, records, 1)
	assert.Equal(t, "item-2", records[0].ID)

	sc, err = stormsql.ParseSelect("SELECT * FROM sessions")
	require.NoError(t, err)
	_, err = db.Query(sc)
	assert.EqualError(t, err, "unknown tablename: sessions")
}

func setup(t *testing.T) (database.Client, func()) {
	tmpfile, err := os.CreateTemp("", "creativespace.*.db")
	require.NoError(t, err)
	filename := tmpfile.Name()
	tmpfile.Close()

	db, err := database.StormOpen(filename)
	require.NoError(t, err)

	return db, func() {
		db.Close()
		os.RemoveAll(filename)
	}
}
