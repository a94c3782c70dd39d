package database

import (
	"sort"
	"time"

	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/codec/msgpack"
	"github.com/asdine/storm/v3/q"
	"github.com/gofrs/uuid"
	"github.com/mdouchement/creativespace/internal/model"
	"github.com/mdouchement/creativespace/pkg/stormsql"
	"github.com/pkg/errors"
)

const (
	metaBucket = "meta"
	seededKey  = "seeded"
)

type strm struct {
	db *storm.DB
}

// StormCodec is the format used to store data in the database.
var StormCodec = storm.Codec(msgpack.Codec)

// StormInit initializes Storm database.
// It creates the missing collections without touching the existing data.
func StormInit(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	return migrate(db)
}

// StormReIndex reindex Storm database.
func StormReIndex(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	if err := db.ReIndex(&model.MediaRecord{}); err != nil {
		return errors.Wrap(err, "could not ReIndex media")
	}

	if err := db.ReIndex(&model.User{}); err != nil {
		return errors.Wrap(err, "could not ReIndex users")
	}

	err = db.ReIndex(&model.HeaderConfig{})
	return errors.Wrap(err, "could not ReIndex config")
}

// StormOpen returns a new Storm database connection.
// Missing collections are created on open.
func StormOpen(database string) (Client, error) {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return nil, errors.Wrap(err, "could not get database connection")
	}

	if err = migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &strm{
		db: db,
	}, nil
}

func migrate(db *storm.DB) error {
	if err := db.Init(&model.MediaRecord{}); err != nil {
		return errors.Wrap(err, "could not init media index")
	}

	if err := db.Init(&model.User{}); err != nil {
		return errors.Wrap(err, "could not init user index")
	}

	err := db.Init(&model.HeaderConfig{})
	return errors.Wrap(err, "could not init config index")
}

// Save inserts or updates the entry in database with the given model.
func (c *strm) Save(m model.Model) error {
	t := time.Now().UTC()
	m.SetUpdatedAt(t)

	if m.GetID() == "" {
		m.SetID(uuid.Must(uuid.NewV4()).String())
	}
	if m.GetCreatedAt() == nil {
		m.SetCreatedAt(t)
	}

	return errors.Wrap(c.db.Save(m), "could not save the model")
}

// Delete deletes the entry in database with the given model.
func (c *strm) Delete(m model.Model) error {
	return errors.Wrap(c.db.DeleteStruct(m), "could not delete the model")
}

// Seed inserts the given records when the media collection has never been seeded and is empty.
func (c *strm) Seed(records []*model.MediaRecord) (bool, error) {
	tx, err := c.db.Begin(true)
	if err != nil {
		return false, errors.Wrap(err, "could not begin transaction")
	}
	defer tx.Rollback()

	var seeded bool
	err = tx.Get(metaBucket, seededKey, &seeded)
	if err != nil && err != storm.ErrNotFound {
		return false, errors.Wrap(err, "could not read seed marker")
	}
	if seeded {
		return false, nil
	}

	n, err := tx.Count(&model.MediaRecord{})
	if err != nil {
		return false, errors.Wrap(err, "could not count media")
	}

	if n == 0 {
		t := time.Now().UTC()
		for _, r := range records {
			r.SetCreatedAt(t)
			r.SetUpdatedAt(t)
			if err = tx.Save(r); err != nil {
				return false, errors.Wrap(err, "could not save seed record")
			}
		}
	}

	// The marker is set even when the collection already holds data,
	// so the samples never show up after the user empties it.
	if err = tx.Set(metaBucket, seededKey, true); err != nil {
		return false, errors.Wrap(err, "could not write seed marker")
	}

	return n == 0, errors.Wrap(tx.Commit(), "could not commit seed")
}

// Close the database.
func (c *strm) Close() error {
	return c.db.Close()
}

// IsNotFound returns true if err is a not found error.
func (c *strm) IsNotFound(err error) bool {
	return errors.Cause(err) == storm.ErrNotFound
}

// FindMedia returns the media record for the given id.
func (c *strm) FindMedia(id string) (*model.MediaRecord, error) {
	var record model.MediaRecord
	if err := c.db.One("ID", id, &record); err != nil {
		return nil, errors.Wrap(err, "could not find media")
	}
	return &record, nil
}

// FindAllMedia returns all the media records ordered by creation date.
func (c *strm) FindAllMedia() ([]*model.MediaRecord, error) {
	records := make([]*model.MediaRecord, 0)
	if err := c.db.All(&records); err != nil {
		return nil, errors.Wrap(err, "could not find media")
	}

	sort.SliceStable(records, func(i, j int) bool {
		return before(records[i].CreatedAt, records[j].CreatedAt)
	})
	return records, nil
}

// DeleteMedia deletes the media record for the given id.
func (c *strm) DeleteMedia(id string) error {
	err := c.db.DeleteStruct(&model.MediaRecord{Base: model.Base{ID: id}})
	return errors.Wrap(err, "could not delete media")
}

// DeleteMediaByUserID deletes all the media records owned by the given user.
func (c *strm) DeleteMediaByUserID(userID string) ([]string, error) {
	tx, err := c.db.Begin(true)
	if err != nil {
		return nil, errors.Wrap(err, "could not begin transaction")
	}
	defer tx.Rollback()

	records := make([]*model.MediaRecord, 0)
	err = tx.Select(q.Eq("UserID", userID)).Find(&records)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find media by user id")
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		if err = tx.DeleteStruct(r); err != nil {
			return nil, errors.Wrap(err, "could not delete media")
		}
		ids = append(ids, r.ID)
	}

	return ids, errors.Wrap(tx.Commit(), "could not commit media deletion")
}

// UpdateAuthor rewrites the denormalized author fields of every media record owned by the given user.
func (c *strm) UpdateAuthor(userID, name, avatar string) ([]string, error) {
	tx, err := c.db.Begin(true)
	if err != nil {
		return nil, errors.Wrap(err, "could not begin transaction")
	}
	defer tx.Rollback()

	records := make([]*model.MediaRecord, 0)
	err = tx.Select(q.Eq("UserID", userID)).Find(&records)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find media by user id")
	}

	t := time.Now().UTC()
	ids := make([]string, 0, len(records))
	for _, r := range records {
		r.AuthorName = name
		r.AuthorAvatar = avatar
		r.SetUpdatedAt(t)
		if err = tx.Save(r); err != nil {
			return nil, errors.Wrap(err, "could not update media author")
		}
		ids = append(ids, r.ID)
	}

	return ids, errors.Wrap(tx.Commit(), "could not commit author update")
}

// FindUser returns the user for the given email.
func (c *strm) FindUser(email string) (*model.User, error) {
	var user model.User
	if err := c.db.One("Email", email, &user); err != nil {
		return nil, errors.Wrap(err, "find user by mail")
	}
	return &user, nil
}

// FindAllUsers returns all the users.
func (c *strm) FindAllUsers() ([]*model.User, error) {
	users := make([]*model.User, 0)
	if err := c.db.All(&users); err != nil {
		return nil, errors.Wrap(err, "could not find users")
	}
	return users, nil
}

// FindConfig returns the header config for the given key.
func (c *strm) FindConfig(key string) (*model.HeaderConfig, error) {
	var config model.HeaderConfig
	if err := c.db.One("Key", key, &config); err != nil {
		return nil, errors.Wrap(err, "find config by key")
	}
	return &config, nil
}

func before(a, b *time.Time) bool {
	switch {
	case a == nil:
		return b != nil
	case b == nil:
		return false
	}
	return a.Before(*b)
}

// Query runs the given parsed SELECT statement against the `media` or `users` collection.
// It returns the count when requested, the matching records otherwise.
func (c *strm) Query(sc *stormsql.SelectClause) (any, error) {
	var one any
	var all any
	switch sc.Tablename {
	case "media":
		one, all = &model.MediaRecord{}, &[]*model.MediaRecord{}
	case "users":
		one, all = &model.User{}, &[]*model.User{}
	default:
		return nil, errors.Errorf("unknown tablename: %s", sc.Tablename)
	}

	query := c.db.Select(sc.Matcher)
	if sc.Skip > 0 {
		query.Skip(sc.Skip)
	}
	if sc.Limit > 0 {
		query.Limit(sc.Limit)
	}
	if len(sc.OrderBy) > 0 {
		query.OrderBy(sc.OrderBy...)
		if sc.OrderByReversed {
			query.Reverse()
		}
	}

	if sc.Count {
		n, err := query.Count(one)
		return n, errors.Wrap(err, "could not perform query")
	}

	err := query.Find(all)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not perform query")
	}
	return all, nil
}
