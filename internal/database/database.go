package database

import (
	"github.com/mdouchement/creativespace/internal/model"
	"github.com/mdouchement/creativespace/pkg/stormsql"
)

type (
	// A Client can interacts with the database.
	Client interface {
		// Save inserts or updates the entry in database with the given model.
		// The whole record is written, there is no partial update.
		Save(m model.Model) error
		// Delete deletes the entry in database with the given model.
		Delete(m model.Model) error
		// Seed inserts the given records when the media collection has never been seeded and is empty.
		// It returns true if the records have been inserted.
		Seed(records []*model.MediaRecord) (bool, error)
		// Close the database.
		Close() error
		// IsNotFound returns true if err is a not found error.
		IsNotFound(err error) bool
		// Query runs a parsed SELECT statement, used by the maintenance console.
		Query(sc *stormsql.SelectClause) (any, error)

		MediaInteraction
		UserInteraction
		ConfigInteraction
	}

	// A MediaInteraction defines all the methods used to interact with media record(s).
	MediaInteraction interface {
		// FindMedia returns the media record for the given id.
		FindMedia(id string) (*model.MediaRecord, error)
		// FindAllMedia returns all the media records ordered by creation date.
		FindAllMedia() ([]*model.MediaRecord, error)
		// DeleteMedia deletes the media record for the given id.
		DeleteMedia(id string) error
		// DeleteMediaByUserID deletes all the media records owned by the given user.
		// It returns the ids of the deleted records.
		DeleteMediaByUserID(userID string) ([]string, error)
		// UpdateAuthor rewrites the denormalized author fields of every media record owned by the given user.
		// All records are updated in a single transaction.
		// It returns the ids of the updated records.
		UpdateAuthor(userID, name, avatar string) ([]string, error)
	}

	// A UserInteraction defines all the methods used to interact with a user record.
	UserInteraction interface {
		// FindUser returns the user for the given email.
		FindUser(email string) (*model.User, error)
		// FindAllUsers returns all the users.
		FindAllUsers() ([]*model.User, error)
	}

	// A ConfigInteraction defines all the methods used to interact with a config record.
	ConfigInteraction interface {
		// FindConfig returns the header config for the given key.
		FindConfig(key string) (*model.HeaderConfig, error)
	}
)
