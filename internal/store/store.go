// Package store translates between displayable and storable records and exposes
// the collection helpers used by the application.
package store

import (
	"github.com/mdouchement/creativespace/internal/apperror"
	"github.com/mdouchement/creativespace/internal/blob"
	"github.com/mdouchement/creativespace/internal/database"
	"github.com/mdouchement/creativespace/internal/model"
	argon2 "github.com/mdouchement/simple-argon2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// A Store is the persistence façade over the object store.
type Store struct {
	db        database.Client
	blobs     *blob.Scope
	validator *Validator
}

type (
	registration struct {
		Email    string `json:"email"    validate:"required,contains=@"`
		Password string `json:"password" validate:"required,min=6"`
		Name     string `json:"name"     validate:"required"`
	}

	passwordChange struct {
		Password string `json:"new_password" validate:"required,min=6"`
	}
)

// New returns a new Store. Handles minted while loading media are tracked by the given scope.
func New(db database.Client, blobs *blob.Scope) *Store {
	return &Store{
		db:        db,
		blobs:     blobs,
		validator: NewValidator(),
	}
}

///// Media
////
//

// SaveMediaItem persists the item with the given payload.
// When payload is empty, the payload previously stored for the same id is kept.
// The ephemeral handle is never persisted.
func (s *Store) SaveMediaItem(item *model.MediaItem, payload []byte) error {
	contentType := item.ContentType

	if len(payload) == 0 {
		existing, err := s.db.FindMedia(item.ID)
		if err != nil && !s.db.IsNotFound(err) {
			return errors.Wrap(err, "could not get access to database")
		}
		if existing != nil && len(existing.Payload) > 0 {
			payload = existing.Payload
			if contentType == "" {
				contentType = existing.ContentType
			}
		}
	}

	record := item.Record(payload)
	record.ContentType = contentType
	return errors.Wrap(s.db.Save(record), "could not persist media")
}

// LoadAllMediaItems returns all the stored media in their displayable form.
// The sample media are inserted on the very first load.
// A fresh handle is minted for every payload-bearing record, remote URLs pass through.
func (s *Store) LoadAllMediaItems() ([]*model.MediaItem, error) {
	if _, err := s.db.Seed(SeedRecords()); err != nil {
		return nil, errors.Wrap(err, "could not seed media")
	}

	records, err := s.db.FindAllMedia()
	if err != nil {
		return nil, errors.Wrap(err, "could not load media")
	}

	return lo.Map(records, func(r *model.MediaRecord, _ int) *model.MediaItem {
		source := r.Source()
		if !source.IsLocal() {
			return r.Item(source.Remote, "")
		}

		h := s.blobs.Mint(source.Payload, source.ContentType)
		return r.Item(h.URL(), string(h))
	}), nil
}

// FindMediaRecord returns the storable form of the media for the given id.
func (s *Store) FindMediaRecord(id string) (*model.MediaRecord, error) {
	record, err := s.db.FindMedia(id)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, apperror.New(apperror.NotFound, "Media not found")
		}
		return nil, errors.Wrap(err, "could not get access to database")
	}
	return record, nil
}

// DeleteMediaItem deletes the media for the given id.
// Deleting a missing media is a no-op.
func (s *Store) DeleteMediaItem(id string) error {
	err := s.db.DeleteMedia(id)
	if err != nil && !s.db.IsNotFound(err) {
		return errors.Wrap(err, "could not delete media")
	}
	return nil
}

// DeleteAllMediaForUser deletes every media owned by the given email.
// It returns the ids of the deleted media.
func (s *Store) DeleteAllMediaForUser(email string) ([]string, error) {
	ids, err := s.db.DeleteMediaByUserID(email)
	return ids, errors.Wrap(err, "could not delete user's media")
}

// RepairAuthor rewrites the author name and avatar of every media owned by the given email.
// It returns the ids of the rewritten media.
func (s *Store) RepairAuthor(email, name, avatar string) ([]string, error) {
	ids, err := s.db.UpdateAuthor(email, name, avatar)
	return ids, errors.Wrap(err, "could not repair media author")
}

///// Config
////
//

// SaveConfig persists the header config.
func (s *Store) SaveConfig(config *model.HeaderConfig) error {
	config.Key = model.HeaderConfigKey
	return errors.Wrap(s.db.Save(config), "could not persist config")
}

// LoadConfig returns the header config or nil when none has been saved yet.
func (s *Store) LoadConfig() (*model.HeaderConfig, error) {
	config, err := s.db.FindConfig(model.HeaderConfigKey)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "could not load config")
	}
	return config, nil
}

///// Users
////
//

// ValidateRegistration checks the registration fields.
func (s *Store) ValidateRegistration(email, password, name string) error {
	return s.validator.Validate(registration{Email: email, Password: password, Name: name})
}

// RegisterUser creates a new user and returns it without its password.
func (s *Store) RegisterUser(email, password, name string) (*model.User, error) {
	if err := s.ValidateRegistration(email, password, name); err != nil {
		return nil, err
	}

	// Check if the email is free to use.
	u, err := s.db.FindUser(email)
	if err != nil && !s.db.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not get access to database")
	}
	if u != nil {
		return nil, apperror.New(apperror.AlreadyExists, "User already exists")
	}

	user := &model.User{
		Email:  email,
		Name:   name,
		Avatar: model.DefaultAvatar(name),
	}

	// Crypt password
	user.Password, err = argon2.GenerateFromPasswordString(password, argon2.Default)
	if err != nil {
		return nil, errors.Wrap(err, "could not store user password safe")
	}

	if err = s.db.Save(user); err != nil {
		return nil, errors.Wrap(err, "could not persist user")
	}
	return user.Safe(), nil
}

// AuthenticateUser returns the user matching the given credentials without its password.
func (s *Store) AuthenticateUser(email, password string) (*model.User, error) {
	invalid := apperror.New(apperror.InvalidCredentials, "Invalid email or password")

	user, err := s.db.FindUser(email)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, invalid
		}
		return nil, errors.Wrap(err, "could not get user")
	}

	// Users created through a third party have no local password.
	if user.Password == "" {
		return nil, invalid
	}

	if err = argon2.CompareHashAndPasswordString(user.Password, password); err != nil {
		if err == argon2.ErrMismatchedHashAndPassword {
			return nil, invalid
		}
		return nil, errors.Wrap(err, "could not validate password")
	}
	return user.Safe(), nil
}

// UpdateUser applies the patch on the user for the given email.
// It returns the updated user without its password and whether its name or avatar changed.
func (s *Store) UpdateUser(email string, patch model.ProfilePatch) (*model.User, bool, error) {
	if err := s.validator.Validate(patch); err != nil {
		return nil, false, err
	}

	user, err := s.db.FindUser(email)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, false, apperror.New(apperror.NotFound, "User not found")
		}
		return nil, false, errors.Wrap(err, "could not get user")
	}

	denormalized := user.Apply(patch)
	if err = s.db.Save(user); err != nil {
		return nil, false, errors.Wrap(err, "could not persist user")
	}
	return user.Safe(), denormalized, nil
}

// ChangePassword replaces the password of the given user after checking the current one.
func (s *Store) ChangePassword(email, current, password string) error {
	if err := s.validator.Validate(passwordChange{Password: password}); err != nil {
		return err
	}

	user, err := s.db.FindUser(email)
	if err != nil {
		if s.db.IsNotFound(err) {
			return apperror.New(apperror.NotFound, "User not found")
		}
		return errors.Wrap(err, "could not get user")
	}

	// Verify current password
	if err = argon2.CompareHashAndPasswordString(user.Password, current); err != nil {
		if err == argon2.ErrMismatchedHashAndPassword || user.Password == "" {
			return apperror.New(apperror.IncorrectPassword, "Incorrect old password")
		}
		return errors.Wrap(err, "could not validate password")
	}

	// Crypt & update password
	user.Password, err = argon2.GenerateFromPasswordString(password, argon2.Default)
	if err != nil {
		return errors.Wrap(err, "could not store user password safe")
	}
	return errors.Wrap(s.db.Save(user), "could not persist user")
}

// SetPassword replaces the password of the given user without any check.
func (s *Store) SetPassword(email, password string) error {
	if err := s.validator.Validate(passwordChange{Password: password}); err != nil {
		return err
	}

	user, err := s.db.FindUser(email)
	if err != nil {
		if s.db.IsNotFound(err) {
			return apperror.New(apperror.NotFound, "User not found")
		}
		return errors.Wrap(err, "could not get user")
	}

	user.Password, err = argon2.GenerateFromPasswordString(password, argon2.Default)
	if err != nil {
		return errors.Wrap(err, "could not store user password safe")
	}
	return errors.Wrap(s.db.Save(user), "could not persist user")
}

// UpsertUser inserts or replaces the given user.
// A stored password is kept when the given user has none.
func (s *Store) UpsertUser(user *model.User) (*model.User, error) {
	if user.Email == "" {
		return nil, apperror.New(apperror.ValidationError, "email is required.")
	}

	existing, err := s.db.FindUser(user.Email)
	if err != nil && !s.db.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not get access to database")
	}

	u := *user
	if existing != nil {
		u.Timestamps = existing.Timestamps
		if u.Password == "" {
			u.Password = existing.Password
		}
	}

	if err = s.db.Save(&u); err != nil {
		return nil, errors.Wrap(err, "could not persist user")
	}
	return u.Safe(), nil
}

// FindUser returns the user for the given email without its password.
func (s *Store) FindUser(email string) (*model.User, error) {
	user, err := s.db.FindUser(email)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, apperror.New(apperror.NotFound, "User not found")
		}
		return nil, errors.Wrap(err, "could not get user")
	}
	return user.Safe(), nil
}

// ListUsers returns all the users without their password.
func (s *Store) ListUsers() ([]*model.User, error) {
	users, err := s.db.FindAllUsers()
	if err != nil {
		return nil, errors.Wrap(err, "could not list users")
	}
	return lo.Map(users, func(u *model.User, _ int) *model.User {
		return u.Safe()
	}), nil
}

// DeleteUser deletes the user for the given email and all the media it owns.
// It returns the ids of the deleted media.
func (s *Store) DeleteUser(email string) ([]string, error) {
	user, err := s.db.FindUser(email)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, apperror.New(apperror.NotFound, "User not found")
		}
		return nil, errors.Wrap(err, "could not get user")
	}

	ids, err := s.DeleteAllMediaForUser(email)
	if err != nil {
		return nil, err
	}
	return ids, errors.Wrap(s.db.Delete(user), "could not delete user")
}
