package app

import (
	"context"

	"github.com/mdouchement/creativespace/internal/apperror"
	"github.com/mdouchement/creativespace/internal/localstore"
	"github.com/mdouchement/creativespace/internal/model"
	"github.com/mdouchement/creativespace/pkg/libcs"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// A GoogleProfile is the identity returned by a Google sign-in.
type GoogleProfile struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Register creates an account and signs it in.
func (a *App) Register(ctx context.Context, email, password, name string) (_ *model.User, err error) {
	defer a.report(&err)

	if err = a.store.ValidateRegistration(email, password, name); err != nil {
		return nil, err
	}

	var user *model.User
	if a.auth != nil {
		var account libcs.Account
		account, err = a.auth.SignUp(ctx, email, password, name)
		if err != nil {
			return nil, a.remoteError(err, apperror.AlreadyExists)
		}
		user, err = a.upsertAccount(account)
	} else {
		user, err = a.store.RegisterUser(email, password, name)
	}
	if err != nil {
		return nil, err
	}

	a.signIn(user)
	a.notify(NotifySuccess, "Welcome, "+user.Name+"!")
	return user, nil
}

// Login checks the credentials and signs the user in.
func (a *App) Login(ctx context.Context, email, password string) (_ *model.User, err error) {
	defer a.report(&err)

	var user *model.User
	if a.auth != nil {
		var account libcs.Account
		account, err = a.auth.SignIn(ctx, email, password)
		if err != nil {
			return nil, a.remoteError(err, apperror.InvalidCredentials)
		}
		user, err = a.upsertAccount(account)
	} else {
		user, err = a.store.AuthenticateUser(email, password)
	}
	if err != nil {
		return nil, err
	}

	a.signIn(user)
	a.notify(NotifySuccess, "Welcome back, "+user.Name+"!")
	return user, nil
}

// GoogleLogin signs in the user identified by a Google profile, creating its record when needed.
func (a *App) GoogleLogin(profile GoogleProfile) (_ *model.User, err error) {
	defer a.report(&err)

	if profile.Email == "" {
		return nil, apperror.New(apperror.ValidationError, "email is required.")
	}

	user, err := a.store.FindUser(profile.Email)
	switch {
	case err == nil:
		// The local profile wins over the Google one.
	case apperror.Is(err, apperror.NotFound):
		user, err = a.store.UpsertUser(&model.User{
			Email:  profile.Email,
			Name:   lo.Ternary(profile.Name != "", profile.Name, profile.Email),
			Avatar: lo.Ternary(profile.Avatar != "", profile.Avatar, model.DefaultAvatar(profile.Name)),
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	a.signIn(user)
	a.notify(NotifySuccess, "Welcome, "+user.Name+"!")
	return user, nil
}

// Logout signs the current user out.
func (a *App) Logout() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.session.User = nil
	if err := a.slot.Remove(localstore.KeyCurrentUser); err != nil {
		a.fail(err, "could not clear session")
	}
	a.notify(NotifySuccess, "Signed out")
}

// UpdateProfile edits the signed in user's profile.
// A name or avatar change is propagated to every media and story authored by the user.
func (a *App) UpdateProfile(patch model.ProfilePatch) (_ *model.User, err error) {
	defer a.report(&err)

	if patch.Avatar != nil && len(*patch.Avatar) > MaxAvatarSize {
		return nil, apperror.New(apperror.ValidationError, "Avatar must be smaller than 2MB.")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	current, err := a.requireSession("Please sign in to edit your profile.")
	if err != nil {
		return nil, err
	}

	user, denormalized, err := a.store.UpdateUser(current.Email, patch)
	if apperror.Is(err, apperror.NotFound) {
		// The record vanished (e.g. storage cleared), recreate it from the session.
		a.log.WithField("user", current.Email).Warn("user record missing, recreating it")

		recovered := *current
		denormalized = recovered.Apply(patch)
		user, err = a.store.UpsertUser(&recovered)
	}
	if err != nil {
		return nil, err
	}

	a.session.User = user
	a.saveSessionUser()

	if denormalized {
		a.repairAuthor(user)
	}

	a.notify(NotifySuccess, "Profile updated")
	return user.Safe(), nil
}

// ChangePassword replaces the signed in user's password.
func (a *App) ChangePassword(current, password string) (err error) {
	defer a.report(&err)

	a.mu.Lock()
	user, err := a.requireSession("Please sign in to change your password.")
	a.mu.Unlock()
	if err != nil {
		return err
	}

	if err = a.store.ChangePassword(user.Email, current, password); err != nil {
		return err
	}
	a.notify(NotifySuccess, "Password changed")
	return nil
}

// SearchUsers returns the users whose name, bio, email or location contains the query.
func (a *App) SearchUsers(query string) ([]*model.User, error) {
	users, err := a.store.ListUsers()
	if err != nil {
		return nil, err
	}

	return lo.Filter(users, func(u *model.User, _ int) bool {
		return u.Matches(query)
	}), nil
}

// A Profile is a user with the media it owns.
type Profile struct {
	User  *model.User        `json:"user"`
	Items []*model.MediaItem `json:"items"`
}

// FindProfile returns the user for the given email along with its media.
func (a *App) FindProfile(email string) (*Profile, error) {
	user, err := a.store.FindUser(email)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	return &Profile{User: user, Items: a.itemsOf(email)}, nil
}

func (a *App) itemsOf(email string) []*model.MediaItem {
	return lo.FilterMap(a.items, func(item *model.MediaItem, _ int) (*model.MediaItem, bool) {
		return item.Clone(), item.UserID == email
	})
}

func (a *App) signIn(user *model.User) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.session.User = user.Safe()
	a.saveSessionUser()
}

// upsertAccount creates the local record of a remote account. An existing record is kept as is.
func (a *App) upsertAccount(account libcs.Account) (*model.User, error) {
	user, err := a.store.FindUser(account.Email)
	if err == nil {
		return user, nil
	}
	if !apperror.Is(err, apperror.NotFound) {
		return nil, err
	}

	return a.store.UpsertUser(&model.User{
		Email:  account.Email,
		Name:   account.Name,
		Avatar: model.DefaultAvatar(account.Name),
	})
}

// repairAuthor rewrites the author of the user's media and stories.
// Must be called with the lock held.
func (a *App) repairAuthor(user *model.User) {
	for _, item := range a.items {
		if item.UserID != user.Email {
			continue
		}
		item.AuthorName = user.Name
		item.AuthorAvatar = user.Avatar
	}

	email, name, avatar := user.Email, user.Name, user.Avatar
	a.writer.Enqueue("repair", func() error {
		_, err := a.store.RepairAuthor(email, name, avatar)
		return err
	})

	changed := false
	for _, s := range a.storyList {
		if s.UserID != user.Email {
			continue
		}
		s.Author = user.Name
		s.AuthorAvatar = user.Avatar
		changed = true
	}
	if changed {
		if err := a.saveStories(); err != nil {
			a.fail(err, "could not repair stories")
		}
	}
}

func (a *App) remoteError(err error, refusal apperror.Kind) error {
	if libcs.IsNetworkError(err) {
		a.log.Errorf("remote authentication: %+v", err)
		return apperror.New(apperror.NetworkError, "Could not reach the authentication server.")
	}

	var aerr *libcs.AuthError
	if errors.As(err, &aerr) {
		return apperror.New(refusal, aerr.Error())
	}
	return errors.Wrap(err, "remote authentication")
}
