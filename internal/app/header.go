package app

import (
	"strings"

	"github.com/mdouchement/creativespace/internal/apperror"
	"github.com/mdouchement/creativespace/internal/model"
)

// UpdateHeader edits the site title and description.
func (a *App) UpdateHeader(title, description string) (_ Header, err error) {
	defer a.report(&err)

	title = strings.TrimSpace(title)
	if title == "" {
		return Header{}, apperror.New(apperror.ValidationError, "title is required.")
	}

	a.mu.Lock()
	a.header.Title = title
	a.header.Description = strings.TrimSpace(description)
	a.persistHeader()
	a.mu.Unlock()

	a.notify(NotifySuccess, "Header updated")
	return a.Header(), nil
}

// UpdateHeaderPhoto replaces the header photo. A zero source removes it.
func (a *App) UpdateHeaderPhoto(photo model.Source) (_ Header, err error) {
	defer a.report(&err)

	if photo.Size() > MaxHeaderPhotoSize {
		return Header{}, apperror.New(apperror.ValidationError, "Image must be smaller than 10MB.")
	}
	if !photo.IsLocal() && photo.Remote != "" && !model.IsRemoteURL(photo.Remote) {
		return Header{}, apperror.New(apperror.ValidationError, "Photo must be an http(s) URL.")
	}

	a.mu.Lock()
	config := *a.header
	config.Photo = photo
	a.setHeader(&config)
	a.persistHeader()
	a.mu.Unlock()

	a.notify(NotifySuccess, "Header photo updated")
	return a.Header(), nil
}

// persistHeader saves the config behind. Must be called with the lock held.
func (a *App) persistHeader() {
	snapshot := *a.header
	a.writer.Enqueue("config", func() error {
		return a.store.SaveConfig(&snapshot)
	})
}
