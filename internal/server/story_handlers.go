package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/creativespace/internal/app"
	"github.com/mdouchement/creativespace/internal/model"
)

type story struct {
	app *app.App
}

// List returns the active stories, newest first.
func (h *story) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.app.ActiveStories())
}

// Create posts a story.
func (h *story) Create(c echo.Context) error {
	var params app.StoryInput
	if err := c.Bind(&params); err != nil {
		return err
	}

	story, err := h.app.PostStory(params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, story)
}

// Update edits a story.
func (h *story) Update(c echo.Context) error {
	var params model.StoryPatch
	if err := c.Bind(&params); err != nil {
		return err
	}

	story, err := h.app.UpdateStory(c.Param("id"), params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, story)
}

// Delete removes a story.
func (h *story) Delete(c echo.Context) error {
	if err := h.app.DeleteStory(c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Watched marks a story as watched.
func (h *story) Watched(c echo.Context) error {
	if err := h.app.MarkStoryWatched(c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
