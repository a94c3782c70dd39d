package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/creativespace/internal/app"
)

type user struct {
	app *app.App
}

// Search returns the users matching the `q` query.
func (h *user) Search(c echo.Context) error {
	users, err := h.app.SearchUsers(c.QueryParam("q"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// Show returns the user's profile along with its media.
func (h *user) Show(c echo.Context) error {
	profile, err := h.app.FindProfile(c.Param("email"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}
