package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/creativespace/internal/app"
	"github.com/mdouchement/creativespace/internal/model"
)

// auth contains all authentication handlers.
type auth struct {
	app *app.App
}

type (
	registerParams struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}

	loginParams struct {
		Email    string `json:"email"    validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	passwordParams struct {
		CurrentPassword string `json:"current_password" validate:"required"`
		NewPassword     string `json:"new_password"     validate:"required"`
	}
)

///// Register
////
//

// Register handler is used to register the user.
func (h *auth) Register(c echo.Context) error {
	var params registerParams
	if err := c.Bind(&params); err != nil {
		return err
	}

	user, err := h.app.Register(c.Request().Context(), params.Email, params.Password, params.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

///// Login
////
//

// Login handler is used to sign in the user.
func (h *auth) Login(c echo.Context) error {
	var params loginParams
	if err := c.Bind(&params); err != nil {
		return err
	}

	user, err := h.app.Login(c.Request().Context(), params.Email, params.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Google handler signs in the user from a Google profile.
func (h *auth) Google(c echo.Context) error {
	var params app.GoogleProfile
	if err := c.Bind(&params); err != nil {
		return err
	}

	user, err := h.app.GoogleLogin(params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Logout handler signs out the current user.
func (h *auth) Logout(c echo.Context) error {
	h.app.Logout()
	return c.NoContent(http.StatusNoContent)
}

///// Current user
////
//

// Show returns the current user and its watched stories.
func (h *auth) Show(c echo.Context) error {
	return c.JSON(http.StatusOK, model.Session{
		User:           currentUser(c),
		WatchedStories: h.app.Session().WatchedStories,
	})
}

// Update edits the current user's profile.
func (h *auth) Update(c echo.Context) error {
	var params model.ProfilePatch
	if err := c.Bind(&params); err != nil {
		return err
	}

	user, err := h.app.UpdateProfile(params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdatePassword changes the current user's password.
func (h *auth) UpdatePassword(c echo.Context) error {
	var params passwordParams
	if err := c.Bind(&params); err != nil {
		return err
	}

	if err := h.app.ChangePassword(params.CurrentPassword, params.NewPassword); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
