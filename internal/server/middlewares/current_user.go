package middlewares

import (
	"github.com/labstack/echo/v4"
	"github.com/mdouchement/creativespace/internal/apperror"
	"github.com/mdouchement/creativespace/internal/model"
)

// CurrentUserContextKey is the key to retrieve the current_user from echo.Context.
const CurrentUserContextKey = "current_user"

// A SessionHolder exposes the signed in user.
type SessionHolder interface {
	CurrentUser() *model.User
}

// CurrentUser checks a user is signed in and store it into echo.Context.
func CurrentUser(s SessionHolder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := s.CurrentUser()
			if user == nil {
				return apperror.New(apperror.SignInRequired, "Please sign in.")
			}

			// Store current_user for handlers.
			c.Set(CurrentUserContextKey, user)
			return next(c)
		}
	}
}
