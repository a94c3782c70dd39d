package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/creativespace/internal/app"
	"github.com/mdouchement/creativespace/internal/model"
)

// config contains the site branding handlers.
type config struct {
	app *app.App
}

type (
	headerParams struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}

	photoParams struct {
		URL string `json:"url" validate:"required,http_url"`
	}
)

// Show returns the site branding.
func (h *config) Show(c echo.Context) error {
	return c.JSON(http.StatusOK, h.app.Header())
}

// Update edits the site title and description.
func (h *config) Update(c echo.Context) error {
	var params headerParams
	if err := c.Bind(&params); err != nil {
		return err
	}

	header, err := h.app.UpdateHeader(params.Title, params.Description)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, header)
}

// UpdatePhoto replaces the header photo by the multipart `photo` file or a JSON `url`.
func (h *config) UpdatePhoto(c echo.Context) error {
	var source model.Source

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		header, err := c.FormFile("photo")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "No photo provided.").SetInternal(err)
		}
		file, err := readFile(header)
		if err != nil {
			return err
		}
		source = model.LocalSource(file.Payload, file.ContentType)
	} else {
		var params photoParams
		if err := c.Bind(&params); err != nil {
			return err
		}
		source = model.RemoteSource(params.URL)
	}

	header, err := h.app.UpdateHeaderPhoto(source)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, header)
}

// DeletePhoto removes the header photo.
func (h *config) DeletePhoto(c echo.Context) error {
	header, err := h.app.UpdateHeaderPhoto(model.Source{})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, header)
}
