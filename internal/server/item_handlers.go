package server

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/creativespace/internal/app"
	"github.com/mdouchement/creativespace/internal/blob"
	"github.com/mdouchement/creativespace/internal/model"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// item contains all media handlers.
type item struct {
	app *app.App
}

type (
	commentParams struct {
		Text string `json:"text"`
	}

	openParams struct {
		Index int `json:"index" validate:"min=0"`
	}
)

// List returns all the displayed media.
func (h *item) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.app.Items())
}

// Upload adds the multipart files to the gallery.
func (h *item) Upload(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Could not read uploaded files.").SetInternal(err)
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "No file provided.")
	}

	files := make([]app.File, 0, len(headers))
	for _, header := range headers {
		file, err := readFile(header)
		if err != nil {
			return err
		}
		files = append(files, file)
	}

	items, err := h.app.Upload(files...)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, items)
}

// Clear removes all the media of the signed in user.
func (h *item) Clear(c echo.Context) error {
	n, err := h.app.ClearMyItems()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}

// Update edits the media details.
func (h *item) Update(c echo.Context) error {
	var params model.ItemDetails
	if err := c.Bind(&params); err != nil {
		return err
	}

	item, err := h.app.UpdateItemDetails(c.Param("id"), params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

// Delete removes the media.
func (h *item) Delete(c echo.Context) error {
	if err := h.app.DeleteItem(c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Like toggles the like of the media.
func (h *item) Like(c echo.Context) error {
	item, err := h.app.ToggleLike(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

// View counts a view of the media.
func (h *item) View(c echo.Context) error {
	item, err := h.app.IncrementView(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

// Save copies the media into the signed in user's collection.
func (h *item) Save(c echo.Context) error {
	item, err := h.app.SaveToCollection(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, item)
}

// Comment adds a comment to the media.
func (h *item) Comment(c echo.Context) error {
	var params commentParams
	if err := c.Bind(&params); err != nil {
		return err
	}

	comment, err := h.app.AddComment(c.Param("id"), params.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, comment)
}

// Uncomment removes a comment from the media.
func (h *item) Uncomment(c echo.Context) error {
	if err := h.app.DeleteComment(c.Param("id"), c.Param("comment")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Blob serves the payload behind an ephemeral handle.
func (h *item) Blob(c echo.Context) error {
	payload, contentType, err := h.app.Blob(blob.RoutePrefix + c.Param("id"))
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "private, no-cache")
	return c.Blob(http.StatusOK, lo.Ternary(contentType != "", contentType, echo.MIMEOctetStream), payload)
}

///// Viewer
////
//

// Viewer returns the media displayed in the viewer.
func (h *item) Viewer(c echo.Context) error {
	item := h.app.Viewer()
	if item == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, item)
}

// Open opens the viewer on the media at the given index.
func (h *item) Open(c echo.Context) error {
	var params openParams
	if err := c.Bind(&params); err != nil {
		return err
	}

	item, err := h.app.OpenItem(params.Index)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

// Next moves the viewer forward.
func (h *item) Next(c echo.Context) error {
	item, err := h.app.Next()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

// Prev moves the viewer backward.
func (h *item) Prev(c echo.Context) error {
	item, err := h.app.Prev()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

// Close closes the viewer.
func (h *item) Close(c echo.Context) error {
	h.app.CloseViewer()
	return c.NoContent(http.StatusNoContent)
}

func readFile(header *multipart.FileHeader) (app.File, error) {
	f, err := header.Open()
	if err != nil {
		return app.File{}, errors.Wrap(err, "could not open uploaded file")
	}
	defer f.Close()

	payload, err := io.ReadAll(f)
	if err != nil {
		return app.File{}, errors.Wrap(err, "could not read uploaded file")
	}

	contentType := header.Header.Get(echo.HeaderContentType)
	if contentType == "" || contentType == echo.MIMEOctetStream {
		contentType = http.DetectContentType(payload)
	}

	return app.File{
		Name:        header.Filename,
		ContentType: contentType,
		Payload:     payload,
	}, nil
}
