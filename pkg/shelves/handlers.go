package shelves

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/models"
)

type handler struct {
	shelfService *Service
}

func currentUser(c echo.Context) *models.User {
	user, _ := c.Get("user").(*models.User)
	return user
}

// retrieve returns the authenticated user's shelf.
func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	shelf, err := h.shelfService.RetrieveShelfForUser(ctx, currentUser(c))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, shelf))
}

// addBook ingests the book if needed and adds it to the user's shelf.
func (h *handler) addBook(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := AddBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	shelf, err := h.shelfService.AddBookToShelf(ctx, currentUser(c), params.OpenLibraryID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, shelf))
}

// removeBook takes a book off the user's shelf.
func (h *handler) removeBook(c echo.Context) error {
	ctx := c.Request().Context()
	bookID, err := strconv.Atoi(c.Param("bookId"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	shelf, err := h.shelfService.RemoveBookFromShelf(ctx, currentUser(c), bookID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, shelf))
}
