package books

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfmark/shelfmark/pkg/covers"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/models"
)

type handler struct {
	bookService *Service
	coverStore  *covers.Store
}

// importBook ingests a book from the remote catalog by its external id.
func (h *handler) importBook(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ImportBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, created, err := h.bookService.GetOrCreateBook(ctx, params.OpenLibraryID)
	if err != nil {
		return errors.WithStack(err)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return errors.WithStack(c.JSON(status, book))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	books, total, err := h.bookService.ListBooksWithTotal(ctx, ListBooksOptions{
		Limit:    &params.Limit,
		Offset:   &params.Offset,
		AuthorID: params.AuthorID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Books []*models.Book `json:"books"`
		Total int            `json:"total"`
	}{books, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	// Bind params.
	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	opts := UpdateBookOptions{Columns: []string{}}

	if params.Title != nil && *params.Title != book.Title {
		book.Title = *params.Title
		opts.Columns = append(opts.Columns, "title")
	}
	if params.Summary != nil {
		book.Summary = params.Summary
		opts.Columns = append(opts.Columns, "summary")
	}
	if params.Rating != nil && *params.Rating != book.Rating {
		book.Rating = *params.Rating
		opts.Columns = append(opts.Columns, "rating")
	}

	err = h.bookService.UpdateBook(ctx, book, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	err = h.bookService.DeleteBook(ctx, book)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

// cover serves the book's stored cover image.
func (h *handler) cover(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	if book.CoverImagePath == nil {
		return errcodes.NotFound("Cover")
	}

	return errors.WithStack(c.File(h.coverStore.Path(*book.CoverImagePath)))
}
