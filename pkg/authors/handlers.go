package authors

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/models"
)

type handler struct {
	authorService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	author, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, author))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListAuthorsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	authors, total, err := h.authorService.ListAuthorsWithTotal(ctx, ListAuthorsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Authors []*models.Author `json:"authors"`
		Total   int              `json:"total"`
	}{authors, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
