package search

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfmark/shelfmark/pkg/openlibrary"
)

type handler struct {
	searchService *Service
}

func (h *handler) searchCatalog(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params
	params := CatalogSearchQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	result, err := h.searchService.SearchCatalog(ctx, params.Query, params.Offset, params.Limit)
	if err != nil {
		return errors.WithStack(err)
	}

	docs := result.Docs
	if docs == nil {
		docs = []openlibrary.SearchDoc{}
	}

	return errors.WithStack(c.JSON(http.StatusOK, &CatalogSearchResponse{
		Total:   result.NumFound,
		Results: docs,
	}))
}
