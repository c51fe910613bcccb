package search

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfmark/shelfmark/pkg/openlibrary"
)

// RegisterRoutesWithGroup registers search routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, catalog *openlibrary.Client) {
	searchService := NewService(catalog)

	h := &handler{
		searchService: searchService,
	}

	g.GET("", h.searchCatalog)
}
