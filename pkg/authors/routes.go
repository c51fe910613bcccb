package authors

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfmark/shelfmark/pkg/openlibrary"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers author routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, catalog *openlibrary.Client) {
	h := &handler{
		authorService: NewService(db, catalog),
	}

	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
}
