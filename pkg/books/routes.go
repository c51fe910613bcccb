package books

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfmark/shelfmark/pkg/authors"
	"github.com/shelfmark/shelfmark/pkg/covers"
	"github.com/shelfmark/shelfmark/pkg/openlibrary"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers book routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, catalog *openlibrary.Client, coverStore *covers.Store) {
	authorService := authors.NewService(db, catalog)
	bookService := NewService(db, catalog, authorService, coverStore)

	h := &handler{
		bookService: bookService,
		coverStore:  coverStore,
	}

	g.GET("", h.list)
	g.POST("", h.importBook)
	g.GET("/:id", h.retrieve)
	g.POST("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.GET("/:id/cover", h.cover)
}
