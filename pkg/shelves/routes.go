package shelves

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfmark/shelfmark/pkg/authors"
	"github.com/shelfmark/shelfmark/pkg/books"
	"github.com/shelfmark/shelfmark/pkg/covers"
	"github.com/shelfmark/shelfmark/pkg/openlibrary"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers shelf routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, catalog *openlibrary.Client, coverStore *covers.Store) {
	authorService := authors.NewService(db, catalog)
	bookService := books.NewService(db, catalog, authorService, coverStore)

	h := &handler{
		shelfService: NewService(db, bookService),
	}

	g.GET("", h.retrieve)
	g.POST("/books", h.addBook)
	g.DELETE("/books/:bookId", h.removeBook)
}
