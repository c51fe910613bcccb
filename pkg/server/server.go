package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/shelfmark/shelfmark/pkg/auth"
	"github.com/shelfmark/shelfmark/pkg/authors"
	"github.com/shelfmark/shelfmark/pkg/binder"
	"github.com/shelfmark/shelfmark/pkg/books"
	"github.com/shelfmark/shelfmark/pkg/config"
	"github.com/shelfmark/shelfmark/pkg/covers"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/openlibrary"
	"github.com/shelfmark/shelfmark/pkg/search"
	"github.com/shelfmark/shelfmark/pkg/shelves"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	catalog := openlibrary.NewClient(cfg)
	coverStore := covers.NewStore(cfg.CoverDir)

	// Register auth routes and get the auth service
	authService := auth.RegisterRoutes(e, db, cfg.JWTSecret)
	authMiddleware := auth.NewMiddleware(authService)

	// Books routes. Reads are open; importing goes through the shelf, so the
	// group only needs to know who the user is when one is signed in.
	booksGroup := e.Group("/books")
	booksGroup.Use(authMiddleware.AuthenticateOptional)
	books.RegisterRoutesWithGroup(booksGroup, db, catalog, coverStore)

	// Authors routes
	authorsGroup := e.Group("/authors")
	authorsGroup.Use(authMiddleware.AuthenticateOptional)
	authors.RegisterRoutesWithGroup(authorsGroup, db, catalog)

	// Shelf routes require a signed-in user
	shelfGroup := e.Group("/shelf")
	shelfGroup.Use(authMiddleware.Authenticate)
	shelves.RegisterRoutesWithGroup(shelfGroup, db, catalog, coverStore)

	// Catalog search routes
	searchGroup := e.Group("/search")
	searchGroup.Use(authMiddleware.AuthenticateOptional)
	search.RegisterRoutesWithGroup(searchGroup, catalog)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
