package shelves

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfmark/shelfmark/pkg/books"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/models"
	"github.com/uptrace/bun"
)

type Service struct {
	db          *bun.DB
	bookService *books.Service
}

func NewService(db *bun.DB, bookService *books.Service) *Service {
	return &Service{db: db, bookService: bookService}
}

// AddBookToShelf ingests the book for the given external id if needed and
// ensures it's on the user's shelf. Adding a book that's already shelved is a
// no-op. A book resolver failure leaves shelf state untouched.
func (svc *Service) AddBookToShelf(ctx context.Context, user *models.User, externalID string) (*models.Shelf, error) {
	if user == nil {
		return nil, errcodes.Unauthorized("You need to be signed in to shelve books.")
	}

	book, _, err := svc.bookService.GetOrCreateBook(ctx, externalID)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	shelf, err := svc.GetOrCreateShelf(ctx, user)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Set-union add: the unique (shelf_id, book_id) index absorbs repeats.
	_, err = svc.db.
		NewInsert().
		Model(&models.ShelfBook{ShelfID: shelf.ID, BookID: book.ID}).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return svc.retrieveShelf(ctx, shelf.ID)
}

// RemoveBookFromShelf takes a book off the user's shelf. The book row itself
// is left alone; other users may still have it shelved.
func (svc *Service) RemoveBookFromShelf(ctx context.Context, user *models.User, bookID int) (*models.Shelf, error) {
	if user == nil {
		return nil, errcodes.Unauthorized("You need to be signed in to shelve books.")
	}

	shelf, err := svc.GetOrCreateShelf(ctx, user)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	_, err = svc.db.
		NewDelete().
		Model((*models.ShelfBook)(nil)).
		Where("shelf_id = ?", shelf.ID).
		Where("book_id = ?", bookID).
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return svc.retrieveShelf(ctx, shelf.ID)
}

// RetrieveShelfForUser returns the user's shelf with its books, creating the
// shelf on first use.
func (svc *Service) RetrieveShelfForUser(ctx context.Context, user *models.User) (*models.Shelf, error) {
	if user == nil {
		return nil, errcodes.Unauthorized("You need to be signed in to view your shelf.")
	}

	shelf, err := svc.GetOrCreateShelf(ctx, user)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return svc.retrieveShelf(ctx, shelf.ID)
}

// GetOrCreateShelf returns the user's single shelf, creating it lazily. The
// unique index on user_id means concurrent first calls converge on one row.
func (svc *Service) GetOrCreateShelf(ctx context.Context, user *models.User) (*models.Shelf, error) {
	now := time.Now()
	shelf := &models.Shelf{
		UserID:    user.ID,
		Name:      models.DefaultShelfName,
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := svc.db.
		NewInsert().
		Model(shelf).
		On("CONFLICT (user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if rows > 0 {
		return shelf, nil
	}

	existing := &models.Shelf{}
	err = svc.db.
		NewSelect().
		Model(existing).
		Where("s.user_id = ?", user.ID).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return existing, nil
}

func (svc *Service) retrieveShelf(ctx context.Context, id int) (*models.Shelf, error) {
	shelf := &models.Shelf{}

	err := svc.db.
		NewSelect().
		Model(shelf).
		Relation("Books", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("b.created_at ASC")
		}).
		Relation("Books.Authors", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("a.name ASC")
		}).
		Where("s.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Shelf")
		}
		return nil, errors.WithStack(err)
	}

	return shelf, nil
}
