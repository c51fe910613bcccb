package books

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfmark/shelfmark/pkg/authors"
	"github.com/shelfmark/shelfmark/pkg/covers"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/models"
	"github.com/shelfmark/shelfmark/pkg/openlibrary"
	"github.com/uptrace/bun"
)

type RetrieveBookOptions struct {
	ID            *int
	OpenLibraryID *string
}

type ListBooksOptions struct {
	Limit    *int
	Offset   *int
	AuthorID *int

	includeTotal bool
}

type UpdateBookOptions struct {
	Columns []string
}

type Service struct {
	db            *bun.DB
	catalog       *openlibrary.Client
	authorService *authors.Service
	coverStore    *covers.Store
}

func NewService(db *bun.DB, catalog *openlibrary.Client, authorService *authors.Service, coverStore *covers.Store) *Service {
	return &Service{
		db:            db,
		catalog:       catalog,
		authorService: authorService,
		coverStore:    coverStore,
	}
}

// GetOrCreateBook returns the local book for an external catalog id, ingesting
// it from the catalog if it hasn't been seen before. The second return value
// reports whether this call created the row.
//
// A book that already exists is returned without any network traffic. When the
// work record itself can't be fetched, nothing is persisted and the caller
// gets an ingestion failure; a missing cover or unresolvable author never
// fails the ingestion.
func (svc *Service) GetOrCreateBook(ctx context.Context, externalID string) (*models.Book, bool, error) {
	log := logger.FromContext(ctx).Data(logger.Data{"openlibrary_id": externalID})

	book, err := svc.RetrieveBook(ctx, RetrieveBookOptions{OpenLibraryID: &externalID})
	if err == nil {
		return book, false, nil
	}
	if !errors.Is(err, errcodes.NotFound("Book")) {
		return nil, false, errors.WithStack(err)
	}

	work, err := svc.catalog.FetchWork(ctx, externalID)
	if err != nil {
		log.Err(err).Warn("work fetch failed")
		if errors.Is(err, openlibrary.ErrRemoteMalformed) {
			return nil, false, errcodes.IngestionFailed("the catalog returned an unusable work record")
		}
		return nil, false, errcodes.IngestionFailed("the catalog couldn't serve this work")
	}

	title := work.Title
	if title == "" {
		title = models.DefaultTitle
	}

	bookAuthors, err := svc.authorService.ResolveAuthors(ctx, work.AuthorRefs)
	if err != nil {
		return nil, false, errors.WithStack(err)
	}

	book, created, err := svc.createBook(ctx, &models.Book{
		OpenLibraryID: externalID,
		Title:         title,
		Summary:       work.Description,
	}, bookAuthors)
	if err != nil {
		return nil, false, errors.WithStack(err)
	}
	if !created {
		// A concurrent caller won the insert race; their row is the book.
		return book, false, nil
	}

	if work.CoverID != nil {
		svc.attachCover(ctx, book, *work.CoverID)
	}

	log.Info("ingested book", logger.Data{"book_id": book.ID, "title": book.Title})
	return book, true, nil
}

// createBook inserts the book and its author set in one transaction. The
// insert runs against the unique index on openlibrary_id; losing the race is
// not an error, the winner's row is fetched and returned instead.
func (svc *Service) createBook(ctx context.Context, book *models.Book, bookAuthors []*models.Author) (*models.Book, bool, error) {
	now := time.Now()
	book.CreatedAt = now
	book.UpdatedAt = now

	created := false
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.
			NewInsert().
			Model(book).
			On("CONFLICT (openlibrary_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return errors.WithStack(err)
		}
		if rows == 0 {
			return nil
		}
		created = true

		joins := make([]*models.BookAuthor, 0, len(bookAuthors))
		for _, author := range bookAuthors {
			joins = append(joins, &models.BookAuthor{BookID: book.ID, AuthorID: author.ID})
		}
		_, err = tx.
			NewInsert().
			Model(&joins).
			On("CONFLICT DO NOTHING").
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, false, errors.WithStack(err)
	}

	if !created {
		existing, err := svc.RetrieveBook(ctx, RetrieveBookOptions{OpenLibraryID: &book.OpenLibraryID})
		if err != nil {
			return nil, false, errors.WithStack(err)
		}
		return existing, false, nil
	}

	book.Authors = bookAuthors
	return book, true, nil
}

// attachCover downloads and stores the cover image. Best-effort: any failure
// is logged and the book stays coverless.
func (svc *Service) attachCover(ctx context.Context, book *models.Book, coverID int) {
	log := logger.FromContext(ctx).Data(logger.Data{"book_id": book.ID, "cover_id": coverID})

	data, err := svc.catalog.FetchCoverBytes(ctx, coverID, openlibrary.CoverSizeLarge)
	if err != nil {
		log.Err(err).Warn("cover fetch failed")
		return
	}

	filename, err := svc.coverStore.Save(book.OpenLibraryID, data)
	if err != nil {
		log.Err(err).Warn("cover save failed")
		return
	}

	book.CoverImagePath = &filename
	book.UpdatedAt = time.Now()
	_, err = svc.db.
		NewUpdate().
		Model(book).
		Column("cover_image_path", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		log.Err(err).Warn("cover attach failed")
		book.CoverImagePath = nil
	}
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book).
		Relation("Authors", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("a.name ASC")
		})

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}
	if opts.OpenLibraryID != nil {
		q = q.Where("b.openlibrary_id = ?", *opts.OpenLibraryID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	b, _, err := svc.listBooksWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	opts.includeTotal = true
	return svc.listBooksWithTotal(ctx, opts)
}

func (svc *Service) listBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	books := []*models.Book{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&books).
		Relation("Authors", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("a.name ASC")
		}).
		Order("b.created_at ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.AuthorID != nil {
		q = q.
			Join("JOIN book_authors AS ba ON ba.book_id = b.id").
			Where("ba.author_id = ?", *opts.AuthorID)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return books, total, nil
}

func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, opts UpdateBookOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	book.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(book).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Book")
		}
		return errors.WithStack(err)
	}

	return nil
}

// DeleteBook removes the book, its associations, and its owned cover file.
// The file is removed after the row is gone; a cover that was never written
// doesn't error.
func (svc *Service) DeleteBook(ctx context.Context, book *models.Book) error {
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewDelete().
			Model((*models.BookAuthor)(nil)).
			Where("book_id = ?", book.ID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model((*models.ShelfBook)(nil)).
			Where("book_id = ?", book.ID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model(book).
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if book.CoverImagePath != nil {
		if err := svc.coverStore.Remove(*book.CoverImagePath); err != nil {
			logger.FromContext(ctx).Err(err).Warn("cover cleanup failed", logger.Data{"book_id": book.ID})
		}
	}

	return nil
}
