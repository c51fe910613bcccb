package authors

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/models"
	"github.com/shelfmark/shelfmark/pkg/openlibrary"
	"github.com/uptrace/bun"
)

type RetrieveAuthorOptions struct {
	ID   *int
	Name *string
}

type ListAuthorsOptions struct {
	Limit  *int
	Offset *int

	includeTotal bool
}

type Service struct {
	db      *bun.DB
	catalog *openlibrary.Client
}

func NewService(db *bun.DB, catalog *openlibrary.Client) *Service {
	return &Service{db: db, catalog: catalog}
}

// ResolveAuthors turns a work record's author references into local author
// rows, creating any that don't exist yet. Authors the catalog can't serve
// are skipped; if nothing resolves, the sentinel author is returned so a book
// never ends up authorless. Only database failures propagate.
func (svc *Service) ResolveAuthors(ctx context.Context, refs []string) ([]*models.Author, error) {
	log := logger.FromContext(ctx)

	authors := make([]*models.Author, 0, len(refs))
	seen := map[string]bool{}
	for _, ref := range refs {
		remote, err := svc.catalog.FetchAuthor(ctx, ref)
		if err != nil {
			log.Warn("skipping unresolvable author", logger.Data{"ref": ref, "err": err.Error()})
			continue
		}
		if seen[remote.Name] {
			continue
		}
		seen[remote.Name] = true

		author, err := svc.GetOrCreateByName(ctx, remote.Name, remote.Bio)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		authors = append(authors, author)
	}

	if len(authors) == 0 {
		author, err := svc.GetOrCreateByName(ctx, models.UnknownAuthorName, nil)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		authors = append(authors, author)
	}

	return authors, nil
}

// GetOrCreateByName returns the author with the given name, creating it if
// absent. The insert runs against the unique index on name, so two concurrent
// callers with a never-seen name converge on a single row.
func (svc *Service) GetOrCreateByName(ctx context.Context, name string, bio *string) (*models.Author, error) {
	now := time.Now()
	author := &models.Author{
		Name:      name,
		Bio:       bio,
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := svc.db.
		NewInsert().
		Model(author).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if rows > 0 {
		return author, nil
	}

	// Lost the race or the author already existed; fetch the winner's row.
	return svc.RetrieveAuthor(ctx, RetrieveAuthorOptions{Name: &name})
}

func (svc *Service) RetrieveAuthor(ctx context.Context, opts RetrieveAuthorOptions) (*models.Author, error) {
	author := &models.Author{}

	q := svc.db.
		NewSelect().
		Model(author)

	if opts.ID != nil {
		q = q.Where("a.id = ?", *opts.ID)
	}
	if opts.Name != nil {
		q = q.Where("a.name = ?", *opts.Name)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Author")
		}
		return nil, errors.WithStack(err)
	}

	return author, nil
}

func (svc *Service) ListAuthors(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, error) {
	a, _, err := svc.listAuthorsWithTotal(ctx, opts)
	return a, errors.WithStack(err)
}

func (svc *Service) ListAuthorsWithTotal(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, int, error) {
	opts.includeTotal = true
	return svc.listAuthorsWithTotal(ctx, opts)
}

func (svc *Service) listAuthorsWithTotal(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, int, error) {
	authors := []*models.Author{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&authors).
		Order("a.name ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return authors, total, nil
}
