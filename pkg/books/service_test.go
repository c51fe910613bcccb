package books

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/shelfmark/shelfmark/pkg/authors"
	"github.com/shelfmark/shelfmark/pkg/config"
	"github.com/shelfmark/shelfmark/pkg/covers"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/migrations"
	"github.com/shelfmark/shelfmark/pkg/models"
	"github.com/shelfmark/shelfmark/pkg/openlibrary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var jpegBytes = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 0x4a, 0x46, 0x49, 0x46}

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	// A single connection keeps every query on the same in-memory database.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	db.RegisterModel((*models.BookAuthor)(nil), (*models.ShelfBook)(nil))

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// fakeCatalog is a canned Open Library for ingestion tests. It counts
// requests so tests can assert the cache-first policy.
type fakeCatalog struct {
	workJSON   map[string]string
	authorJSON map[string]string
	coverJPEG  map[string][]byte

	workRequests atomic.Int32
}

func (f *fakeCatalog) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/works/", func(w http.ResponseWriter, r *http.Request) {
		f.workRequests.Add(1)
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/works/"), ".json")
		body, ok := f.workJSON[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	})
	mux.HandleFunc("/authors/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/authors/"), ".json")
		body, ok := f.authorJSON[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	})
	mux.HandleFunc("/b/id/", func(w http.ResponseWriter, r *http.Request) {
		data, ok := f.coverJPEG[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)
	})
	return mux
}

type testEnv struct {
	db         *bun.DB
	service    *Service
	coverStore *covers.Store
	catalog    *fakeCatalog
}

func newTestEnv(t *testing.T, catalog *fakeCatalog) *testEnv {
	t.Helper()

	db := setupTestDB(t)

	srv := httptest.NewServer(catalog.handler())
	t.Cleanup(srv.Close)

	cfg := config.NewForTest()
	cfg.CatalogBaseURL = srv.URL
	cfg.CatalogCoversBaseURL = srv.URL
	cfg.CatalogRequestsPerSecond = 1000
	client := openlibrary.NewClient(cfg)

	coverStore := covers.NewStore(t.TempDir())
	authorService := authors.NewService(db, client)

	return &testEnv{
		db:         db,
		service:    NewService(db, client, authorService, coverStore),
		coverStore: coverStore,
		catalog:    catalog,
	}
}

func countBooksByExternalID(t *testing.T, db *bun.DB, externalID string) int {
	t.Helper()
	count, err := db.NewSelect().
		Model((*models.Book)(nil)).
		Where("openlibrary_id = ?", externalID).
		Count(context.Background())
	require.NoError(t, err)
	return count
}

func TestGetOrCreateBook_IngestsWork(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &fakeCatalog{
		workJSON: map[string]string{
			"OL45883W": `{
				"title": "Fantastic Mr Fox",
				"description": "A cunning fox outwits three farmers.",
				"covers": [6498519],
				"authors": [{"author": {"key": "/authors/OL34184A"}}]
			}`,
		},
		authorJSON: map[string]string{
			"OL34184A": `{"name": "Roald Dahl", "bio": "British novelist."}`,
		},
		coverJPEG: map[string][]byte{
			"/b/id/6498519-L.jpg": jpegBytes,
		},
	})
	ctx := context.Background()

	book, created, err := env.service.GetOrCreateBook(ctx, "OL45883W")
	require.NoError(t, err)
	assert.True(t, created)

	assert.Equal(t, "OL45883W", book.OpenLibraryID)
	assert.Equal(t, "Fantastic Mr Fox", book.Title)
	require.NotNil(t, book.Summary)
	assert.Equal(t, "A cunning fox outwits three farmers.", *book.Summary)
	require.Len(t, book.Authors, 1)
	assert.Equal(t, "Roald Dahl", book.Authors[0].Name)

	require.NotNil(t, book.CoverImagePath)
	assert.Equal(t, "OL45883W.jpg", *book.CoverImagePath)
	data, err := os.ReadFile(env.coverStore.Path(*book.CoverImagePath))
	require.NoError(t, err)
	assert.Equal(t, jpegBytes, data)
}

func TestGetOrCreateBook_SecondCallIsCacheHit(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &fakeCatalog{
		workJSON: map[string]string{
			"OL1W": `{"title": "The Dispossessed", "authors": [{"author": {"key": "/authors/OL1A"}}]}`,
		},
		authorJSON: map[string]string{
			"OL1A": `{"name": "Ursula K. Le Guin"}`,
		},
	})
	ctx := context.Background()

	first, created, err := env.service.GetOrCreateBook(ctx, "OL1W")
	require.NoError(t, err)
	assert.True(t, created)
	requestsAfterFirst := env.catalog.workRequests.Load()

	second, created, err := env.service.GetOrCreateBook(ctx, "OL1W")
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, requestsAfterFirst, env.catalog.workRequests.Load(),
		"cache hit should make no network request")
	assert.Equal(t, 1, countBooksByExternalID(t, env.db, "OL1W"))
}

func TestGetOrCreateBook_MissingTitleGetsDefault(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &fakeCatalog{
		workJSON: map[string]string{
			"OL2W": `{"authors": [{"author": {"key": "/authors/OL1A"}}]}`,
		},
		authorJSON: map[string]string{
			"OL1A": `{"name": "Anonymous"}`,
		},
	})

	book, created, err := env.service.GetOrCreateBook(context.Background(), "OL2W")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.DefaultTitle, book.Title)
}

func TestGetOrCreateBook_SentinelAuthorFallback(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &fakeCatalog{
		workJSON: map[string]string{
			"OL3W": `{"title": "Beowulf"}`,
		},
	})

	book, created, err := env.service.GetOrCreateBook(context.Background(), "OL3W")
	require.NoError(t, err)
	assert.True(t, created)
	require.Len(t, book.Authors, 1)
	assert.Equal(t, models.UnknownAuthorName, book.Authors[0].Name)
}

func TestGetOrCreateBook_CoverFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &fakeCatalog{
		workJSON: map[string]string{
			// The cover id points at an image the covers host doesn't have.
			"OL4W": `{"title": "Lost Cover", "covers": [999]}`,
		},
	})

	book, created, err := env.service.GetOrCreateBook(context.Background(), "OL4W")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Nil(t, book.CoverImagePath)

	// The row for it is persisted.
	assert.Equal(t, 1, countBooksByExternalID(t, env.db, "OL4W"))
}

func TestGetOrCreateBook_WorkFetchFailureLeavesNoRow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &fakeCatalog{})

	_, _, err := env.service.GetOrCreateBook(context.Background(), "OLGONEW")
	require.Error(t, err)

	var e *errcodes.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "ingestion_failed", e.Code)

	assert.Equal(t, 0, countBooksByExternalID(t, env.db, "OLGONEW"))
}

func TestGetOrCreateBook_MalformedWorkLeavesNoRow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &fakeCatalog{
		workJSON: map[string]string{
			"OL5W": `<html>surprise</html>`,
		},
	})

	_, _, err := env.service.GetOrCreateBook(context.Background(), "OL5W")
	require.Error(t, err)

	var e *errcodes.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "ingestion_failed", e.Code)
	assert.Equal(t, 0, countBooksByExternalID(t, env.db, "OL5W"))
}

func TestGetOrCreateBook_ConcurrentCallersCreateOneRow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &fakeCatalog{
		workJSON: map[string]string{
			"OL6W": `{"title": "Raced", "authors": [{"author": {"key": "/authors/OL1A"}}]}`,
		},
		authorJSON: map[string]string{
			"OL1A": `{"name": "Raced Author"}`,
		},
	})

	const callers = 6
	ids := make([]int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			book, _, err := env.service.GetOrCreateBook(context.Background(), "OL6W")
			assert.NoError(t, err)
			if book != nil {
				ids[i] = book.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, countBooksByExternalID(t, env.db, "OL6W"))
}

func TestDeleteBook_RemovesCoverFile(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &fakeCatalog{
		workJSON: map[string]string{
			"OL7W": `{"title": "With Cover", "covers": [77]}`,
		},
		coverJPEG: map[string][]byte{
			"/b/id/77-L.jpg": jpegBytes,
		},
	})
	ctx := context.Background()

	book, _, err := env.service.GetOrCreateBook(ctx, "OL7W")
	require.NoError(t, err)
	require.NotNil(t, book.CoverImagePath)
	coverPath := env.coverStore.Path(*book.CoverImagePath)

	require.NoError(t, env.service.DeleteBook(ctx, book))

	_, err = os.Stat(coverPath)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 0, countBooksByExternalID(t, env.db, "OL7W"))
}

func TestDeleteBook_WithoutCover(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &fakeCatalog{
		workJSON: map[string]string{
			"OL8W": `{"title": "No Cover"}`,
		},
	})
	ctx := context.Background()

	book, _, err := env.service.GetOrCreateBook(ctx, "OL8W")
	require.NoError(t, err)
	require.Nil(t, book.CoverImagePath)

	require.NoError(t, env.service.DeleteBook(ctx, book))
	assert.Equal(t, 0, countBooksByExternalID(t, env.db, "OL8W"))
}

// The external id column is named openlibrary_id in the schema; this guards
// against the model tag drifting to a derived name the migration never made.
func TestBookRowsMatchMigratedSchema(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &fakeCatalog{
		workJSON: map[string]string{
			"OL9W": `{"title": "Schema Check"}`,
		},
	})
	ctx := context.Background()

	book, created, err := env.service.GetOrCreateBook(ctx, "OL9W")
	require.NoError(t, err)
	assert.True(t, created)

	var externalID string
	err = env.db.QueryRowContext(ctx,
		"SELECT openlibrary_id FROM books WHERE id = ?", book.ID).Scan(&externalID)
	require.NoError(t, err)
	assert.Equal(t, "OL9W", externalID)

	fetched, err := env.service.RetrieveBook(ctx, RetrieveBookOptions{OpenLibraryID: &externalID})
	require.NoError(t, err)
	assert.Equal(t, book.ID, fetched.ID)
}
