package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/shelfmark/shelfmark/pkg/config"
	"github.com/shelfmark/shelfmark/pkg/openlibrary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.NewForTest()
	cfg.CatalogBaseURL = server.URL
	cfg.CatalogCoversBaseURL = server.URL

	return NewService(openlibrary.NewClient(cfg))
}

func TestSearchCatalog(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "tolkien", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("start"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"numFound": 42,
			"docs": [
				{"key": "/works/OL27448W", "title": "The Lord of the Rings", "author_name": ["J. R. R. Tolkien"], "cover_i": 9255566},
				{"key": "/works/OL27482W", "title": "The Hobbit", "author_name": ["J. R. R. Tolkien"]}
			]
		}`))
	})

	result, err := svc.SearchCatalog(context.Background(), "tolkien", 5, 10)
	require.NoError(t, err)
	assert.Equal(t, 42, result.NumFound)
	require.Len(t, result.Docs, 2)
	assert.Equal(t, "OL27448W", result.Docs[0].ExternalID)
	assert.Equal(t, "The Lord of the Rings", result.Docs[0].Title)
	require.NotNil(t, result.Docs[0].CoverID)
	assert.Equal(t, 9255566, *result.Docs[0].CoverID)
	assert.Nil(t, result.Docs[1].CoverID)
}

func TestSearchCatalog_RemoteUnavailable(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := svc.SearchCatalog(context.Background(), "tolkien", 0, 20)
	require.Error(t, err)
	assert.True(t, errors.Is(err, openlibrary.ErrRemoteUnavailable))
}
