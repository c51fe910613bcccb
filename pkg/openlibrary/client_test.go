package openlibrary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/shelfmark/shelfmark/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.NewForTest()
	cfg.CatalogBaseURL = srv.URL
	cfg.CatalogCoversBaseURL = srv.URL
	cfg.CatalogRequestsPerSecond = 1000
	return NewClient(cfg)
}

func TestFetchWork_NormalizesRecord(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/works/OL45883W.json", r.URL.Path)
		w.Write([]byte(`{
			"title": "Fantastic Mr Fox",
			"description": {"type": "/type/text", "value": "A cunning fox."},
			"covers": [6498519, 8904777],
			"authors": [{"author": {"key": "/authors/OL34184A"}}]
		}`))
	}))

	work, err := client.FetchWork(context.Background(), "OL45883W")
	require.NoError(t, err)

	assert.Equal(t, "OL45883W", work.ID)
	assert.Equal(t, "Fantastic Mr Fox", work.Title)
	require.NotNil(t, work.Description)
	assert.Equal(t, "A cunning fox.", *work.Description)
	assert.Equal(t, []string{"/authors/OL34184A"}, work.AuthorRefs)
	require.NotNil(t, work.CoverID)
	assert.Equal(t, 6498519, *work.CoverID)
}

func TestFetchWork_StringDescription(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"title": "Some Work", "description": "plain text"}`))
	}))

	work, err := client.FetchWork(context.Background(), "OL1W")
	require.NoError(t, err)
	require.NotNil(t, work.Description)
	assert.Equal(t, "plain text", *work.Description)
	assert.Empty(t, work.AuthorRefs)
	assert.Nil(t, work.CoverID)
}

func TestFetchWork_NotFoundIsUnavailable(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.FetchWork(context.Background(), "OL404W")
	assert.True(t, errors.Is(err, ErrRemoteUnavailable))
}

func TestFetchWork_MalformedBody(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))

	_, err := client.FetchWork(context.Background(), "OL1W")
	assert.True(t, errors.Is(err, ErrRemoteMalformed))
}

func TestFetchAuthor_AcceptsKeyOrBareID(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/authors/OL34184A.json", r.URL.Path)
		w.Write([]byte(`{"name": "Roald Dahl", "bio": "British novelist."}`))
	}))

	for _, ref := range []string{"/authors/OL34184A", "OL34184A"} {
		author, err := client.FetchAuthor(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, "OL34184A", author.ID)
		assert.Equal(t, "Roald Dahl", author.Name)
		require.NotNil(t, author.Bio)
		assert.Equal(t, "British novelist.", *author.Bio)
	}
}

func TestFetchAuthor_MissingNameIsMalformed(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"bio": "no name here"}`))
	}))

	_, err := client.FetchAuthor(context.Background(), "OL1A")
	assert.True(t, errors.Is(err, ErrRemoteMalformed))
}

func TestFetchCoverBytes(t *testing.T) {
	t.Parallel()
	payload := []byte{0xff, 0xd8, 0xff, 0xe0}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/b/id/6498519-L.jpg", r.URL.Path)
		w.Write(payload)
	}))

	data, err := client.FetchCoverBytes(context.Background(), 6498519, CoverSizeLarge)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestFetchCoverBytes_NotFound(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.FetchCoverBytes(context.Background(), 1, CoverSizeLarge)
	assert.True(t, errors.Is(err, ErrRemoteUnavailable))
}

func TestSearchWorks(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "the fox", r.URL.Query().Get("q"))
		assert.Equal(t, "10", r.URL.Query().Get("start"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Write([]byte(`{
			"numFound": 2,
			"docs": [
				{"key": "/works/OL45883W", "title": "Fantastic Mr Fox", "author_name": ["Roald Dahl"], "cover_i": 6498519},
				{"key": "", "title": "dropped: no key"},
				{"key": "/works/OL1W", "title": "The Fox"}
			]
		}`))
	}))

	res, err := client.SearchWorks(context.Background(), "the fox", 10, 5)
	require.NoError(t, err)

	assert.Equal(t, 2, res.NumFound)
	require.Len(t, res.Docs, 2)
	assert.Equal(t, "OL45883W", res.Docs[0].ExternalID)
	assert.Equal(t, []string{"Roald Dahl"}, res.Docs[0].AuthorNames)
	assert.Equal(t, "OL1W", res.Docs[1].ExternalID)
}

func TestExtractID(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "OL45883W", ExtractID("/works/OL45883W"))
	assert.Equal(t, "OL34184A", ExtractID("/authors/OL34184A"))
	assert.Equal(t, "OL1W", ExtractID("OL1W"))
}
