package binder

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type importPayload struct {
	OpenLibraryID string `json:"openlibrary_id" mod:"trim" validate:"required,max=20"`
	Internal      string `json:"-"`
}

func newContext(payload, mime string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(echo.POST, "/", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, mime)
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr)
}

func TestBind(t *testing.T) {
	b, err := New()
	require.NoError(t, err)
	require.NotNil(t, b)

	t.Run("binds, trims, and validates json", func(tt *testing.T) {
		p := importPayload{}
		err := b.Bind(&p, newContext(`{"openlibrary_id":" OL45883W "}`, echo.MIMEApplicationJSON))
		require.NoError(tt, err)
		assert.Equal(tt, "OL45883W", p.OpenLibraryID)
	})

	t.Run("rejects unsupported content types", func(tt *testing.T) {
		p := importPayload{}
		err := b.Bind(&p, newContext(`{"openlibrary_id":"OL45883W"}`, echo.MIMEApplicationXML))
		assert.Contains(tt, err.Error(), "Unsupported Media Type")
	})

	t.Run("rejects unknown fields", func(tt *testing.T) {
		p := importPayload{}
		err := b.Bind(&p, newContext(`{"openlibrary_id":"OL45883W","edition":"first"}`, echo.MIMEApplicationJSON))
		assert.Contains(tt, err.Error(), `Unknown Parameter "edition"`)
	})

	t.Run("reports type mismatches by field name", func(tt *testing.T) {
		p := importPayload{}
		err := b.Bind(&p, newContext(`{"openlibrary_id":45883}`, echo.MIMEApplicationJSON))
		assert.Contains(tt, err.Error(), `"openlibrary_id" should be of type string`)
	})

	t.Run("runs the validate tags", func(tt *testing.T) {
		p := importPayload{}
		err := b.Bind(&p, newContext(`{"openlibrary_id":"OL458838858834588388588W"}`, echo.MIMEApplicationJSON))
		assert.Contains(tt, err.Error(), "length must be less than or equal to 20 characters")
	})

	t.Run("requires a body on POST by default", func(tt *testing.T) {
		p := importPayload{}
		err := b.Bind(&p, newContext("", echo.MIMEApplicationJSON))
		assert.Contains(tt, err.Error(), "Request body can't be empty")
	})
}
