package openlibrary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/shelfmark/shelfmark/pkg/config"
	"golang.org/x/time/rate"
)

// The catalog is a best-effort dependency: every failure surfaces as one of
// these two sentinels so that callers can decide what's recoverable.
var (
	ErrRemoteUnavailable = errors.New("remote catalog unavailable")
	ErrRemoteMalformed   = errors.New("remote catalog response malformed")
)

const userAgent = "shelfmark (github.com/shelfmark/shelfmark)"

// CoverSize selects the image variant served by the covers host.
type CoverSize string

const (
	CoverSizeSmall  CoverSize = "S"
	CoverSizeMedium CoverSize = "M"
	CoverSizeLarge  CoverSize = "L"
)

// Client performs read-only lookups against the Open Library API. It does no
// retries; callers see every failure immediately as a typed error.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	coversBaseURL string
	limiter       *rate.Limiter
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.CatalogRequestTimeout,
		},
		baseURL:       cfg.CatalogBaseURL,
		coversBaseURL: cfg.CatalogCoversBaseURL,
		limiter:       rate.NewLimiter(rate.Limit(cfg.CatalogRequestsPerSecond), 1),
	}
}

// FetchWork retrieves and normalizes a work record by its external id.
func (c *Client) FetchWork(ctx context.Context, externalID string) (*Work, error) {
	var res workResponse
	err := c.getJSON(ctx, fmt.Sprintf("%s/works/%s.json", c.baseURL, url.PathEscape(externalID)), &res)
	if err != nil {
		return nil, err
	}

	work := &Work{
		ID:    externalID,
		Title: res.Title,
	}
	if res.Description != nil && res.Description.Value != "" {
		work.Description = &res.Description.Value
	}
	for _, a := range res.Authors {
		if a.Author.Key != "" {
			work.AuthorRefs = append(work.AuthorRefs, a.Author.Key)
		}
	}
	if len(res.Covers) > 0 && res.Covers[0] > 0 {
		coverID := res.Covers[0]
		work.CoverID = &coverID
	}
	return work, nil
}

// FetchAuthor retrieves and normalizes an author record. The ref may be a
// full key like "/authors/OL23919A" or a bare id.
func (c *Client) FetchAuthor(ctx context.Context, ref string) (*Author, error) {
	id := ExtractID(ref)

	var res authorResponse
	err := c.getJSON(ctx, fmt.Sprintf("%s/authors/%s.json", c.baseURL, url.PathEscape(id)), &res)
	if err != nil {
		return nil, err
	}
	if res.Name == "" {
		return nil, errors.Wrapf(ErrRemoteMalformed, "author %s has no name", id)
	}

	author := &Author{ID: id, Name: res.Name}
	if res.Bio != nil && res.Bio.Value != "" {
		author.Bio = &res.Bio.Value
	}
	return author, nil
}

// FetchCoverBytes downloads a cover image by its numeric cover id.
func (c *Client) FetchCoverBytes(ctx context.Context, coverID int, size CoverSize) ([]byte, error) {
	resp, err := c.get(ctx, fmt.Sprintf("%s/b/id/%d-%s.jpg", c.coversBaseURL, coverID, size))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(ErrRemoteUnavailable, err.Error())
	}
	if len(data) == 0 {
		return nil, errors.Wrap(ErrRemoteMalformed, "empty cover image")
	}
	return data, nil
}

// SearchWorks queries the catalog's full-text search.
func (c *Client) SearchWorks(ctx context.Context, query string, offset, limit int) (*SearchResult, error) {
	u := fmt.Sprintf("%s/search.json?q=%s&start=%d&limit=%d",
		c.baseURL, url.QueryEscape(query), offset, limit)

	var res searchResponse
	if err := c.getJSON(ctx, u, &res); err != nil {
		return nil, err
	}

	result := &SearchResult{NumFound: res.NumFound}
	for _, doc := range res.Docs {
		if doc.Key == "" {
			continue
		}
		result.Docs = append(result.Docs, SearchDoc{
			ExternalID:  ExtractID(doc.Key),
			Title:       doc.Title,
			AuthorNames: doc.AuthorNames,
			CoverID:     doc.CoverID,
		})
	}
	return result, nil
}

func (c *Client) getJSON(ctx context.Context, url string, target interface{}) error {
	resp, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return errors.Wrap(ErrRemoteMalformed, err.Error())
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(ErrRemoteUnavailable, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts land here too and are treated the same as any outage.
		return nil, errors.Wrap(ErrRemoteUnavailable, err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Wrapf(ErrRemoteUnavailable, "unexpected status code: %d", resp.StatusCode)
	}
	return resp, nil
}
