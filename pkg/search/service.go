package search

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shelfmark/shelfmark/pkg/openlibrary"
)

// Service proxies catalog searches so clients never talk to the remote
// catalog directly.
type Service struct {
	catalog *openlibrary.Client
}

func NewService(catalog *openlibrary.Client) *Service {
	return &Service{catalog: catalog}
}

// SearchCatalog runs a full-text query against the remote catalog and returns
// the normalized page of results.
func (svc *Service) SearchCatalog(ctx context.Context, query string, offset, limit int) (*openlibrary.SearchResult, error) {
	result, err := svc.catalog.SearchWorks(ctx, query, offset, limit)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return result, nil
}
