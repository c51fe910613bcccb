package search

import "github.com/shelfmark/shelfmark/pkg/openlibrary"

// CatalogSearchQuery represents the query parameters for catalog search.
type CatalogSearchQuery struct {
	Query  string `query:"q" json:"q" validate:"required,min=1,max=200"`
	Limit  int    `query:"limit" json:"limit,omitempty" default:"20" validate:"min=1,max=50"`
	Offset int    `query:"offset" json:"offset,omitempty" validate:"min=0"`
}

// CatalogSearchResponse represents a page of catalog search results.
type CatalogSearchResponse struct {
	Total   int                     `json:"total"`
	Results []openlibrary.SearchDoc `json:"results"`
}
