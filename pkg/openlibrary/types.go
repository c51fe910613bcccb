package openlibrary

import (
	"strings"

	"github.com/segmentio/encoding/json"
)

// Work is the normalized form of a /works/{id}.json record. Only the fields
// ingestion needs survive decoding.
type Work struct {
	ID          string
	Title       string
	Description *string
	AuthorRefs  []string
	CoverID     *int
}

// Author is the normalized form of an /authors/{id}.json record.
type Author struct {
	ID   string
	Name string
	Bio  *string
}

// SearchResult is the normalized form of a search.json response.
type SearchResult struct {
	NumFound int
	Docs     []SearchDoc
}

type SearchDoc struct {
	ExternalID  string   `json:"external_id"`
	Title       string   `json:"title"`
	AuthorNames []string `json:"author_names,omitempty"`
	CoverID     *int     `json:"cover_id,omitempty"`
}

// ExtractID returns the trailing path segment of a catalog key, e.g.
// "/works/OL45883W" -> "OL45883W". Keys without a slash pass through as-is.
func ExtractID(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[i+1:]
	}
	return key
}

// textValue decodes fields the catalog serves either as a bare string or as a
// {"type": ..., "value": ...} object.
type textValue struct {
	Value string
}

func (tv *textValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		tv.Value = s
		return nil
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	tv.Value = obj.Value
	return nil
}

// workResponse matches /works/{id}.json.
type workResponse struct {
	Title       string     `json:"title"`
	Description *textValue `json:"description"`
	Covers      []int      `json:"covers"`
	Authors     []struct {
		Author struct {
			Key string `json:"key"`
		} `json:"author"`
	} `json:"authors"`
}

// authorResponse matches /authors/{id}.json.
type authorResponse struct {
	Name string     `json:"name"`
	Bio  *textValue `json:"bio"`
}

// searchResponse matches /search.json.
type searchResponse struct {
	NumFound int `json:"numFound"`
	Docs     []struct {
		Key         string   `json:"key"`
		Title       string   `json:"title"`
		AuthorNames []string `json:"author_name"`
		CoverID     *int     `json:"cover_i"`
	} `json:"docs"`
}
