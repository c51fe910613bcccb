package models

import (
	"time"

	"github.com/uptrace/bun"
)

// DefaultTitle is used when the remote work record has no title.
const DefaultTitle = "No Title Available"

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID             int       `bun:",pk,nullzero" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	OpenLibraryID  string    `bun:"openlibrary_id,nullzero" json:"openlibrary_id"`
	Title          string    `bun:",nullzero" json:"title"`
	Summary        *string   `json:"summary"`
	CoverImagePath *string   `json:"cover_image_path"`
	Rating         float64   `json:"rating"`

	Authors []*Author `bun:"m2m:book_authors,join:Book=Author" json:"authors,omitempty"`
}

// BookAuthor joins books to authors. A book always has at least one row here
// after a successful ingestion.
type BookAuthor struct {
	bun.BaseModel `bun:"table:book_authors,alias:ba"`

	BookID   int     `bun:",pk" json:"book_id"`
	Book     *Book   `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
	AuthorID int     `bun:",pk" json:"author_id"`
	Author   *Author `bun:"rel:belongs-to,join:author_id=id" json:"author,omitempty"`
}
