package models

import (
	"time"

	"github.com/uptrace/bun"
)

// UnknownAuthorName is attached to a book when the remote catalog lists no
// resolvable authors, so that every book has at least one author.
const UnknownAuthorName = "Unknown Author"

type Author struct {
	bun.BaseModel `bun:"table:authors,alias:a"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `bun:",nullzero" json:"name"`
	Bio       *string   `json:"bio"`

	Books []*Book `bun:"m2m:book_authors,join:Author=Book" json:"books,omitempty"`
}
