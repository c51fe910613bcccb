package models

import (
	"time"

	"github.com/uptrace/bun"
)

// DefaultShelfName is the name given to a user's shelf when it's lazily
// created on first use.
const DefaultShelfName = "My Shelf"

type Shelf struct {
	bun.BaseModel `bun:"table:shelves,alias:s"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    int       `bun:",nullzero" json:"user_id"`
	Name      string    `bun:",nullzero" json:"name"`

	User  *User   `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Books []*Book `bun:"m2m:shelf_books,join:Shelf=Book" json:"books,omitempty"`
}

// ShelfBook joins shelves to books. The unique index on (shelf_id, book_id)
// gives shelf membership its set semantics.
type ShelfBook struct {
	bun.BaseModel `bun:"table:shelf_books,alias:sb"`

	ShelfID int    `bun:",pk" json:"shelf_id"`
	Shelf   *Shelf `bun:"rel:belongs-to,join:shelf_id=id" json:"shelf,omitempty"`
	BookID  int    `bun:",pk" json:"book_id"`
	Book    *Book  `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
}
