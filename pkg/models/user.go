package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int       `bun:",pk,nullzero" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Email        string    `bun:",nullzero" json:"email"`
	PasswordHash string    `json:"-"` // Never expose password hash
	IsActive     bool      `json:"is_active"`

	Shelf *Shelf `bun:"rel:has-one,join:id=user_id" json:"shelf,omitempty"`
}
