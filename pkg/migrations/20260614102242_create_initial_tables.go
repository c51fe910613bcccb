package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				email TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT TRUE
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_users_email ON users (email COLLATE NOCASE)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE authors (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL,
				bio TEXT
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		// Get-or-create by name leans on this index to stay race-free.
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_authors_name ON authors (name)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE books (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				openlibrary_id TEXT NOT NULL,
				title TEXT NOT NULL,
				summary TEXT,
				cover_image_path TEXT,
				rating REAL NOT NULL DEFAULT 0
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_books_openlibrary_id ON books (openlibrary_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE book_authors (
				book_id INTEGER NOT NULL REFERENCES books (id) ON DELETE CASCADE,
				author_id INTEGER NOT NULL REFERENCES authors (id) ON DELETE CASCADE,
				PRIMARY KEY (book_id, author_id)
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_book_authors_author_id ON book_authors (author_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE shelves (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				user_id INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
				name TEXT NOT NULL
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		// One shelf per user.
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_shelves_user_id ON shelves (user_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE shelf_books (
				shelf_id INTEGER NOT NULL REFERENCES shelves (id) ON DELETE CASCADE,
				book_id INTEGER NOT NULL REFERENCES books (id) ON DELETE CASCADE,
				PRIMARY KEY (shelf_id, book_id)
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_shelf_books_book_id ON shelf_books (book_id)`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		for _, table := range []string{"shelf_books", "shelves", "book_authors", "books", "authors", "users"} {
			_, err := db.Exec(`DROP TABLE IF EXISTS ` + table)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
