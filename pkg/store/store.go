package store

import (
	"context"
	"errors"

	"settle/pkg/domain"
)

// ErrDuplicateEmail is returned when a user with the same email already exists.
var ErrDuplicateEmail = errors.New("duplicate email")

// UserStore persists users. Lookups report absence through the bool result and
// never as an error.
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	HasUserEmail(ctx context.Context, email string) (bool, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error)
	GetUserByID(ctx context.Context, id int64) (domain.User, bool, error)
}

// BookStore persists books.
type BookStore interface {
	CreateBook(ctx context.Context, b *domain.Book) error
	GetBook(ctx context.Context, id int64) (domain.Book, bool, error)
	// ListBooks returns one page of books matching f, ordered by id, and the
	// number of matches across all pages.
	ListBooks(ctx context.Context, f domain.BookFilter) ([]domain.Book, int64, error)
	// UpdateBook and DeleteBook report false when no book has the id.
	UpdateBook(ctx context.Context, id int64, patch domain.BookPatch) (bool, error)
	DeleteBook(ctx context.Context, id int64) (bool, error)
}

// Store defines persistence operations for users and books.
type Store interface {
	UserStore
	BookStore
}
