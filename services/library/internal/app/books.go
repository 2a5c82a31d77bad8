package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"settle/internal/util"
	"settle/pkg/domain"
)

// CreateBookInput holds the optional fields of a new book.
type CreateBookInput struct {
	Title       *string
	URL         *string
	Category    *string
	Price       *float64
	ReleaseDate *time.Time
}

// UpdateBookInput holds the fields to change. Nil fields are left as they are.
// The author of a book cannot be changed.
type UpdateBookInput struct {
	Title       *string
	URL         *string
	Category    *string
	Price       *float64
	ReleaseDate *time.Time
}

func validatePrice(price *float64) error {
	if price == nil {
		return nil
	}
	if math.IsNaN(*price) || math.IsInf(*price, 0) || *price < 0 {
		return invalid("price", "must be a non-negative number")
	}
	return nil
}

func truncateDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &day
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// CreateBook stores a new book owned by authorID. Role checks belong to the caller.
func (a *App) CreateBook(ctx context.Context, in CreateBookInput, authorID int64) (domain.Book, error) {
	if err := validatePrice(in.Price); err != nil {
		return domain.Book{}, err
	}
	_, ok, err := a.store.GetUserByID(ctx, authorID)
	if err != nil {
		return domain.Book{}, fmt.Errorf("fetch author: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrUserNotFound
	}
	book := domain.Book{
		Title:       trimmed(in.Title),
		URL:         trimmed(in.URL),
		Category:    trimmed(in.Category),
		Price:       in.Price,
		ReleaseDate: truncateDay(in.ReleaseDate),
		AuthorID:    authorID,
	}
	if err := a.store.CreateBook(ctx, &book); err != nil {
		return domain.Book{}, fmt.Errorf("save book: %w", err)
	}
	util.LoggerFromContext(ctx).Info("book_created", "book_id", book.ID, "author_id", authorID)
	return book, nil
}

// GetBook returns the book with the given id.
func (a *App) GetBook(ctx context.Context, id int64) (domain.Book, error) {
	book, ok, err := a.store.GetBook(ctx, id)
	if err != nil {
		return domain.Book{}, fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	return book, nil
}

// ListBooks returns one page of books matching f and the total match count.
func (a *App) ListBooks(ctx context.Context, f domain.BookFilter) (domain.BookPage, error) {
	if f.Page < 1 {
		f.Page = domain.DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = domain.DefaultLimit
	}
	if f.Limit > domain.MaxLimit {
		f.Limit = domain.MaxLimit
	}
	items, total, err := a.store.ListBooks(ctx, f)
	if err != nil {
		return domain.BookPage{}, fmt.Errorf("list books: %w", err)
	}
	if items == nil {
		items = []domain.Book{}
	}
	return domain.BookPage{Items: items, Total: total}, nil
}

// UpdateBook applies the supplied fields and returns the stored result.
func (a *App) UpdateBook(ctx context.Context, id int64, in UpdateBookInput) (domain.Book, error) {
	if err := validatePrice(in.Price); err != nil {
		return domain.Book{}, err
	}
	patch := domain.BookPatch{
		Title:       trimmed(in.Title),
		URL:         trimmed(in.URL),
		Category:    trimmed(in.Category),
		Price:       in.Price,
		ReleaseDate: truncateDay(in.ReleaseDate),
	}
	ok, err := a.store.UpdateBook(ctx, id, patch)
	if err != nil {
		return domain.Book{}, fmt.Errorf("update book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	return a.GetBook(ctx, id)
}

// DeleteBook removes the book with the given id.
func (a *App) DeleteBook(ctx context.Context, id int64) error {
	ok, err := a.store.DeleteBook(ctx, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if !ok {
		return ErrBookNotFound
	}
	util.LoggerFromContext(ctx).Info("book_deleted", "book_id", id)
	return nil
}
