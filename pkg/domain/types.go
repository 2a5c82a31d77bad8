package domain

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleUser   UserRole = "user"
	RoleAuthor UserRole = "author"
)

// ParseUserRole accepts a role name in any letter case.
func ParseUserRole(raw string) (UserRole, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(RoleUser):
		return RoleUser, true
	case string(RoleAuthor):
		return RoleAuthor, true
	default:
		return "", false
	}
}

type User struct {
	ID           int64     `json:"id"`
	UserName     string    `json:"userName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public returns a copy safe to hand to clients and token issuers.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

type Book struct {
	ID          int64      `json:"id"`
	Title       *string    `json:"title"`
	URL         *string    `json:"url"`
	Category    *string    `json:"category"`
	Price       *float64   `json:"price"`
	ReleaseDate *time.Time `json:"releaseDate"`
	AuthorID    int64      `json:"authorId"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BookPatch carries the fields of a partial book update. Nil means unchanged.
type BookPatch struct {
	Title       *string
	URL         *string
	Category    *string
	Price       *float64
	ReleaseDate *time.Time
}

// Empty reports whether the patch changes nothing.
func (p BookPatch) Empty() bool {
	return p.Title == nil && p.URL == nil && p.Category == nil && p.Price == nil && p.ReleaseDate == nil
}

// Apply copies the set fields of the patch onto b.
func (p BookPatch) Apply(b *Book) {
	if p.Title != nil {
		b.Title = p.Title
	}
	if p.URL != nil {
		b.URL = p.URL
	}
	if p.Category != nil {
		b.Category = p.Category
	}
	if p.Price != nil {
		b.Price = p.Price
	}
	if p.ReleaseDate != nil {
		b.ReleaseDate = p.ReleaseDate
	}
}

type BookPage struct {
	Items []Book `json:"items"`
	Total int64  `json:"total"`
}
