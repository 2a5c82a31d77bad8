package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"settle/pkg/domain"
)

// MemoryStore keeps users and books in-process. It backs tests and local runs
// without Postgres.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[int64]domain.User
	email  map[string]int64 // email -> user ID
	books  map[int64]domain.Book
	nextID struct{ user, book int64 }
	now    func() time.Time
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[int64]domain.User),
		email: make(map[string]int64),
		books: make(map[int64]domain.Book),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) CreateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.email[u.Email]; exists {
		return ErrDuplicateEmail
	}
	m.nextID.user++
	now := m.now()
	u.ID = m.nextID.user
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	u.CreatedAt, u.UpdatedAt = now, now
	m.users[u.ID] = *u
	m.email[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) HasUserEmail(_ context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) GetUserByID(_ context.Context, id int64) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) CreateBook(_ context.Context, b *domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID.book++
	now := m.now()
	b.ID = m.nextID.book
	b.CreatedAt, b.UpdatedAt = now, now
	m.books[b.ID] = *b
	return nil
}

func (m *MemoryStore) GetBook(_ context.Context, id int64) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	return b, ok, nil
}

// ListBooks filters with BookFilter.Matches and pages over id order.
func (m *MemoryStore) ListBooks(_ context.Context, f domain.BookFilter) ([]domain.Book, int64, error) {
	m.mu.RLock()
	matched := make([]domain.Book, 0, len(m.books))
	for _, b := range m.books {
		if f.Matches(b) {
			matched = append(matched, b)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	total := int64(len(matched))
	start := f.Offset()
	if start < 0 || start >= len(matched) {
		return []domain.Book{}, total, nil
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (m *MemoryStore) UpdateBook(_ context.Context, id int64, patch domain.BookPatch) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return false, nil
	}
	patch.Apply(&b)
	b.UpdatedAt = m.now()
	m.books[id] = b
	return true, nil
}

func (m *MemoryStore) DeleteBook(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[id]; !ok {
		return false, nil
	}
	delete(m.books, id)
	return true, nil
}
