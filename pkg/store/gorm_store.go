package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"settle/pkg/domain"
)

const migrateLockID int64 = 51735173

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations. GORM warnings and slow
// queries go through the default slog logger.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.NewSlogLogger(slog.Default().With("component", "gorm"), gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
	})
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &BookModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks database connectivity.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// CreateUser inserts u and fills in its generated id and timestamps.
func (s *GormStore) CreateUser(ctx context.Context, u *domain.User) error {
	model := userToModel(*u)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	*u = userFromModel(model)
	return nil
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(ctx context.Context, id int64) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// CreateBook inserts b and fills in its generated id and timestamps.
func (s *GormStore) CreateBook(ctx context.Context, b *domain.Book) error {
	model := bookToModel(*b)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	*b = bookFromModel(model)
	return nil
}

// GetBook retrieves a book.
func (s *GormStore) GetBook(ctx context.Context, id int64) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// ListBooks runs the page query and the count query concurrently on separate
// connections without a shared snapshot, so under concurrent writes total may
// disagree with the returned page.
func (s *GormStore) ListBooks(ctx context.Context, f domain.BookFilter) ([]domain.Book, int64, error) {
	var (
		models []BookModel
		total  int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := bookPage(s.db.WithContext(gctx), f).Find(&models).Error; err != nil {
			return fmt.Errorf("list books: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		tx := applyBookFilter(s.db.WithContext(gctx).Model(&BookModel{}), f)
		if err := tx.Count(&total).Error; err != nil {
			return fmt.Errorf("count books: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, total, nil
}

// bookPage selects one id-ordered page of the books matching f.
func bookPage(db *gorm.DB, f domain.BookFilter) *gorm.DB {
	return applyBookFilter(db.Model(&BookModel{}), f).Order("id ASC").Offset(f.Offset()).Limit(f.Limit)
}

// applyBookFilter adds one WHERE clause per active condition of f.
func applyBookFilter(tx *gorm.DB, f domain.BookFilter) *gorm.DB {
	if f.Price.Min != nil {
		tx = tx.Where("price >= ?", *f.Price.Min)
	}
	if f.Price.Max != nil {
		tx = tx.Where("price <= ?", *f.Price.Max)
	}
	if f.Released.From != nil {
		tx = tx.Where("release_date >= ?", f.Released.From.Format(domain.DateLayout))
	}
	if f.Released.To != nil {
		tx = tx.Where("release_date <= ?", f.Released.To.Format(domain.DateLayout))
	}
	if f.Title != "" {
		tx = tx.Where("title LIKE ?", containsPattern(f.Title))
	}
	if f.Category != "" {
		tx = tx.Where("category LIKE ?", containsPattern(f.Category))
	}
	if len(f.Authors) > 0 {
		tx = tx.Where("author_id IN ?", f.Authors)
	}
	return tx
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching s literally anywhere.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// UpdateBook writes the set fields of patch.
func (s *GormStore) UpdateBook(ctx context.Context, id int64, patch domain.BookPatch) (bool, error) {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.URL != nil {
		updates["url"] = *patch.URL
	}
	if patch.Category != nil {
		updates["category"] = *patch.Category
	}
	if patch.Price != nil {
		updates["price"] = *patch.Price
	}
	if patch.ReleaseDate != nil {
		updates["release_date"] = datatypes.Date(*patch.ReleaseDate)
	}
	res := s.db.WithContext(ctx).Model(&BookModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteBook removes a book.
func (s *GormStore) DeleteBook(ctx context.Context, id int64) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&BookModel{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		UserName:     u.UserName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	role := domain.UserRole(m.Role)
	if role == "" {
		role = domain.RoleUser
	}
	return domain.User{
		ID:           m.ID,
		UserName:     m.UserName,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         role,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func bookToModel(b domain.Book) BookModel {
	m := BookModel{
		ID:        b.ID,
		Title:     b.Title,
		URL:       b.URL,
		Category:  b.Category,
		Price:     b.Price,
		AuthorID:  b.AuthorID,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.ReleaseDate != nil {
		d := datatypes.Date(*b.ReleaseDate)
		m.ReleaseDate = &d
	}
	return m
}

func bookFromModel(m BookModel) domain.Book {
	b := domain.Book{
		ID:        m.ID,
		Title:     m.Title,
		URL:       m.URL,
		Category:  m.Category,
		Price:     m.Price,
		AuthorID:  m.AuthorID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.ReleaseDate != nil {
		t := time.Time(*m.ReleaseDate).UTC()
		b.ReleaseDate = &t
	}
	return b
}
