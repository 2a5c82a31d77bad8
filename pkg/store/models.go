package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	UserName     string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"type:varchar(16);not null;default:user"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Books []BookModel `gorm:"foreignKey:AuthorID;constraint:OnDelete:RESTRICT"`
}

func (UserModel) TableName() string { return "users" }

type BookModel struct {
	ID          int64 `gorm:"primaryKey;autoIncrement"`
	Title       *string
	URL         *string
	Category    *string
	Price       *float64
	ReleaseDate *datatypes.Date `gorm:"type:date"`
	AuthorID    int64           `gorm:"not null;index"`
	CreatedAt   time.Time       `gorm:"column:created_at;type:timestamptz"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;type:timestamptz"`
}

func (BookModel) TableName() string { return "books" }
