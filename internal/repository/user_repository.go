package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/travel-golobe/service-booking/internal/domain/user"
)

// UserModel is the GORM model for the users table, owned by identity management.
type UserModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null;size:200"`
	Email     string    `gorm:"uniqueIndex;not null;size:255"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (UserModel) TableName() string { return "users" }

// GormUserDirectory looks up booking owners.
type GormUserDirectory struct {
	db *gorm.DB
}

// NewGormUserDirectory creates a new GormUserDirectory.
func NewGormUserDirectory(db *gorm.DB) *GormUserDirectory {
	return &GormUserDirectory{db: db}
}

var _ user.Directory = (*GormUserDirectory)(nil)

func (d *GormUserDirectory) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	var m UserModel
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFoundOr(err, "User", id.String())
	}
	return &user.User{ID: m.ID, Name: m.Name, Email: m.Email}, nil
}
