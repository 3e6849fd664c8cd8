package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// User represents an account that can sign in to the application.
// Accounts are created locally (sign-up, CLI) or provisioned by the identity
// provider webhook, in which case ExternalID holds the provider's user id.
type User struct {
	BaseModel
	ExternalID   *string   `json:"external_id,omitempty" gorm:"uniqueIndex"`
	Email        string    `json:"email" gorm:"unique;not null"`
	PasswordHash string    `json:"-"` // Empty for webhook-provisioned users until they set a password
	Name         string    `json:"name"`
	Role         string    `json:"role" gorm:"not null;default:''"` // "admin" or empty
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{})
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
