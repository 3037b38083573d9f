// internal/domain/user/entity.go
package user

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents a customer or administrator account
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password     string         `gorm:"not null;size:255" json:"-"` // Don't return in JSON
	Name         string         `gorm:"size:200" json:"name"`
	IsActive     bool           `gorm:"not null" json:"is_active"`
	IsAdmin      bool           `gorm:"not null" json:"is_admin"`
	ReferralCode string         `gorm:"uniqueIndex;not null;size:20" json:"referral_code"`
	ReferredByID *uint          `gorm:"index" json:"referred_by_id,omitempty"`
	LastLoginAt  *time.Time     `json:"last_login_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// BeforeCreate hook to handle business logic before user creation
func (u *User) BeforeCreate(tx *gorm.DB) error {
	// Email should be lowercase
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}

// GetDisplayName returns display name (name or email)
func (u *User) GetDisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Email
}
