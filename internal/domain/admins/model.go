package admins

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	RoleAdmin   = "admin"
	RoleSupport = "support"
)

// AdminUser grants back-office access. Authorization is decided from this row,
// not from the JWT role claim.
type AdminUser struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    *uint  `gorm:"index"`
	Email     string `gorm:"not null;uniqueIndex:idx_admin_users_email"`
	Role      string `gorm:"size:16;not null"`
	IsActive  bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
}

func (AdminUser) TableName() string { return "admin_users" }

// HasRole: admin implies support.
func (a AdminUser) HasRole(role string) bool {
	if !a.IsActive {
		return false
	}
	if a.Role == RoleAdmin {
		return true
	}
	return a.Role == role
}

// Find returns (nil, nil) when email has no admin row.
func Find(db *gorm.DB, email string) (*AdminUser, error) {
	var a AdminUser
	err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
