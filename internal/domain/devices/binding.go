package devices

import (
	"strings"
	"time"
)

// BindingTTL is how long an unused binding keeps the device reserved.
const BindingTTL = 90 * 24 * time.Hour

// Binding maps a hashed device fingerprint to one account.
type Binding struct {
	ID                uint   `gorm:"primaryKey"`
	DeviceFingerprint string `gorm:"size:64;not null;uniqueIndex:idx_device_bindings_fingerprint"`
	UserID            uint   `gorm:"index"`
	UserEmail         string `gorm:"not null;index"`
	DeviceInfo        string `gorm:"type:text"`
	IsActive          bool   `gorm:"not null;default:true"`
	LastUsedAt        time.Time
	ExpiresAt         time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (Binding) TableName() string { return "device_bindings" }

// Live reports whether the binding still reserves the device.
func (b Binding) Live(now time.Time) bool {
	return b.IsActive && now.Before(b.ExpiresAt)
}

func (b Binding) BelongsTo(email string) bool {
	return strings.EqualFold(strings.TrimSpace(b.UserEmail), strings.TrimSpace(email))
}

// MaskEmail keeps the first character and the domain: "a***@example.com".
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
