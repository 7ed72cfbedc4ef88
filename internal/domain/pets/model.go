package pets

import (
	"errors"
	"time"
)

var ErrPetLimitReached = errors.New("pet limit reached for current plan")

// Profile is a pet owned by one user.
type Profile struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;not null"`
	Name      string `gorm:"not null"`
	Species   string // dog, cat, ...
	Breed     string
	BirthDate *time.Time
	WeightKG  *float64 `gorm:"column:weight_kg"`
	Notes     string   `gorm:"type:text"`
	PhotoKey  *string  `gorm:"column:photo_key"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Profile) TableName() string { return "pet_profiles" }
