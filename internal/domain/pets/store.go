package pets

import (
	"errors"
	"fmt"
	"time"

	"tiertrainer-backend/internal/domain/access"
	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/domain/users"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("pet not found")

// Create inserts p for its owner unless the owner is at the plan's pet limit.
// The owner's users row is locked FOR UPDATE while counting, which serializes
// concurrent creates for the same owner.
func Create(db *gorm.DB, now time.Time, sub *subscribers.Subscriber, p *Profile) (int, error) {
	maxAllowed := access.MaxPetsAllowed(now, sub)
	err := db.Transaction(func(tx *gorm.DB) error {
		var owner users.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&owner, p.UserID).Error; err != nil {
			return fmt.Errorf("lock owner: %w", err)
		}

		var count int64
		if err := tx.Model(&Profile{}).Where("user_id = ?", p.UserID).Count(&count).Error; err != nil {
			return fmt.Errorf("count pets: %w", err)
		}
		if !access.CanAddPet(count, maxAllowed) {
			return ErrPetLimitReached
		}
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("create pet: %w", err)
		}
		return nil
	})
	return maxAllowed, err
}

// FindOwned returns ErrNotFound for pets of other users.
func FindOwned(db *gorm.DB, userID, petID uint) (*Profile, error) {
	var p Profile
	err := db.Where("id = ? AND user_id = ?", petID, userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load pet: %w", err)
	}
	return &p, nil
}
