package devices

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const ReasonBoundToAnotherAccount = "DEVICE_BOUND_TO_ANOTHER_ACCOUNT"

var ErrDeviceBoundToAnotherAccount = errors.New("device bound to another account")

type BindRequest struct {
	Fingerprint string
	UserID      uint
	UserEmail   string
	DeviceInfo  string
}

type Decision struct {
	Allowed bool
	Reason  string
	Created bool
	Binding *Binding
}

// Lookup returns the binding for a fingerprint. Database errors are logged and
// reported as "no binding" so login never fails on an infrastructure hiccup.
func Lookup(db *gorm.DB, fingerprint string) *Binding {
	var b Binding
	err := db.Where("device_fingerprint = ?", fingerprint).First(&b).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			zap.L().Warn("device binding lookup failed, treating as unbound",
				zap.String("fingerprint", shortFP(fingerprint)), zap.Error(err))
		}
		return nil
	}
	return &b
}

// Bind enforces one account per device:
//   - live binding for another email -> rejected with ErrDeviceBoundToAnotherAccount
//   - no binding (or inactive/expired) -> the device is bound to the caller
//   - binding for the same email -> last_used_at and expiry are refreshed
func Bind(db *gorm.DB, now time.Time, req BindRequest) (Decision, error) {
	existing := Lookup(db, req.Fingerprint)

	if existing != nil && existing.Live(now) && !existing.BelongsTo(req.UserEmail) {
		return Decision{Allowed: false, Reason: ReasonBoundToAnotherAccount, Binding: existing}, ErrDeviceBoundToAnotherAccount
	}

	if existing != nil {
		updates := map[string]interface{}{
			"last_used_at": now,
			"expires_at":   now.Add(BindingTTL),
			"is_active":    true,
		}
		if !existing.BelongsTo(req.UserEmail) {
			// stale binding from another account is taken over
			updates["user_id"] = req.UserID
			updates["user_email"] = strings.ToLower(strings.TrimSpace(req.UserEmail))
		}
		if req.DeviceInfo != "" {
			updates["device_info"] = req.DeviceInfo
		}
		if err := db.Model(&Binding{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
			zap.L().Warn("device binding refresh failed", zap.Uint("binding_id", existing.ID), zap.Error(err))
		}
		return Decision{Allowed: true, Binding: existing}, nil
	}

	b := Binding{
		DeviceFingerprint: req.Fingerprint,
		UserID:            req.UserID,
		UserEmail:         strings.ToLower(strings.TrimSpace(req.UserEmail)),
		DeviceInfo:        req.DeviceInfo,
		IsActive:          true,
		LastUsedAt:        now,
		ExpiresAt:         now.Add(BindingTTL),
	}
	if err := db.Create(&b).Error; err != nil {
		// A concurrent insert for the same fingerprint loses on the unique index;
		// re-read to decide with the winner's row.
		if winner := Lookup(db, req.Fingerprint); winner != nil && winner.Live(now) && !winner.BelongsTo(req.UserEmail) {
			return Decision{Allowed: false, Reason: ReasonBoundToAnotherAccount, Binding: winner}, ErrDeviceBoundToAnotherAccount
		}
		zap.L().Warn("device binding insert failed, allowing login", zap.Error(err))
		return Decision{Allowed: true}, nil
	}
	return Decision{Allowed: true, Created: true, Binding: &b}, nil
}

// Release deactivates the caller's own binding for the fingerprint.
func Release(db *gorm.DB, fingerprint, email string) (bool, error) {
	existing := Lookup(db, fingerprint)
	if existing == nil || !existing.BelongsTo(email) {
		return false, nil
	}
	if err := db.Model(&Binding{}).Where("id = ?", existing.ID).Update("is_active", false).Error; err != nil {
		return false, err
	}
	return true, nil
}

func shortFP(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
