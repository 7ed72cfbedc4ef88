// Package trials starts, grants and expires the 7-day free trial stored on
// subscriber rows.
package trials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tiertrainer-backend/internal/domain/subscribers"

	"gorm.io/gorm"
)

const DefaultGrantDays = 7

var (
	ErrTrialAlreadyUsed  = errors.New("trial already used")
	ErrAlreadySubscribed = errors.New("already subscribed")
	ErrInvalidDays       = errors.New("trial days must be between 1 and 90")
)

// Start begins the trial for s. One trial per subscriber row.
func Start(db *gorm.DB, now time.Time, s *subscribers.Subscriber) error {
	if s.TrialUsed {
		return ErrTrialAlreadyUsed
	}
	if s.Subscribed && s.SubscriptionStatus == subscribers.StatusActive {
		return ErrAlreadySubscribed
	}
	return setTrial(db, s, &now, true, subscribers.StatusTrialing)
}

// Grant gives s a trial that ends days from now. The trial window is fixed,
// so the start is shifted: trial_start = now + days - 7d.
func Grant(db *gorm.DB, now time.Time, s *subscribers.Subscriber, days int) error {
	if days == 0 {
		days = DefaultGrantDays
	}
	if days < 1 || days > 90 {
		return ErrInvalidDays
	}
	start := now.Add(time.Duration(days)*24*time.Hour - subscribers.TrialDuration)
	return setTrial(db, s, &start, true, subscribers.StatusTrialing)
}

// Reset lets s start a new trial.
func Reset(db *gorm.DB, s *subscribers.Subscriber) error {
	status := s.SubscriptionStatus
	if status == subscribers.StatusTrialing {
		status = subscribers.StatusInactive
	}
	return setTrial(db, s, nil, false, status)
}

// Expire ends the trial of s immediately.
func Expire(db *gorm.DB, now time.Time, s *subscribers.Subscriber) error {
	start := now.Add(-subscribers.TrialDuration)
	return setTrial(db, s, &start, true, s.SubscriptionStatus)
}

func setTrial(db *gorm.DB, s *subscribers.Subscriber, start *time.Time, used bool, status string) error {
	err := db.Model(s).Updates(map[string]any{
		"trial_start":         start,
		"trial_used":          used,
		"subscription_status": status,
	}).Error
	if err != nil {
		return fmt.Errorf("update trial: %w", err)
	}
	s.TrialStart = start
	s.TrialUsed = used
	s.SubscriptionStatus = status
	return nil
}

// ExpireTrials flips every lapsed, unpaid trial to inactive and returns the
// affected emails.
func ExpireTrials(ctx context.Context, db *gorm.DB, now time.Time) ([]string, error) {
	cutoff := now.Add(-subscribers.TrialDuration)

	var rows []subscribers.Subscriber
	err := db.WithContext(ctx).
		Select("id", "email").
		Where("trial_used = ? AND trial_start <= ? AND subscription_status = ?", true, cutoff, subscribers.StatusTrialing).
		Where("stripe_subscription_id IS NULL OR stripe_subscription_id = ''").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find expired trials: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]uint, len(rows))
	emails := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
		emails[i] = r.Email
	}

	err = db.WithContext(ctx).Model(&subscribers.Subscriber{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"subscribed":          false,
			"subscription_status": subscribers.StatusInactive,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("expire trials: %w", err)
	}
	return emails, nil
}
