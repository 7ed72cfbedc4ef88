package analytics

import "time"

type Event struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     *uint     `gorm:"index" json:"user_id"`
	SessionID  string    `gorm:"size:64;index" json:"session_id"`
	EventName  string    `gorm:"size:64;not null;index" json:"event_name"`
	Page       string    `json:"page"`
	Properties string    `gorm:"type:text" json:"properties"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (Event) TableName() string { return "analytics_events" }
