package support

import (
	"errors"
	"time"
)

type Status string

const (
	StatusOpen        Status = "open"
	StatusInProgress  Status = "in_progress"
	StatusWaitingUser Status = "waiting_user"
	StatusResolved    Status = "resolved"
)

const (
	SenderUser      = "user"
	SenderAdmin     = "admin"
	SenderAssistant = "assistant"
)

var (
	ErrInvalidStatus           = errors.New("invalid ticket status")
	ErrInvalidStatusTransition = errors.New("invalid ticket status transition")
)

// transitions lists the statuses reachable from each status. Setting the
// current status again is a no-op and always allowed.
var transitions = map[Status][]Status{
	StatusOpen:        {StatusInProgress, StatusWaitingUser, StatusResolved},
	StatusInProgress:  {StatusOpen, StatusWaitingUser, StatusResolved},
	StatusWaitingUser: {StatusOpen, StatusInProgress, StatusResolved},
	StatusResolved:    {StatusOpen},
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOpen, StatusInProgress, StatusWaitingUser, StatusResolved:
		return Status(s), nil
	}
	return "", ErrInvalidStatus
}

type Ticket struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Subject   string    `gorm:"not null" json:"subject"`
	Category  string    `json:"category"`
	Priority  string    `gorm:"default:'normal'" json:"priority"`
	Status    Status    `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	Messages  []Message `json:"messages,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Ticket) TableName() string { return "support_tickets" }

// Message rows are append-only; order is (created_at, id).
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TicketID   uint      `gorm:"index;not null" json:"ticket_id"`
	SenderID   *uint     `gorm:"index" json:"sender_id"`
	SenderType string    `gorm:"size:16;not null" json:"sender_type"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Message) TableName() string { return "support_messages" }

// StatusAfterMessage is the ticket status once a message from senderType lands.
func StatusAfterMessage(current Status, senderType string) Status {
	switch senderType {
	case SenderAdmin:
		if current == StatusResolved {
			return current
		}
		return StatusWaitingUser
	case SenderUser:
		if current == StatusWaitingUser || current == StatusResolved {
			return StatusOpen
		}
	}
	return current
}

// Transition validates a staff-driven status change.
func Transition(from, to Status) error {
	if _, err := ParseStatus(string(to)); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return ErrInvalidStatusTransition
}
