package support

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"tiertrainer-backend/database"
	"tiertrainer-backend/internal/domain/support"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxMessageLen = 5000
	maxSubjectLen = 200
)

func mustUserID(c *gin.Context) (uint, bool) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return userID, true
}

func ticketID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ticket id"})
		return 0, false
	}
	return uint(id), true
}

func cleanBody(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && utf8.RuneCountInString(s) <= maxMessageLen
}

// loadTicket answers 404 for missing tickets and for tickets of other users
// unless staff is set.
func loadTicket(c *gin.Context, id uint, staff bool) (*support.Ticket, bool) {
	q := database.DB.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	})
	if !staff {
		q = q.Where("user_id = ?", c.GetUint("user_id"))
	}

	var t support.Ticket
	err := q.Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load ticket"})
		return nil, false
	}
	return &t, true
}

// appendMessage stores the message and moves the ticket status in one transaction.
func appendMessage(t *support.Ticket, senderID *uint, senderType, body string) (*support.Message, error) {
	msg := support.Message{TicketID: t.ID, SenderID: senderID, SenderType: senderType, Body: body}
	next := support.StatusAfterMessage(t.Status, senderType)

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(t).Updates(map[string]interface{}{"status": next, "updated_at": time.Now()}).Error
	})
	if err != nil {
		return nil, err
	}
	t.Status = next
	return &msg, nil
}

// POST /support/tickets {subject, category, priority, message}
func CreateTicket(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var body struct {
		Subject  string `json:"subject"`
		Category string `json:"category"`
		Priority string `json:"priority"`
		Message  string `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	subject := strings.TrimSpace(body.Subject)
	message, ok := cleanBody(body.Message)
	if subject == "" || !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Subject and message are required"})
		return
	}
	if utf8.RuneCountInString(subject) > maxSubjectLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Subject is too long"})
		return
	}
	priority := strings.ToLower(strings.TrimSpace(body.Priority))
	switch priority {
	case "low", "normal", "high":
	default:
		priority = "normal"
	}

	t := support.Ticket{
		UserID:   userID,
		Subject:  subject,
		Category: strings.TrimSpace(body.Category),
		Priority: priority,
		Status:   support.StatusOpen,
	}
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&t).Error; err != nil {
			return err
		}
		uid := userID
		return tx.Create(&support.Message{TicketID: t.ID, SenderID: &uid, SenderType: support.SenderUser, Body: message}).Error
	})
	if err != nil {
		zap.L().Error("Failed to create ticket", zap.Uint("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create ticket"})
		return
	}

	created, ok := loadTicket(c, t.ID, false)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GET /support/tickets
func ListMyTickets(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var tickets []support.Ticket
	if err := database.DB.Where("user_id = ?", userID).Order("updated_at DESC").Find(&tickets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load tickets"})
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// GET /support/tickets/:id
func GetMyTicket(c *gin.Context) {
	if _, ok := mustUserID(c); !ok {
		return
	}
	id, ok := ticketID(c)
	if !ok {
		return
	}
	t, ok := loadTicket(c, id, false)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, t)
}

// POST /support/tickets/:id/messages {message}
func AddMyMessage(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	id, ok := ticketID(c)
	if !ok {
		return
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	message, ok := cleanBody(body.Message)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return
	}

	t, ok := loadTicket(c, id, false)
	if !ok {
		return
	}
	uid := userID
	msg, err := appendMessage(t, &uid, support.SenderUser, message)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add message"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg, "status": t.Status})
}

// POST /support/tickets/:id/resolve
func ResolveMyTicket(c *gin.Context) {
	if _, ok := mustUserID(c); !ok {
		return
	}
	id, ok := ticketID(c)
	if !ok {
		return
	}
	t, ok := loadTicket(c, id, false)
	if !ok {
		return
	}

	if err := database.DB.Model(t).Update("status", support.StatusResolved).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve ticket"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": t.ID, "status": support.StatusResolved})
}
