package support

import (
	"errors"
	"net/http"

	"tiertrainer-backend/database"
	"tiertrainer-backend/internal/domain/support"

	"github.com/gin-gonic/gin"
)

// GET /admin/support/tickets?status=open
func ListTickets(c *gin.Context) {
	q := database.DB.Model(&support.Ticket{})
	if raw := c.Query("status"); raw != "" {
		status, err := support.ParseStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
		q = q.Where("status = ?", status)
	}

	var tickets []support.Ticket
	if err := q.Order("updated_at DESC").Limit(200).Find(&tickets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load tickets"})
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// GET /admin/support/tickets/:id
func GetTicket(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		return
	}
	t, ok := loadTicket(c, id, true)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, t)
}

// POST /admin/support/tickets/:id/reply {message}
func Reply(c *gin.Context) {
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

	t, ok := loadTicket(c, id, true)
	if !ok {
		return
	}

	var senderID *uint
	if uid := c.GetUint("user_id"); uid != 0 {
		senderID = &uid
	}
	msg, err := appendMessage(t, senderID, support.SenderAdmin, message)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add reply"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg, "status": t.Status})
}

// PATCH /admin/support/tickets/:id/status {status}
func SetStatus(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	t, ok := loadTicket(c, id, true)
	if !ok {
		return
	}

	next := support.Status(body.Status)
	if err := support.Transition(t.Status, next); err != nil {
		if errors.Is(err, support.ErrInvalidStatusTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": "Status change not allowed", "from": t.Status, "to": next})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	if err := database.DB.Model(t).Update("status", next).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": t.ID, "status": next})
}
