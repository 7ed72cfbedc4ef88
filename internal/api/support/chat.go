package support

import (
	"errors"
	"net/http"

	"tiertrainer-backend/internal/domain/support"
	"tiertrainer-backend/internal/infra/assistant"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// POST /support/chat {messages:[{role,content}], ticketId?}
// With ticketId the last user message and the reply are appended to the ticket.
func Chat(bot *assistant.Assistant) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}
		if bot == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Chat assistant is not configured"})
			return
		}

		var body struct {
			Messages []assistant.Message `json:"messages"`
			TicketID *uint               `json:"ticketId"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || len(body.Messages) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "messages are required"})
			return
		}

		var ticket *support.Ticket
		if body.TicketID != nil {
			if ticket, ok = loadTicket(c, *body.TicketID, false); !ok {
				return
			}
		}

		reply, err := bot.Reply(c.Request.Context(), body.Messages)
		if errors.Is(err, assistant.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A user message is required"})
			return
		}
		if err != nil {
			zap.L().Error("Assistant reply failed", zap.Uint("user_id", userID), zap.String("model", bot.Model()), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "The assistant is unavailable right now. Please try again later."})
			return
		}

		if ticket != nil {
			if last := lastUserMessage(body.Messages); last != "" {
				if _, err := appendMessage(ticket, &userID, support.SenderUser, last); err != nil {
					zap.L().Warn("Chat message not stored on ticket", zap.Uint("ticket_id", ticket.ID), zap.Error(err))
				}
			}
			if _, err := appendMessage(ticket, nil, support.SenderAssistant, reply); err != nil {
				zap.L().Warn("Chat reply not stored on ticket", zap.Uint("ticket_id", ticket.ID), zap.Error(err))
			}
		}

		c.JSON(http.StatusOK, gin.H{"reply": reply, "model": bot.Model()})
	}
}

func lastUserMessage(msgs []assistant.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			if body, ok := cleanBody(msgs[i].Content); ok {
				return body
			}
		}
	}
	return ""
}
