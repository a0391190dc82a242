package webhook

import (
	"context"
	"net/http"

	"outreach-desk/internal/ws"
	"outreach-desk/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ReplyTracker records that a lead answered. *nurture.Service satisfies it.
type ReplyTracker interface {
	MarkReplied(ctx context.Context, phone string) (bool, error)
}

type Publisher interface {
	BroadcastEvent(eventType string, data interface{})
}

type Handler struct {
	VerifyToken string
	Replies     ReplyTracker
	Events      Publisher
	Logger      *logrus.Logger
}

func NewHandler(verifyToken string, replies ReplyTracker, events Publisher, logger *logrus.Logger) *Handler {
	return &Handler{
		VerifyToken: verifyToken,
		Replies:     replies,
		Events:      events,
		Logger:      logger,
	}
}

func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "" && token != "" {
		if mode == "subscribe" && h.VerifyToken != "" && token == h.VerifyToken {
			h.Logger.Info("webhook verified")
			c.String(http.StatusOK, challenge)
		} else {
			c.Status(http.StatusForbidden)
		}
	} else {
		c.Status(http.StatusBadRequest)
	}
}

// HandleMessage marks every inbound sender found in the master as replied.
// Processing errors are logged and still acknowledged so Meta does not retry.
func (h *Handler) HandleMessage(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.Logger.WithError(err).Warn("invalid webhook payload")
		c.Status(http.StatusBadRequest)
		return
	}

	for _, from := range payload.Senders() {
		changed, err := h.Replies.MarkReplied(c.Request.Context(), from)
		if err != nil {
			h.Logger.WithError(err).WithField("from", from).Error("failed to record reply")
			continue
		}
		if !changed {
			h.Logger.WithField("from", from).Debug("message from unknown or already replied lead")
			continue
		}
		if h.Events != nil {
			h.Events.BroadcastEvent(ws.EventLeadReplied, gin.H{"phone_number": from})
		}
	}

	c.Status(http.StatusOK)
}
