package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type WhatsAppHandler struct {
	Templates TemplateSource
	Logger    *logrus.Logger
}

func NewWhatsAppHandler(templates TemplateSource, logger *logrus.Logger) *WhatsAppHandler {
	return &WhatsAppHandler{Templates: templates, Logger: logger}
}

// GetTemplates lists approved template names, ready to paste into a
// session's template repository.
func (h *WhatsAppHandler) GetTemplates(c *gin.Context) {
	if h.Templates == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "WhatsApp is not configured"})
		return
	}

	names, err := h.Templates.ApprovedTemplateNames(c.Request.Context())
	if err != nil {
		h.Logger.WithError(err).Warn("failed to fetch templates from Meta")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch templates from Meta"})
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"templates": names})
}
