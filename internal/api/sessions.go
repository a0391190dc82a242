package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"outreach-desk/internal/models"
	"outreach-desk/internal/nurture"
	"outreach-desk/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// TemplateSource lists template names that can stand in for an empty
// template repository. *whatsapp.Client satisfies it.
type TemplateSource interface {
	ApprovedTemplateNames(ctx context.Context) ([]string, error)
}

type SessionHandler struct {
	Service     *nurture.Service
	Templates   TemplateSource
	Broadcaster *Broadcaster
	Events      EventPublisher
	Logger      *logrus.Logger
}

func NewSessionHandler(service *nurture.Service, templates TemplateSource, broadcaster *Broadcaster, events EventPublisher, logger *logrus.Logger) *SessionHandler {
	return &SessionHandler{
		Service:     service,
		Templates:   templates,
		Broadcaster: broadcaster,
		Events:      publisherOrNoop(events),
		Logger:      logger,
	}
}

// SessionResponse is a staged or committed session with its working rows.
type SessionResponse struct {
	ID           string         `json:"id"`
	Status       string         `json:"status"`
	FirstSession bool           `json:"first_session"`
	Templates    []string       `json:"templates"`
	Rows         []nurture.Lead `json:"rows"`
	CreatedAt    string         `json:"created_at"`
	CommittedAt  string         `json:"committed_at,omitempty"`
}

func newSessionResponse(s *models.LeadSession) SessionResponse {
	resp := SessionResponse{
		ID:           s.ID,
		Status:       s.Status,
		FirstSession: s.FirstSession,
		Templates:    nurture.ParseTemplates(s.Templates),
		Rows:         nurture.LeadsFromSession(s),
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
	}
	if resp.Templates == nil {
		resp.Templates = []string{}
	}
	if resp.Rows == nil {
		resp.Rows = []nurture.Lead{}
	}
	if s.CommittedAt != nil {
		resp.CommittedAt = s.CommittedAt.Format(time.RFC3339)
	}
	return resp
}

// Stage expects multipart fields leads and priority (files), templates (one
// label per line) and first_session.
func (h *SessionHandler) Stage(c *gin.Context) {
	leads, err := readUpload(c, "leads")
	if err != nil {
		respondUpload(c, h.Logger, err, "Leads file is required")
		return
	}
	priorities, err := readUpload(c, "priority")
	if err != nil {
		respondUpload(c, h.Logger, err, "Priority file is required")
		return
	}

	first := formFlag(c.PostForm("first_session"))
	templates := c.PostForm("templates")
	if strings.TrimSpace(templates) == "" && h.Templates != nil {
		names, err := h.Templates.ApprovedTemplateNames(c.Request.Context())
		if err != nil {
			h.Logger.WithError(err).Warn("could not load approved templates")
		} else {
			templates = strings.Join(names, "\n")
		}
	}

	session, err := h.Service.Stage(c.Request.Context(), nurture.StageInput{
		Leads:        leads,
		Priorities:   priorities,
		Templates:    templates,
		FirstSession: first,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	resp := newSessionResponse(session)
	h.Events.BroadcastEvent(ws.EventSessionStaged, gin.H{"id": resp.ID, "rows": len(resp.Rows)})
	c.JSON(http.StatusCreated, resp)
}

func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.Service.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(session))
}

type SubmitRequest struct {
	Rows []nurture.Lead `json:"rows"`
}

type SubmitResponse struct {
	*nurture.SubmitResult
	Broadcast *BroadcastReport `json:"broadcast,omitempty"`
}

// Submit accepts the edited rows either as JSON {"rows": [...]} or as an
// edited working sheet uploaded in the multipart field sheet.
func (h *SessionHandler) Submit(c *gin.Context) {
	rows, err := h.submittedRows(c)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if rows == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rows or sheet is required"})
		return
	}

	result, err := h.Service.Submit(c.Request.Context(), c.Param("id"), rows)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	resp := SubmitResponse{SubmitResult: result}
	if h.Broadcaster != nil && len(result.Sends) > 0 {
		resp.Broadcast = h.Broadcaster.Broadcast(c.Request.Context(), result.Sends)
	}

	h.Events.BroadcastEvent(ws.EventSessionCommitted, gin.H{
		"id":      result.SessionID,
		"created": result.Created,
		"updated": result.Updated,
	})
	c.JSON(http.StatusOK, resp)
}

// submittedRows returns nil rows when the request carries neither form.
func (h *SessionHandler) submittedRows(c *gin.Context) ([]nurture.Lead, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		sheet, err := readUpload(c, "sheet")
		if errors.Is(err, errNoUpload) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		rows, err := nurture.ReadWorkingSheet(sheet)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []nurture.Lead{}
		}
		return rows, nil
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, nil
	}
	if req.Rows == nil {
		req.Rows = []nurture.Lead{}
	}
	return req.Rows, nil
}
