package api

import (
	"fmt"
	"net/http"
	"time"

	"outreach-desk/internal/snapshot"
	"outreach-desk/internal/tabular"
	"outreach-desk/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type SnapshotHandler struct {
	Differ *snapshot.Differ
	Store  snapshot.Store
	Events EventPublisher
	Logger *logrus.Logger
}

func NewSnapshotHandler(differ *snapshot.Differ, store snapshot.Store, events EventPublisher, logger *logrus.Logger) *SnapshotHandler {
	return &SnapshotHandler{Differ: differ, Store: store, Events: publisherOrNoop(events), Logger: logger}
}

// Upload stores today's customer list and reports the customers that are new
// since the previous stored date.
func (h *SnapshotHandler) Upload(c *gin.Context) {
	table, err := readUpload(c, "file")
	if err != nil {
		respondUpload(c, h.Logger, err, "File is required")
		return
	}

	result, err := h.Differ.Process(c.Request.Context(), table)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	h.Events.BroadcastEvent(ws.EventSnapshotSaved, result)
	c.JSON(http.StatusOK, result)
}

func (h *SnapshotHandler) ListDates(c *gin.Context) {
	dates, err := h.Store.Dates(c.Request.Context())
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if dates == nil {
		dates = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"dates": dates})
}

// NewCustomers recomputes the diff for a stored date. With ?format=csv the
// list is returned as a download.
func (h *SnapshotHandler) NewCustomers(c *gin.Context) {
	date := c.Param("date")
	if _, err := time.Parse(snapshot.DateLayout, date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	result, err := h.Differ.Compare(c.Request.Context(), date)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	if c.Query("format") != "csv" {
		c.JSON(http.StatusOK, result)
		return
	}

	if !result.Compared {
		c.JSON(http.StatusNotFound, gin.H{"error": result.Message})
		return
	}

	rows := make([][]string, len(result.NewCustomers))
	for i, customer := range result.NewCustomers {
		rows[i] = []string{customer}
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=new_customers_%s.csv", date))
	if err := tabular.WriteCSV(c.Writer, []string{snapshot.CustomerColumn}, rows); err != nil {
		h.Logger.WithError(err).Error("failed to write new customers csv")
	}
}
