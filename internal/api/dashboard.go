package api

import (
	"net/http"

	"outreach-desk/internal/nurture"
	"outreach-desk/internal/snapshot"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type DashboardHandler struct {
	Snapshots snapshot.Store
	Service   *nurture.Service
	Logger    *logrus.Logger
}

func NewDashboardHandler(snapshots snapshot.Store, service *nurture.Service, logger *logrus.Logger) *DashboardHandler {
	return &DashboardHandler{Snapshots: snapshots, Service: service, Logger: logger}
}

type Summary struct {
	SnapshotDates  int    `json:"snapshot_dates"`
	LatestSnapshot string `json:"latest_snapshot,omitempty"`
	MasterRecords  int    `json:"master_records"`
	Saturated      int    `json:"saturated"`
	Replied        int    `json:"replied"`
	TotalSends     int    `json:"total_sends"`
}

func (h *DashboardHandler) GetSummary(c *gin.Context) {
	ctx := c.Request.Context()

	dates, err := h.Snapshots.Dates(ctx)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	master, err := h.Service.Master(ctx)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	summary := Summary{
		SnapshotDates: len(dates),
		MasterRecords: master.Len(),
		Saturated:     len(master.Saturated(nurture.SaturationThreshold)),
	}
	if len(dates) > 0 {
		summary.LatestSnapshot = dates[len(dates)-1]
	}
	for _, r := range master.Records() {
		if r.Status == nurture.StatusReplied {
			summary.Replied++
		}
		summary.TotalSends += r.Count
	}

	c.JSON(http.StatusOK, summary)
}
