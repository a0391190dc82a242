package api

import (
	"net/http"

	"outreach-desk/internal/nurture"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type MasterHandler struct {
	Service  *nurture.Service
	Filename string
	Logger   *logrus.Logger
}

func NewMasterHandler(service *nurture.Service, filename string, logger *logrus.Logger) *MasterHandler {
	if filename == "" {
		filename = "master_file_A.xlsx"
	}
	return &MasterHandler{Service: service, Filename: filename, Logger: logger}
}

func (h *MasterHandler) GetMaster(c *gin.Context) {
	master, err := h.Service.Master(c.Request.Context())
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	records := master.Records()
	if records == nil {
		records = []*nurture.Record{}
	}
	c.JSON(http.StatusOK, gin.H{
		"records":   records,
		"max_count": master.MaxCount(),
		"saturated": len(master.Saturated(nurture.SaturationThreshold)),
	})
}

// ExportMaster downloads the master in its workbook layout.
func (h *MasterHandler) ExportMaster(c *gin.Context) {
	master, err := h.Service.Master(c.Request.Context())
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+h.Filename)
	if err := nurture.WriteMasterXLSX(c.Writer, master); err != nil {
		h.Logger.WithError(err).Error("failed to write master workbook")
	}
}
