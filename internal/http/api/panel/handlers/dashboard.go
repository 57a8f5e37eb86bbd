package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tvpanel/tvpanel/internal/dashboard"
	"github.com/tvpanel/tvpanel/internal/security"
	log "github.com/sirupsen/logrus"
)

// DashboardHandler serves the home page counters.
type DashboardHandler struct {
	aggregator *dashboard.Aggregator
	clock      Clock
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(aggregator *dashboard.Aggregator, clock Clock) *DashboardHandler {
	return &DashboardHandler{aggregator: aggregator, clock: clock}
}

// Stats returns the client counters for today.
func (h *DashboardHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	stats, errStats := h.aggregator.Stats(ctx, h.clock.Today(ctx))
	if errStats != nil {
		log.WithError(errStats).Error("dashboard stats")
		fail(c, http.StatusInternalServerError, MsgStatsError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

// GeneratePassword returns a random client password. The requested length
// is clamped to the supported range.
func GeneratePassword(c *gin.Context) {
	length := security.DefaultPasswordLength
	if raw := c.Query("length"); raw != "" {
		n, errAtoi := strconv.Atoi(raw)
		if errAtoi != nil {
			n = 0
		}
		length = n
	}
	length = security.ClampPasswordLength(length)

	password, errGenerate := security.GeneratePassword(length)
	if errGenerate != nil {
		log.WithError(errGenerate).Error("generate password")
		fail(c, http.StatusInternalServerError, MsgServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "password": password, "length": length})
}
