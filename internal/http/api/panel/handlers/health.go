package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tvpanel/tvpanel/internal/db"
	"gorm.io/gorm"
)

const healthPingTimeout = 2 * time.Second

// HealthHandler reports whether the panel database is reachable.
type HealthHandler struct {
	db    *gorm.DB
	clock Clock
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(db *gorm.DB, clock Clock) *HealthHandler {
	return &HealthHandler{db: db, clock: clock}
}

// Healthz pings the database and reports its dialect.
func (h *HealthHandler) Healthz(c *gin.Context) {
	status := gin.H{
		"ok":       true,
		"database": db.DialectName(h.db),
		"time":     h.clock.Now().UTC().Format(time.RFC3339),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()
	sqlDB, errDB := h.db.DB()
	if errDB == nil {
		errDB = sqlDB.PingContext(ctx)
	}
	if errDB != nil {
		log.WithError(errDB).Warn("health check: database unreachable")
		status["ok"] = false
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}
