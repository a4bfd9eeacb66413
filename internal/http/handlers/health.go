package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/roomchat-backend/internal/realtime"
)

type HealthHandler struct {
	db  *gorm.DB
	hub *realtime.SSEHub
}

func NewHealthHandler(db *gorm.DB, hub *realtime.SSEHub) *HealthHandler {
	return &HealthHandler{db: db, hub: hub}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.hub != nil {
		body["connections"] = h.hub.ConnectionCount()
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			body["status"] = "degraded"
			body["db"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}
