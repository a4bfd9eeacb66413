package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/roomchat-backend/internal/http/response"
	"github.com/yungbote/roomchat-backend/internal/pkg/ctxutil"
	"github.com/yungbote/roomchat-backend/internal/services"
)

type PushHandler struct {
	registrar services.PushRegistrar
}

func NewPushHandler(registrar services.PushRegistrar) *PushHandler {
	return &PushHandler{registrar: registrar}
}

type registerPushReq struct {
	Token      string `json:"token"`
	Platform   string `json:"platform"`
	Permission string `json:"permission"`
}

type unregisterPushReq struct {
	Token string `json:"token" binding:"required"`
}

// POST /api/push/tokens
func (h *PushHandler) Register(c *gin.Context) {
	var req registerPushReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	outcome, err := h.registrar.Register(
		c.Request.Context(),
		ctxutil.UserID(c.Request.Context()),
		req.Token,
		req.Platform,
		services.PushPermission(req.Permission),
	)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"outcome": outcome})
}

// DELETE /api/push/tokens
func (h *PushHandler) Unregister(c *gin.Context) {
	var req unregisterPushReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.registrar.Unregister(c.Request.Context(), ctxutil.UserID(c.Request.Context()), req.Token); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /internal/push/users/:id/tokens
func (h *PushHandler) TokensFor(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	tokens, err := h.registrar.TokensFor(c.Request.Context(), userID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user_id": userID, "tokens": tokens})
}
