package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/roomchat-backend/internal/http/response"
	"github.com/yungbote/roomchat-backend/internal/pkg/ctxutil"
	"github.com/yungbote/roomchat-backend/internal/services"
)

type ChatHandler struct {
	threads services.ThreadService
}

func NewChatHandler(threads services.ThreadService) *ChatHandler {
	return &ChatHandler{threads: threads}
}

type startThreadReq struct {
	ListingID uuid.UUID `json:"listing_id" binding:"required"`
	Body      string    `json:"body" binding:"required"`
}

type appendMessageReq struct {
	Body     string         `json:"body" binding:"required"`
	Metadata map[string]any `json:"metadata"`
}

// GET /api/chat/threads
func (h *ChatHandler) ListThreads(c *gin.Context) {
	threads, err := h.threads.ListThreads(c.Request.Context(), ctxutil.UserID(c.Request.Context()))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"threads": threads})
}

// POST /api/chat/threads
func (h *ChatHandler) StartThread(c *gin.Context) {
	var req startThreadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	thread, msg, err := h.threads.StartThread(c.Request.Context(), ctxutil.UserID(c.Request.Context()), req.ListingID, req.Body)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"thread": thread, "message": msg})
}

// GET /api/chat/threads/:id/messages?limit=50&before=<seq>
func (h *ChatHandler) ListMessages(c *gin.Context) {
	threadID, ok := threadParam(c)
	if !ok {
		return
	}
	limit := 50
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	var before int64
	if v := strings.TrimSpace(c.Query("before")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_before", errors.New("before must be a message seq"))
			return
		}
		before = n
	}
	msgs, err := h.threads.ListMessages(c.Request.Context(), ctxutil.UserID(c.Request.Context()), threadID, limit, before)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"messages": msgs})
}

// POST /api/chat/threads/:id/messages
func (h *ChatHandler) AppendMessage(c *gin.Context) {
	threadID, ok := threadParam(c)
	if !ok {
		return
	}
	var req appendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	msg, err := h.threads.AppendMessage(c.Request.Context(), ctxutil.UserID(c.Request.Context()), threadID, req.Body, req.Metadata)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"message": msg})
}

// POST /api/chat/threads/:id/read
func (h *ChatHandler) MarkRead(c *gin.Context) {
	threadID, ok := threadParam(c)
	if !ok {
		return
	}
	if err := h.threads.MarkRead(c.Request.Context(), ctxutil.UserID(c.Request.Context()), threadID); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/chat/threads/:id
func (h *ChatHandler) DeleteThread(c *gin.Context) {
	threadID, ok := threadParam(c)
	if !ok {
		return
	}
	if err := h.threads.DeleteThread(c.Request.Context(), ctxutil.UserID(c.Request.Context()), threadID); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func threadParam(c *gin.Context) (uuid.UUID, bool) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_thread_id", err)
		return uuid.Nil, false
	}
	return threadID, true
}
