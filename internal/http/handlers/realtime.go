package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/roomchat-backend/internal/http/response"
	"github.com/yungbote/roomchat-backend/internal/pkg/ctxutil"
	"github.com/yungbote/roomchat-backend/internal/platform/apierr"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
	"github.com/yungbote/roomchat-backend/internal/realtime"
	"github.com/yungbote/roomchat-backend/internal/services"
)

var (
	errConnectionNotFound = errors.New("connection not found")
	errThreadNotFound     = errors.New("thread not found")
)

type RealtimeHandler struct {
	log     *logger.Logger
	hub     *realtime.SSEHub
	threads services.ThreadService
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub, threads services.ThreadService) *RealtimeHandler {
	return &RealtimeHandler{
		log:     log.With("handler", "RealtimeHandler"),
		hub:     hub,
		threads: threads,
	}
}

// GET /api/inbox/stream
func (h *RealtimeHandler) Stream(c *gin.Context) {
	userID := ctxutil.UserID(c.Request.Context())
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, string(services.AuthMissingCredential), errors.New("not authenticated"))
		return
	}

	client := h.hub.NewSSEClient(userID)
	defer h.hub.CloseClient(client)
	if err := h.hub.AddChannel(client, realtime.InboxChannel(userID)); err != nil {
		response.RespondAPIError(c, apierr.New(http.StatusInternalServerError, "join_failed", err))
		return
	}
	h.log.Info("SSE stream open", "user_id", userID, "connection_id", client.ID)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.log.Info("SSE stream closed", "user_id", userID, "connection_id", client.ID)
}

// POST /api/inbox/connections/:connID/threads/:threadID
func (h *RealtimeHandler) JoinThread(c *gin.Context) {
	client, threadID, ok := h.resolve(c)
	if !ok {
		return
	}
	isParticipant, err := h.threads.IsParticipant(c.Request.Context(), client.UserID, threadID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if !isParticipant {
		response.RespondError(c, http.StatusNotFound, "thread_not_found", errThreadNotFound)
		return
	}
	channel := realtime.ThreadChannel(threadID)
	if err := h.hub.AddChannel(client, channel); err != nil {
		if errors.Is(err, realtime.ErrClientClosed) {
			response.RespondError(c, http.StatusNotFound, "connection_not_found", errConnectionNotFound)
			return
		}
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"channel": channel, "channels": h.hub.Channels(client)})
}

// DELETE /api/inbox/connections/:connID/threads/:threadID
func (h *RealtimeHandler) LeaveThread(c *gin.Context) {
	client, threadID, ok := h.resolve(c)
	if !ok {
		return
	}
	h.hub.RemoveChannel(client, realtime.ThreadChannel(threadID))
	response.RespondOK(c, gin.H{"channels": h.hub.Channels(client)})
}

// resolve finds the caller's own live connection and the thread id from the path.
func (h *RealtimeHandler) resolve(c *gin.Context) (*realtime.SSEClient, uuid.UUID, bool) {
	connID, err := uuid.Parse(c.Param("connID"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_connection_id", err)
		return nil, uuid.Nil, false
	}
	threadID, err := uuid.Parse(c.Param("threadID"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_thread_id", err)
		return nil, uuid.Nil, false
	}
	client, ok := h.hub.Client(connID)
	if !ok || client.UserID != ctxutil.UserID(c.Request.Context()) {
		response.RespondError(c, http.StatusNotFound, "connection_not_found", errConnectionNotFound)
		return nil, uuid.Nil, false
	}
	return client, threadID, true
}
