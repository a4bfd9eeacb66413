package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ServeHTTP streams client's outbound queue as server-sent events until the
// request context ends or the hub closes the client. The caller owns
// CloseClient.
func (hub *SSEHub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *SSEClient) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	hello := SSEMessage{
		Event: SSEEventConnected,
		Data: map[string]any{
			"connection_id": client.ID,
			"user_id":       client.UserID,
			"created_at":    client.CreatedAt.Format(time.RFC3339Nano),
		},
	}
	if err := writeEvent(w, hello); err != nil {
		client.Logger.Warn("Failed to write SSE hello", "error", err)
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(hub.cfg.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			client.Logger.Debug("SSE client context done", "err", ctx.Err())
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case msg, ok := <-client.Outbound:
			if !ok {
				return
			}
			if err := writeEvent(w, msg); err != nil {
				client.Logger.Warn("Failed to write SSE message", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, msg SSEMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, raw); err != nil {
		return err
	}
	return nil
}
