// internal/app/features/chat/events.go
package chat

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/dukhiatma/internal/app/chat"
	uierrors "github.com/dalemusser/dukhiatma/internal/app/features/errors"
	"go.uber.org/zap"
)

type readyEvent struct {
	SessionID string        `json:"session_id"`
	Snapshot  chat.Snapshot `json:"snapshot"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /chat/events – live session over server-sent events                      |
| The first event is "ready" carrying the session id the client posts with.   |
| Every later event is named after its update kind.                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		uierrors.Write(w, http.StatusInternalServerError, "streaming_unsupported", "Streaming is not supported.")
		return
	}
	me, ok := h.member(w, r)
	if !ok {
		return
	}

	sess, err := h.Registry.Open(r.Context(), me)
	if err != nil {
		h.Log.Error("open chat session failed", zap.String("member_id", me.ID.Hex()), zap.Error(err))
		uierrors.Write(w, http.StatusBadGateway, "store_unavailable", "Could not load the chat.")
		return
	}
	defer h.Registry.Close(sess.ID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "ready", readyEvent{SessionID: sess.ID, Snapshot: sess.Snapshot()}); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	updates := sess.Updates()
	flush := func() error {
		for _, u := range updates.Drain() {
			if err := writeEvent(w, string(u.Kind), u); err != nil {
				return err
			}
		}
		flusher.Flush()
		return nil
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sess.Done():
			_ = flush()
			if sess.ForcedOut() {
				h.AuditLog.ForcedLogout(r.Context(), sess.MemberID())
			}
			return
		case <-updates.Ready():
			if err := flush(); err != nil {
				h.Log.Debug("event stream write failed", zap.String("session_id", sess.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, b)
	return err
}
