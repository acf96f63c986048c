// internal/app/features/chat/messages.go
package chat

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/dukhiatma/internal/app/chat"
	uierrors "github.com/dalemusser/dukhiatma/internal/app/features/errors"
	"github.com/dalemusser/dukhiatma/internal/app/system/auth"
	"github.com/dalemusser/dukhiatma/internal/domain/models"
	"go.uber.org/zap"
)

const maxMessageBody = 64 << 10

type sendRequest struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

type sendFailure struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Draft   string `json:"draft,omitempty"`
}

type sendResponse struct {
	Message models.Message `json:"message"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /chat/messages                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}

	var req sendRequest
	if err := uierrors.DecodeJSON(w, r, &req, maxMessageBody); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		uierrors.BadRequest(w, "session_id is required")
		return
	}

	sess, ok := h.Registry.Get(req.SessionID, u.ID)
	if !ok {
		uierrors.NotFound(w, "No open chat session with that id.")
		return
	}

	if h.SendLimit != nil && !h.SendLimit.Allow(u.ID) {
		uierrors.WriteJSON(w, http.StatusTooManyRequests, sendFailure{
			Error:   "rate_limited",
			Message: "You are sending messages too quickly.",
			Draft:   req.Content,
		})
		return
	}

	msg, err := sess.Send(r.Context(), req.Content)
	if err == nil {
		uierrors.WriteJSON(w, http.StatusCreated, sendResponse{Message: msg})
		return
	}

	var se *chat.SendError
	draft := req.Content
	if errors.As(err, &se) {
		draft = se.Draft
	}
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		uierrors.WriteJSON(w, http.StatusBadRequest, sendFailure{Error: "empty_message", Message: "Message is empty."})
	case errors.Is(err, chat.ErrSendInFlight):
		uierrors.WriteJSON(w, http.StatusConflict, sendFailure{Error: "send_in_flight", Message: "Your previous message is still sending.", Draft: draft})
	case errors.Is(err, chat.ErrSessionClosed):
		uierrors.WriteJSON(w, http.StatusConflict, sendFailure{Error: "session_closed", Message: "The chat session has ended.", Draft: draft})
	default:
		h.Log.Warn("send failed", zap.String("session_id", sess.ID), zap.Error(err))
		uierrors.WriteJSON(w, http.StatusBadGateway, sendFailure{Error: "send_failed", Message: "Message was not sent.", Draft: draft})
	}
}
