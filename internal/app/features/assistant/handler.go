// Package assistant exposes the @chad responder as a plain request/response
// endpoint for clients that do not hold a chat session.
package assistant

import (
	"errors"
	"net/http"

	"github.com/dalemusser/dukhiatma/internal/app/chat"
	uierrors "github.com/dalemusser/dukhiatma/internal/app/features/errors"
	"github.com/dalemusser/dukhiatma/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

type Handler struct {
	Log       *zap.Logger
	Responder *chat.Responder
	Limit     *ratelimit.Limiter // per client IP; nil disables
}

func NewHandler(responder *chat.Responder, limit *ratelimit.Limiter, logger *zap.Logger) *Handler {
	return &Handler{Log: logger, Responder: responder, Limit: limit}
}

type request struct {
	Message *string `json:"message"`
}

type response struct {
	Response string `json:"response"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/ai-response                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleReply(w http.ResponseWriter, r *http.Request) {
	if h.Limit != nil && !h.Limit.Allow(ratelimit.ClientIP(r)) {
		uierrors.Write(w, http.StatusTooManyRequests, "rate_limited", "Too many requests.")
		return
	}

	var req request
	if err := uierrors.DecodeJSON(w, r, &req, 32<<10); err != nil || req.Message == nil || *req.Message == "" {
		uierrors.BadRequest(w, "message is required")
		return
	}

	if !h.Responder.Configured() {
		h.Log.Error("assistant requested but no backend is configured")
		uierrors.Write(w, http.StatusInternalServerError, "assistant_unconfigured", chat.ErrAssistantUnconfigured.Error())
		return
	}

	reply, err := h.Responder.Reply(r.Context(), *req.Message)
	if err != nil {
		var ae *chat.AssistantError
		if errors.As(err, &ae) {
			h.Log.Warn("assistant exhausted every model",
				zap.Strings("attempted", ae.Attempted),
				zap.Error(ae.Last))
		} else {
			h.Log.Warn("assistant reply failed", zap.Error(err))
		}
		uierrors.Write(w, http.StatusInternalServerError, "assistant_failed", "Failed to get AI response.")
		return
	}

	uierrors.WriteJSON(w, http.StatusOK, response{Response: reply.Text})
}
