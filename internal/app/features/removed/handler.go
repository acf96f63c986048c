// Package removed serves the notice shown to members an admin has removed.
package removed

import (
	"net/http"

	uierrors "github.com/dalemusser/dukhiatma/internal/app/features/errors"
	"github.com/dalemusser/dukhiatma/internal/app/system/auth"
	"go.uber.org/zap"
)

// Message is the notice text.
const Message = "You have been removed from this chat by an administrator."

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
}

func NewHandler(sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{Log: logger, SessionMgr: sessionMgr}
}

// ServeNotice handles GET /removed. The cookie session is cleared so the
// browser does not keep retrying with a dead identity.
func (h *Handler) ServeNotice(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.Destroy(w, r); err != nil {
		h.Log.Error("removed: clear session", zap.Error(err))
	}
	uierrors.Write(w, http.StatusForbidden, "removed", Message)
}
