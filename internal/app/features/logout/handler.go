// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/dukhiatma/internal/app/system/auditlog"
	"github.com/dalemusser/dukhiatma/internal/app/system/auth"
	"go.uber.org/zap"
)

// SessionCloser ends the live chat sessions a member holds.
// chat.Registry satisfies it.
type SessionCloser interface {
	CloseMember(memberID string) int
}

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Chats      SessionCloser
}

func NewHandler(sessionMgr *auth.SessionManager, audit *auditlog.Logger, chats SessionCloser, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
		Chats:      chats,
	}
}

// ServeLogout handles POST /logout. Every open chat session of the
// member is closed before the cookie is deleted.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		closed := 0
		if h.Chats != nil {
			closed = h.Chats.CloseMember(u.ID)
		}
		h.AuditLog.Logout(r.Context(), r, u.ID)
		h.Log.Info("member signed out",
			zap.String("member_id", u.ID),
			zap.Int("chat_sessions_closed", closed))
	}

	if err := h.SessionMgr.Destroy(w, r); err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}

	// HTMX handling: use HX-Redirect to force a client-side navigation to "/".
	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
