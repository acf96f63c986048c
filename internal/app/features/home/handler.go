package home

import (
	"net/http"

	"github.com/dalemusser/dukhiatma/internal/app/system/auth"
	"go.uber.org/zap"
)

// Handler serves the landing redirect.
type Handler struct {
	Log *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – send members to the chat, everyone else to sign-in                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	switch {
	case !ok:
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	case u.IsRemoved:
		http.Redirect(w, r, "/removed", http.StatusSeeOther)
	default:
		http.Redirect(w, r, "/chat", http.StatusSeeOther)
	}
}
