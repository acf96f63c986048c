// internal/app/features/chat/members.go
package chat

import (
	"errors"
	"net/http"

	"github.com/dalemusser/dukhiatma/internal/app/chat"
	uierrors "github.com/dalemusser/dukhiatma/internal/app/features/errors"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| POST /chat/members/{id}/remove                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.member(w, r)
	if !ok {
		return
	}
	targetID := chi.URLParam(r, "id")

	admin := h.Registry.Deps().Admin
	if admin == nil {
		uierrors.Forbidden(w, "Member removal is disabled.")
		return
	}

	err := admin.RemoveMember(r.Context(), actor, targetID)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, chat.ErrForbidden):
		uierrors.Forbidden(w, "Only administrators can remove other members.")
	case errors.Is(err, chat.ErrNotFound):
		uierrors.NotFound(w, "No such member.")
	default:
		h.Log.Error("remove member failed", zap.String("target_id", targetID), zap.Error(err))
		uierrors.Write(w, http.StatusBadGateway, "store_unavailable", "The member was not removed.")
	}
}
