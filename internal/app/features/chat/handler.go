// internal/app/features/chat/handler.go
package chat

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/dukhiatma/internal/app/chat"
	uierrors "github.com/dalemusser/dukhiatma/internal/app/features/errors"
	memberstore "github.com/dalemusser/dukhiatma/internal/app/store/members"
	"github.com/dalemusser/dukhiatma/internal/app/system/auditlog"
	"github.com/dalemusser/dukhiatma/internal/app/system/auth"
	"github.com/dalemusser/dukhiatma/internal/app/system/ratelimit"
	"github.com/dalemusser/dukhiatma/internal/app/system/timeouts"
	"github.com/dalemusser/dukhiatma/internal/domain/models"
	"go.uber.org/zap"
)

// DefaultHeartbeat is how often an idle event stream gets a keep-alive comment.
const DefaultHeartbeat = 25 * time.Second

// Handler serves the chat room over JSON and server-sent events.
type Handler struct {
	Log       *zap.Logger
	Registry  *chat.Registry
	AuditLog  *auditlog.Logger
	SendLimit *ratelimit.Limiter // per member; nil disables
	Heartbeat time.Duration
}

func NewHandler(registry *chat.Registry, audit *auditlog.Logger, sendLimit *ratelimit.Limiter, logger *zap.Logger) *Handler {
	return &Handler{
		Log:       logger,
		Registry:  registry,
		AuditLog:  audit,
		SendLimit: sendLimit,
		Heartbeat: DefaultHeartbeat,
	}
}

// member re-reads the signed-in member from the store. It writes the error
// response itself and returns false when the request cannot continue.
func (h *Handler) member(w http.ResponseWriter, r *http.Request) (models.Member, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.Unauthorized(w)
		return models.Member{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.Registry.Deps().Members.GetByID(ctx, u.ID)
	switch {
	case err == nil:
	case errors.Is(err, memberstore.ErrNotFound):
		uierrors.Unauthorized(w)
		return models.Member{}, false
	default:
		h.Log.Error("member lookup failed", zap.String("member_id", u.ID), zap.Error(err))
		uierrors.Write(w, http.StatusBadGateway, "store_unavailable", "The chat service is unavailable.")
		return models.Member{}, false
	}
	if m.IsRemoved {
		uierrors.Write(w, http.StatusForbidden, "removed", "You have been removed from this chat.")
		return models.Member{}, false
	}
	return m, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /chat – one-off snapshot                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeSnapshot(w http.ResponseWriter, r *http.Request) {
	me, ok := h.member(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "chat snapshot")
	defer cancel()

	snap, err := chat.LoadSnapshot(ctx, h.Registry.Deps(), me)
	if err != nil {
		h.Log.Error("snapshot failed", zap.String("member_id", me.ID.Hex()), zap.Error(err))
		uierrors.Write(w, http.StatusBadGateway, "store_unavailable", "Could not load the chat.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, snap)
}
