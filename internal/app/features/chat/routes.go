// internal/app/features/chat/routes.go
package chat

import (
	"github.com/dalemusser/dukhiatma/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /chat. Every route requires an active member.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireMember)

	r.Get("/", h.ServeSnapshot)
	r.Get("/events", h.ServeEvents)
	r.Post("/messages", h.HandleSend)
	r.Post("/members/{id}/remove", h.HandleRemove)

	return r
}
