package assistant

import "github.com/go-chi/chi/v5"

// Routes mounts under /api.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/ai-response", h.HandleReply)
	return r
}
