// internal/app/features/login/handler.go
package login

import (
	"net/http"
	"net/url"

	uierrors "github.com/dalemusser/dukhiatma/internal/app/features/errors"
	"github.com/dalemusser/dukhiatma/internal/app/system/auth"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
)

// messages maps the error codes the sign-in flow redirects with.
var messages = map[string]string{
	"google_not_configured": "Google sign-in is not configured.",
	"google_denied":         "Google sign-in was cancelled.",
	"invalid_state":         "The sign-in attempt expired. Please try again.",
	"invalid_code":          "The sign-in response was incomplete. Please try again.",
	"token_exchange":        "Could not complete sign-in with Google.",
	"user_info":             "Could not read your Google profile.",
	"no_email":              "Your Google account did not share an email address.",
	"session":               "Could not start your session.",
	"internal":              "Something went wrong. Please try again.",
}

type Handler struct {
	Log           *zap.Logger
	GoogleEnabled bool
}

func NewHandler(googleEnabled bool, logger *zap.Logger) *Handler {
	return &Handler{Log: logger, GoogleEnabled: googleEnabled}
}

type errorResponse struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	LoginURL string `json:"login_url,omitempty"`
}

// ServeLogin handles GET /login. Signed-in members go to the chat; otherwise
// the browser is sent to Google. A failed attempt lands here with ?error=
// and gets a JSON explanation instead.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	ret := urlutil.SafeReturn(query.Get(r, "return"), "", "/chat")

	if code := query.Get(r, "error"); code != "" {
		msg, ok := messages[code]
		if !ok {
			code, msg = "internal", messages["internal"]
		}
		resp := errorResponse{Error: code, Message: msg}
		if h.GoogleEnabled {
			resp.LoginURL = "/auth/google?return=" + url.QueryEscape(ret)
		}
		uierrors.WriteJSON(w, http.StatusUnauthorized, resp)
		return
	}

	if u, ok := auth.CurrentUser(r); ok && !u.IsRemoved {
		http.Redirect(w, r, ret, http.StatusSeeOther)
		return
	}

	if !h.GoogleEnabled {
		uierrors.WriteJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error:   "google_not_configured",
			Message: messages["google_not_configured"],
		})
		return
	}

	http.Redirect(w, r, "/auth/google?return="+url.QueryEscape(ret), http.StatusSeeOther)
}
