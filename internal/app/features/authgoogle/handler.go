// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/dukhiatma/internal/app/chat"
	uierrors "github.com/dalemusser/dukhiatma/internal/app/features/errors"
	"github.com/dalemusser/dukhiatma/internal/app/system/auditlog"
	"github.com/dalemusser/dukhiatma/internal/app/system/auth"
	"github.com/dalemusser/dukhiatma/internal/app/system/timeouts"
	"github.com/dalemusser/dukhiatma/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultUserInfoURL is Google's OpenID userinfo endpoint.
const DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

const stateTTL = 10 * time.Minute

// StateStore persists the per-attempt state and PKCE verifier.
// oauthstate.Store satisfies it.
type StateStore interface {
	Save(ctx context.Context, state, verifier, returnURL string, expiresAt time.Time) error
	Validate(ctx context.Context, state string) (returnURL, verifier string, valid bool, err error)
}

// Handler handles Google sign-in.
type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	StateStore StateStore
	Resolver   *chat.Resolver

	// OAuth configuration
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "https://dukhiatma.example/auth/google/callback"

	// Overridable for tests.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
	HTTPClient  *http.Client
}

// NewHandler creates a new Google sign-in handler.
func NewHandler(
	sessionMgr *auth.SessionManager,
	audit *auditlog.Logger,
	stateStore StateStore,
	resolver *chat.Resolver,
	clientID, clientSecret, baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Log:          logger,
		SessionMgr:   sessionMgr,
		AuditLog:     audit,
		StateStore:   stateStore,
		Resolver:     resolver,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  strings.TrimRight(baseURL, "/") + "/auth/google/callback",
		Endpoint:     google.Endpoint,
		UserInfoURL:  DefaultUserInfoURL,
	}
}

func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: h.Endpoint,
	}
}

// IsConfigured returns true if Google sign-in is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

// clientContext carries the test HTTP client into the oauth2 package.
func (h *Handler) clientContext(ctx context.Context) context.Context {
	if h.HTTPClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, h.HTTPClient)
	}
	return ctx
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
| Starts the code flow with a PKCE challenge.                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		http.Redirect(w, r, "/login?error=google_not_configured", http.StatusSeeOther)
		return
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	returnURL := query.Get(r, "return")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	expiresAt := time.Now().UTC().Add(stateTTL)
	if err := h.StateStore.Save(ctx, state, verifier, returnURL, expiresAt); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	url := h.oauth2Config().AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	h.Log.Debug("initiating Google OAuth flow", zap.String("return_url", returnURL))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
| Exchanges the code (with the stored verifier), reads the profile, resolves  |
| the member, and writes the cookie session.                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", r.URL.Query().Get("error_description")))
		h.AuditLog.LoginFailedProvider(ctx, r, "denied: "+errParam)
		http.Redirect(w, r, "/login?error=google_denied", http.StatusSeeOther)
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" {
		h.Log.Warn("missing OAuth state parameter")
		h.AuditLog.LoginFailedProvider(ctx, r, "missing state")
		http.Redirect(w, r, "/login?error=invalid_state", http.StatusSeeOther)
		return
	}

	stateCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
	returnURL, verifier, valid, err := h.StateStore.Validate(stateCtx, state)
	cancel()
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}
	if !valid {
		h.Log.Warn("invalid or expired OAuth state")
		h.AuditLog.LoginFailedProvider(ctx, r, "invalid state")
		http.Redirect(w, r, "/login?error=invalid_state", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.Log.Warn("missing OAuth code parameter")
		h.AuditLog.LoginFailedProvider(ctx, r, "missing code")
		http.Redirect(w, r, "/login?error=invalid_code", http.StatusSeeOther)
		return
	}

	token, err := h.oauth2Config().Exchange(h.clientContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		h.AuditLog.LoginFailedProvider(ctx, r, "code exchange")
		http.Redirect(w, r, "/login?error=token_exchange", http.StatusSeeOther)
		return
	}

	info, err := h.fetchUserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		h.AuditLog.LoginFailedProvider(ctx, r, "userinfo")
		http.Redirect(w, r, "/login?error=user_info", http.StatusSeeOther)
		return
	}

	m, err := h.resolve(r, info)
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrUnauthenticated):
		http.Redirect(w, r, "/login?error=no_email", http.StatusSeeOther)
		return
	case errors.Is(err, chat.ErrUnauthorized):
		http.Redirect(w, r, "/removed", http.StatusSeeOther)
		return
	default:
		h.Log.Error("failed to resolve member", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	if err := h.SessionMgr.Login(w, r, m); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("member_id", m.ID.Hex()))
		http.Redirect(w, r, "/login?error=session", http.StatusSeeOther)
		return
	}
	h.AuditLog.LoginSuccess(ctx, r, m)
	h.Log.Info("member signed in via Google", zap.String("member_id", m.ID.Hex()))

	http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/chat"), http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/session                                                           |
| Accepts tokens obtained by the client directly from the provider.           |
*─────────────────────────────────────────────────────────────────────────────*/

type tokenSessionRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type tokenSessionResponse struct {
	Member models.Member `json:"member"`
}

func (h *Handler) ServeTokenSession(w http.ResponseWriter, r *http.Request) {
	var req tokenSessionRequest
	if err := uierrors.DecodeJSON(w, r, &req, 16<<10); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.AccessToken) == "" {
		uierrors.BadRequest(w, "access_token is required")
		return
	}

	ctx := r.Context()
	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		TokenType:    "Bearer",
	})
	info, err := h.fetchUserInfo(ctx, ts)
	if err != nil {
		h.Log.Warn("token session rejected", zap.Error(err))
		h.AuditLog.LoginFailedProvider(ctx, r, "token userinfo")
		uierrors.Write(w, http.StatusUnauthorized, "invalid_token", "The provider rejected the token.")
		return
	}

	m, err := h.resolve(r, info)
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrUnauthenticated):
		uierrors.Write(w, http.StatusUnauthorized, "no_email", "The identity has no email address.")
		return
	case errors.Is(err, chat.ErrUnauthorized):
		uierrors.Write(w, http.StatusForbidden, "removed", "You have been removed from this chat.")
		return
	default:
		h.Log.Error("failed to resolve member", zap.Error(err))
		uierrors.Internal(w)
		return
	}

	if err := h.SessionMgr.Login(w, r, m); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("member_id", m.ID.Hex()))
		uierrors.Internal(w)
		return
	}
	h.AuditLog.LoginSuccess(ctx, r, m)
	uierrors.WriteJSON(w, http.StatusOK, tokenSessionResponse{Member: m})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (h *Handler) fetchUserInfo(ctx context.Context, ts oauth2.TokenSource) (*googleUserInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	client := oauth2.NewClient(h.clientContext(ctx), ts)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}

// resolve maps the provider profile to a member and records failures.
func (h *Handler) resolve(r *http.Request, info *googleUserInfo) (models.Member, error) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.Resolver.Resolve(ctx, &chat.Identity{
		Subject:   info.ID,
		Email:     info.Email,
		Name:      info.Name,
		AvatarURL: info.Picture,
	})
	switch {
	case errors.Is(err, chat.ErrUnauthenticated):
		h.AuditLog.LoginFailedNoEmail(r.Context(), r)
	case errors.Is(err, chat.ErrUnauthorized):
		h.AuditLog.LoginFailedRemoved(r.Context(), r, info.Email)
	}
	return m, err
}
