// Package auth holds the cookie session and the request gates for signed-in
// chat members.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/dukhiatma/internal/domain/models"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session keys                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	isAuthKey   = "is_authenticated"
	memberIDKey = "member_id"
	nameKey     = "member_name"
	emailKey    = "member_email"
	avatarKey   = "member_avatar"
	adminKey    = "member_is_admin"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current-member helper                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is what we cache in the session & inject into r.Context().
type SessionUser struct {
	ID        string
	Name      string
	Email     string
	AvatarURL string
	IsAdmin   bool
	IsRemoved bool
}

// MemberFetcher loads fresh member data on each request. It returns nil when
// the member no longer exists.
type MemberFetcher interface {
	FetchMember(ctx context.Context, id string) *SessionUser
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// WithTestUser injects u into the request context, bypassing the cookie.
// For handler tests.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| SessionManager                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager owns the cookie store and the member gates.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	log     *zap.Logger
	fetcher MemberFetcher
	csrf    func(http.Handler) http.Handler
}

// NewSessionManager builds a cookie store keyed by sessionKey. Cookies are
// SameSite=Lax; secure additionally marks them Secure (production over HTTPS).
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = "dukhiatma-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	sm := &SessionManager{store: store, name: name, log: logger}
	sm.csrf = newCSRF(sessionKey, name, domain, secure, logger)
	return sm, nil
}

// Store exposes the underlying cookie store.
func (sm *SessionManager) Store() *sessions.CookieStore { return sm.store }

// Name is the cookie name.
func (sm *SessionManager) Name() string { return sm.name }

// SetMemberFetcher makes LoadSessionUser re-read the member on every request.
func (sm *SessionManager) SetMemberFetcher(f MemberFetcher) { sm.fetcher = f }

// GetSession returns the cookie session. On a decode error it still returns
// a usable fresh session along with the error.
func (sm *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	return sm.store.Get(r, sm.name)
}

// Login records m as the signed-in member.
func (sm *SessionManager) Login(w http.ResponseWriter, r *http.Request, m models.Member) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		if IsDecodeError(err) {
			sm.log.Warn("session cookie invalid, using fresh session",
				zap.Error(err), zap.String("member_id", m.ID.Hex()))
		} else {
			sm.log.Error("session store error during login, using fresh session",
				zap.Error(err), zap.String("member_id", m.ID.Hex()))
		}
	}
	sess.Values[isAuthKey] = true
	sess.Values[memberIDKey] = m.ID.Hex()
	sess.Values[nameKey] = m.Name
	sess.Values[emailKey] = m.Email
	sess.Values[avatarKey] = m.AvatarURL
	sess.Values[adminKey] = m.IsAdmin
	return sess.Save(r, w)
}

// IsDecodeError reports whether err came from a cookie that could not be
// decoded, typically one signed with a rotated key.
func IsDecodeError(err error) bool {
	var scErr securecookie.Error
	if errors.As(err, &scErr) {
		return scErr.IsDecode()
	}
	return false
}

// Destroy deletes the session cookie.
func (sm *SessionManager) Destroy(w http.ResponseWriter, r *http.Request) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		sm.log.Warn("session decode failed during destroy", zap.Error(err))
	}
	// The deletion cookie must match the store's scope.
	opts := *sm.store.Options
	opts.MaxAge = -1
	sess.Options = &opts
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	return sess.Save(r, w)
}

// LoadSessionUser injects the member into context if they are signed in.
// With a fetcher set, the cookie only supplies the id and everything else is
// re-read, so removals and admin changes take effect on the next request.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := sm.GetSession(r)
		if isAuth, _ := sess.Values[isAuthKey].(bool); !isAuth {
			next.ServeHTTP(w, r)
			return
		}
		id := getString(sess, memberIDKey)
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}

		if sm.fetcher != nil {
			if u := sm.fetcher.FetchMember(r.Context(), id); u != nil {
				r = withUser(r, u)
			}
			next.ServeHTTP(w, r)
			return
		}

		admin, _ := sess.Values[adminKey].(bool)
		r = withUser(r, &SessionUser{
			ID:        id,
			Name:      getString(sess, nameKey),
			Email:     getString(sess, emailKey),
			AvatarURL: getString(sess, avatarKey),
			IsAdmin:   admin,
		})
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
// If not signed in:
//   - HTMX: sends HX-Redirect to /login?return=...
//   - HTML: 303 redirect to /login?return=...
//   - API:  401 Unauthorized with a JSON error body.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		sm.unauthenticated(w, r)
	})
}

// RequireMember is RequireSignedIn plus a removed check: a removed member is
// sent to /removed (HTML) or gets 403 (API).
func (sm *SessionManager) RequireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := CurrentUser(r)
		if !ok {
			sm.unauthenticated(w, r)
			return
		}
		if u.IsRemoved {
			sm.log.Info("removed member blocked", zap.String("member_id", u.ID), zap.String("path", r.URL.Path))
			if r.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", "/removed")
				w.WriteHeader(http.StatusForbidden)
				return
			}
			if wantsHTML(r) {
				http.Redirect(w, r, "/removed", http.StatusSeeOther)
				return
			}
			writeJSONError(w, http.StatusForbidden, "removed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (sm *SessionManager) unauthenticated(w http.ResponseWriter, r *http.Request) {
	ret := url.QueryEscape(currentURI(r))

	// HTMX: full-page client redirect (no partial swap)
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login?return="+ret)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/login?return="+ret, http.StatusSeeOther)
		return
	}
	writeJSONError(w, http.StatusUnauthorized, "unauthenticated")
}

// helpers

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

func wantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func currentURI(r *http.Request) string {
	u := *r.URL
	return u.RequestURI()
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
