package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/dukhiatma/internal/app/system/auth"
	"github.com/dalemusser/dukhiatma/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	if _, err := auth.NewSessionManager("", "x", "", time.Hour, false, zap.NewNop()); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestRequireSignedIn_NoUser_RedirectsToLogin(t *testing.T) {
	sm := newTestSessionManager(t)
	req := httptest.NewRequest("GET", "/chat", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()

	sm.RequireSignedIn(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/login") {
		t.Errorf("expected redirect to /login, got %q", loc)
	}
}

func TestRequireSignedIn_NoUser_API_Returns401(t *testing.T) {
	sm := newTestSessionManager(t)
	req := httptest.NewRequest("POST", "/chat/messages", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()

	sm.RequireSignedIn(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireSignedIn_NoUser_HTMX_ReturnsHXRedirect(t *testing.T) {
	sm := newTestSessionManager(t)
	req := httptest.NewRequest("GET", "/chat", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()

	sm.RequireSignedIn(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if hx := rec.Header().Get("HX-Redirect"); !strings.HasPrefix(hx, "/login?return=") {
		t.Errorf("expected HX-Redirect to /login, got %q", hx)
	}
}

func TestRequireMember(t *testing.T) {
	sm := newTestSessionManager(t)
	h := sm.RequireMember(okHandler())

	tests := []struct {
		name     string
		user     *auth.SessionUser
		accept   string
		wantCode int
		wantLoc  string
	}{
		{"active member", &auth.SessionUser{ID: "m1"}, "", http.StatusOK, ""},
		{"removed html", &auth.SessionUser{ID: "m1", IsRemoved: true}, "text/html", http.StatusSeeOther, "/removed"},
		{"removed api", &auth.SessionUser{ID: "m1", IsRemoved: true}, "application/json", http.StatusForbidden, ""},
		{"anonymous api", nil, "application/json", http.StatusUnauthorized, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/chat", nil)
			if tc.accept != "" {
				req.Header.Set("Accept", tc.accept)
			}
			if tc.user != nil {
				req = auth.WithTestUser(req, tc.user)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tc.wantCode {
				t.Errorf("status: got %d, want %d", rec.Code, tc.wantCode)
			}
			if tc.wantLoc != "" && rec.Header().Get("Location") != tc.wantLoc {
				t.Errorf("location: got %q, want %q", rec.Header().Get("Location"), tc.wantLoc)
			}
		})
	}
}

type stubFetcher struct {
	u *auth.SessionUser
}

func (f stubFetcher) FetchMember(_ context.Context, _ string) *auth.SessionUser { return f.u }

// loginCookie signs m in and returns the resulting cookie.
func loginCookie(t *testing.T, sm *auth.SessionManager, m models.Member) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := sm.Login(rec, httptest.NewRequest("GET", "/", nil), m); err != nil {
		t.Fatalf("Login: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no session cookie set")
	}
	return cookies[0]
}

func TestLoadSessionUser_FromCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	m := models.Member{ID: primitive.NewObjectID(), Name: "Asha", Email: "asha@example.com", IsAdmin: true}
	cookie := loginCookie(t, sm, m)

	var got *auth.SessionUser
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	}))
	req := httptest.NewRequest("GET", "/chat", nil)
	req.AddCookie(cookie)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil {
		t.Fatal("expected user in context")
	}
	if got.ID != m.ID.Hex() || got.Email != m.Email || !got.IsAdmin {
		t.Errorf("unexpected session user: %+v", got)
	}
}

func TestLoadSessionUser_FetcherOverridesCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	m := models.Member{ID: primitive.NewObjectID(), Name: "Asha", Email: "asha@example.com"}
	cookie := loginCookie(t, sm, m)

	sm.SetMemberFetcher(stubFetcher{u: &auth.SessionUser{ID: m.ID.Hex(), IsRemoved: true}})
	var got *auth.SessionUser
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	}))
	req := httptest.NewRequest("GET", "/chat", nil)
	req.AddCookie(cookie)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || !got.IsRemoved {
		t.Errorf("fetcher result should win: %+v", got)
	}

	// member deleted out from under the session: treated as signed out
	sm.SetMemberFetcher(stubFetcher{})
	got = nil
	req = httptest.NewRequest("GET", "/chat", nil)
	req.AddCookie(cookie)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != nil {
		t.Error("expected no user when fetcher returns nil")
	}
}

func TestDestroy_ExpiresCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	rec := httptest.NewRecorder()
	if err := sm.Destroy(rec, httptest.NewRequest("GET", "/logout", nil)); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected an expiring cookie, got %+v", cookies)
	}
}

func TestCurrentUser_NoUser(t *testing.T) {
	user, ok := auth.CurrentUser(httptest.NewRequest("GET", "/", nil))
	if ok || user != nil {
		t.Error("expected no user in context")
	}
}

func TestLogin_RotatedKeyCookieIsReplaced(t *testing.T) {
	old, err := auth.NewSessionManager("an-older-session-key-of-32-chars-plus", "test-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	sm := newTestSessionManager(t)
	m := models.Member{ID: primitive.NewObjectID(), Name: "Asha", Email: "asha@example.com"}

	rec := httptest.NewRecorder()
	if err := old.Login(rec, httptest.NewRequest("GET", "/", nil), m); err != nil {
		t.Fatalf("old Login: %v", err)
	}
	stale := rec.Result().Cookies()

	req := httptest.NewRequest("GET", "/", nil)
	for _, c := range stale {
		req.AddCookie(c)
	}
	if _, err := sm.GetSession(req); !auth.IsDecodeError(err) {
		t.Fatalf("expected a decode error for a foreign cookie, got %v", err)
	}

	rec = httptest.NewRecorder()
	if err := sm.Login(rec, req, m); err != nil {
		t.Fatalf("Login with stale cookie: %v", err)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("expected a fresh session cookie")
	}
}

func TestIsDecodeError_OtherErrors(t *testing.T) {
	if auth.IsDecodeError(nil) {
		t.Error("nil is not a decode error")
	}
	if auth.IsDecodeError(context.Canceled) {
		t.Error("context.Canceled is not a decode error")
	}
}
