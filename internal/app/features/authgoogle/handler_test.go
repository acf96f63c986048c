package authgoogle_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/dukhiatma/internal/app/chat"
	"github.com/dalemusser/dukhiatma/internal/app/features/authgoogle"
	"github.com/dalemusser/dukhiatma/internal/app/system/auditlog"
	"github.com/dalemusser/dukhiatma/internal/app/system/auth"
	"github.com/dalemusser/dukhiatma/internal/testutil"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type memState struct {
	verifier  string
	returnURL string
	expiresAt time.Time
}

type memStateStore struct {
	mu   sync.Mutex
	rows map[string]memState
}

func newMemStateStore() *memStateStore {
	return &memStateStore{rows: make(map[string]memState)}
}

func (s *memStateStore) Save(_ context.Context, state, verifier, returnURL string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[state] = memState{verifier: verifier, returnURL: returnURL, expiresAt: expiresAt}
	return nil
}

func (s *memStateStore) Validate(_ context.Context, state string) (string, string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[state]
	delete(s.rows, state)
	if !ok || time.Now().After(row.expiresAt) {
		return "", "", false, nil
	}
	return row.returnURL, row.verifier, true, nil
}

// fakeProvider serves the token and userinfo endpoints.
type fakeProvider struct {
	*httptest.Server
	mu           sync.Mutex
	gotVerifier  string
	profile      map[string]string
	rejectTokens bool
}

func newFakeProvider(t *testing.T, profile map[string]string) *fakeProvider {
	p := &fakeProvider{profile: profile}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		p.mu.Lock()
		p.gotVerifier = r.PostForm.Get("code_verifier")
		p.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if p.rejectTokens || !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p.profile)
	})
	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Close)
	return p
}

type fixture struct {
	h       *authgoogle.Handler
	states  *memStateStore
	members *testutil.MemoryMembers
	sm      *auth.SessionManager
}

func newFixture(t *testing.T, provider *fakeProvider) *fixture {
	t.Helper()
	logger := zap.NewNop()

	sm, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	states := newMemStateStore()
	members := testutil.NewMemoryMembers(nil)
	resolver := chat.NewResolver(members, []string{"admin@example.com"}, logger)

	h := authgoogle.NewHandler(sm, auditlog.NewNopLogger(), states, resolver,
		"test-client-id", "test-client-secret", "http://localhost:8080", logger)
	if provider != nil {
		h.Endpoint = oauth2.Endpoint{
			AuthURL:   provider.URL + "/auth",
			TokenURL:  provider.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}
		h.UserInfoURL = provider.URL + "/userinfo"
	}
	return &fixture{h: h, states: states, members: members, sm: sm}
}

func TestIsConfigured(t *testing.T) {
	f := newFixture(t, nil)
	if !f.h.IsConfigured() {
		t.Error("IsConfigured() should return true with client ID and secret")
	}
	f.h.ClientSecret = ""
	if f.h.IsConfigured() {
		t.Error("IsConfigured() should return false without a secret")
	}
}

func TestServeLogin_NotConfigured(t *testing.T) {
	f := newFixture(t, nil)
	f.h.ClientID = ""

	rec := httptest.NewRecorder()
	f.h.ServeLogin(rec, httptest.NewRequest("GET", "/auth/google", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login?error=google_not_configured" {
		t.Errorf("Location: got %q", loc)
	}
}

func TestServeLogin_RedirectsWithPKCE(t *testing.T) {
	f := newFixture(t, nil)

	rec := httptest.NewRecorder()
	f.h.ServeLogin(rec, httptest.NewRequest("GET", "/auth/google?return=/chat", nil))

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status: got %d, want 307", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad Location: %v", err)
	}
	if !strings.Contains(loc.Host, "google") {
		t.Errorf("expected redirect to Google, got %q", loc.String())
	}
	q := loc.Query()
	if q.Get("code_challenge") == "" || q.Get("code_challenge_method") != "S256" {
		t.Errorf("missing PKCE challenge: %v", q)
	}
	if q.Get("state") == "" {
		t.Error("missing state")
	}
	if len(f.states.rows) != 1 {
		t.Errorf("expected one saved state, got %d", len(f.states.rows))
	}
}

func TestServeCallback_GoogleError(t *testing.T) {
	f := newFixture(t, nil)

	rec := httptest.NewRecorder()
	f.h.ServeCallback(rec, httptest.NewRequest("GET", "/auth/google/callback?error=access_denied", nil))

	if loc := rec.Header().Get("Location"); loc != "/login?error=google_denied" {
		t.Errorf("Location: got %q", loc)
	}
}

func TestServeCallback_MissingState(t *testing.T) {
	f := newFixture(t, nil)

	rec := httptest.NewRecorder()
	f.h.ServeCallback(rec, httptest.NewRequest("GET", "/auth/google/callback?code=abc", nil))

	if loc := rec.Header().Get("Location"); loc != "/login?error=invalid_state" {
		t.Errorf("Location: got %q", loc)
	}
}

func TestServeCallback_InvalidState(t *testing.T) {
	f := newFixture(t, nil)

	rec := httptest.NewRecorder()
	f.h.ServeCallback(rec, httptest.NewRequest("GET", "/auth/google/callback?state=nope&code=abc", nil))

	if loc := rec.Header().Get("Location"); loc != "/login?error=invalid_state" {
		t.Errorf("Location: got %q", loc)
	}
}

// startFlow runs ServeLogin and returns the state it saved.
func startFlow(t *testing.T, f *fixture, returnURL string) string {
	t.Helper()
	rec := httptest.NewRecorder()
	f.h.ServeLogin(rec, httptest.NewRequest("GET", "/auth/google?return="+url.QueryEscape(returnURL), nil))
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad Location: %v", err)
	}
	return loc.Query().Get("state")
}

func TestServeCallback_FullFlow(t *testing.T) {
	p := newFakeProvider(t, map[string]string{
		"id": "g-1", "email": "Asha@Example.com", "name": "Asha", "picture": "https://img/a.png",
	})
	f := newFixture(t, p)

	state := startFlow(t, f, "/chat")
	verifier := f.states.rows[state].verifier

	rec := httptest.NewRecorder()
	f.h.ServeCallback(rec, httptest.NewRequest("GET", "/auth/google/callback?state="+state+"&code=abc", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/chat" {
		t.Errorf("Location: got %q, want /chat", loc)
	}
	if p.gotVerifier != verifier {
		t.Errorf("token request verifier: got %q, want %q", p.gotVerifier, verifier)
	}
	if f.members.Count() != 1 {
		t.Fatalf("expected member created, got %d", f.members.Count())
	}
	m, err := f.members.GetByEmail(context.Background(), "asha@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if m.AvatarURL != "https://img/a.png" {
		t.Errorf("AvatarURL: got %q", m.AvatarURL)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("expected session cookie")
	}

	// State is single use.
	rec = httptest.NewRecorder()
	f.h.ServeCallback(rec, httptest.NewRequest("GET", "/auth/google/callback?state="+state+"&code=abc", nil))
	if loc := rec.Header().Get("Location"); loc != "/login?error=invalid_state" {
		t.Errorf("replayed state: got %q", loc)
	}
}

func TestServeCallback_RemovedMember(t *testing.T) {
	p := newFakeProvider(t, map[string]string{"id": "g-2", "email": "gone@example.com", "name": "Gone"})
	f := newFixture(t, p)

	m := testutil.NewMember("Gone", "gone@example.com", false)
	m.IsRemoved = true
	f.members.Put(m)

	state := startFlow(t, f, "/chat")
	rec := httptest.NewRecorder()
	f.h.ServeCallback(rec, httptest.NewRequest("GET", "/auth/google/callback?state="+state+"&code=abc", nil))

	if loc := rec.Header().Get("Location"); loc != "/removed" {
		t.Errorf("Location: got %q, want /removed", loc)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("removed member must not get a session")
	}
}

func TestServeCallback_NoEmail(t *testing.T) {
	p := newFakeProvider(t, map[string]string{"id": "g-3", "name": "Nobody"})
	f := newFixture(t, p)

	state := startFlow(t, f, "")
	rec := httptest.NewRecorder()
	f.h.ServeCallback(rec, httptest.NewRequest("GET", "/auth/google/callback?state="+state+"&code=abc", nil))

	if loc := rec.Header().Get("Location"); loc != "/login?error=no_email" {
		t.Errorf("Location: got %q", loc)
	}
}

func TestServeCallback_UnsafeReturnFallsBack(t *testing.T) {
	p := newFakeProvider(t, map[string]string{"id": "g-4", "email": "b@example.com", "name": "B"})
	f := newFixture(t, p)

	state := startFlow(t, f, "https://evil.example/phish")
	rec := httptest.NewRecorder()
	f.h.ServeCallback(rec, httptest.NewRequest("GET", "/auth/google/callback?state="+state+"&code=abc", nil))

	if loc := rec.Header().Get("Location"); loc != "/chat" {
		t.Errorf("Location: got %q, want /chat", loc)
	}
}

func TestServeTokenSession(t *testing.T) {
	p := newFakeProvider(t, map[string]string{"id": "g-5", "email": "admin@example.com", "name": "Admin"})
	f := newFixture(t, p)

	rec := httptest.NewRecorder()
	f.h.ServeTokenSession(rec, testutil.NewJSONRequest("POST", "/auth/session", `{"access_token":"tok","refresh_token":"ref"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Member struct {
			Email   string `json:"email"`
			IsAdmin bool   `json:"is_admin"`
		} `json:"member"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Member.Email != "admin@example.com" || !body.Member.IsAdmin {
		t.Errorf("member: %+v", body.Member)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("expected session cookie")
	}
}

func TestServeTokenSession_MissingToken(t *testing.T) {
	f := newFixture(t, nil)

	rec := httptest.NewRecorder()
	f.h.ServeTokenSession(rec, testutil.NewJSONRequest("POST", "/auth/session", `{"refresh_token":"ref"}`))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestServeTokenSession_RejectedToken(t *testing.T) {
	p := newFakeProvider(t, map[string]string{"id": "g-6", "email": "c@example.com"})
	p.rejectTokens = true
	f := newFixture(t, p)

	rec := httptest.NewRecorder()
	f.h.ServeTokenSession(rec, testutil.NewJSONRequest("POST", "/auth/session", `{"access_token":"bad"}`))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}

func TestRoutes(t *testing.T) {
	f := newFixture(t, nil)
	router := authgoogle.Routes(f.h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusTemporaryRedirect {
		t.Errorf("GET /: got %d, want 307", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/callback", nil))
	if rec.Code != http.StatusSeeOther {
		t.Errorf("GET /callback: got %d, want 303", rec.Code)
	}
}
