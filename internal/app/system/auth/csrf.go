// internal/app/system/auth/csrf.go
package auth

import (
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// CSRFHeader carries the token on state-changing requests. Safe requests
// behind the CSRF gate get the current token back in the same header.
const CSRFHeader = "X-CSRF-Token"

// newCSRF builds the double-submit gate. The token key is derived from the
// session key so a single secret configures both cookies.
func newCSRF(sessionKey, name, domain string, secure bool, logger *zap.Logger) func(http.Handler) http.Handler {
	key := sha256.Sum256([]byte("csrf:" + sessionKey))

	opts := []csrf.Option{
		csrf.CookieName(name + "-csrf"),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.Secure(secure),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.RequestHeader(CSRFHeader),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("csrf check failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(csrf.FailureReason(r)))
			writeJSONError(w, http.StatusForbidden, "csrf")
		})),
	}
	if domain != "" {
		opts = append(opts, csrf.Domain(domain))
	}
	protect := csrf.Protect(key[:], opts...)

	return func(next http.Handler) http.Handler {
		h := protect(exposeToken(next))
		if secure {
			return h
		}
		// Over plain HTTP there is no Referer to compare against the host;
		// the token alone decides.
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

func exposeToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			if tok := csrf.Token(r); tok != "" {
				w.Header().Set(CSRFHeader, tok)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCSRF rejects POST, PUT, PATCH and DELETE requests that lack the
// token issued on an earlier GET (403 with a JSON error). In secure mode the
// Referer must also name this host.
func (sm *SessionManager) RequireCSRF(next http.Handler) http.Handler {
	return sm.csrf(next)
}
