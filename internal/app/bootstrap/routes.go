// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"errors"
	"net/http"

	assistantfeature "github.com/dalemusser/dukhiatma/internal/app/features/assistant"
	authgooglefeature "github.com/dalemusser/dukhiatma/internal/app/features/authgoogle"
	chatfeature "github.com/dalemusser/dukhiatma/internal/app/features/chat"
	healthfeature "github.com/dalemusser/dukhiatma/internal/app/features/health"
	homefeature "github.com/dalemusser/dukhiatma/internal/app/features/home"
	loginfeature "github.com/dalemusser/dukhiatma/internal/app/features/login"
	logoutfeature "github.com/dalemusser/dukhiatma/internal/app/features/logout"
	removedfeature "github.com/dalemusser/dukhiatma/internal/app/features/removed"
	memberstore "github.com/dalemusser/dukhiatma/internal/app/store/members"
	metricsstore "github.com/dalemusser/dukhiatma/internal/app/store/metrics"
	"github.com/dalemusser/dukhiatma/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: the MongoDB client and the Runtime built in Startup
//   - logger: the fully configured zap.Logger for this app
//
// DukhiAtma applies session middleware and mounts the sign-in flow, the
// chat API with its event stream, the stateless assistant endpoint, health
// and metrics.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	rt := deps.Runtime
	if rt == nil || rt.Registry == nil {
		return nil, errors.New("build handler: runtime not initialized; Startup did not run")
	}

	// Create the session manager using app config.
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// LoadSessionUser re-reads the member on each request so a removal takes
	// effect immediately.
	sessionMgr.SetMemberFetcher(memberstore.NewFetcher(rt.Members))

	return newRouter(appCfg, deps, sessionMgr, logger), nil
}

func newRouter(appCfg AppConfig, deps DBDeps, sessionMgr *auth.SessionManager, logger *zap.Logger) chi.Router {
	rt := deps.Runtime
	r := chi.NewRouter()

	// Behind a reverse proxy, RemoteAddr becomes the forwarded client IP so
	// per-IP limits and audit records see the real caller.
	if appCfg.TrustProxy {
		r.Use(middleware.RealIP)
	}

	// Global auth middleware: loads SessionUser into context if signed in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, appCfg.RealtimeMode, rt.Registry.Len, logger)
	healthHandler.Counts = func(ctx context.Context) metricsstore.Counts {
		return metricsstore.FetchRoomCounts(ctx, deps.MongoDatabase)
	}
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Entry point: routes to /login, /removed or /chat
	homeHandler := homefeature.NewHandler(logger)
	r.Mount("/", homefeature.Routes(homeHandler))

	// Authentication
	googleHandler := authgooglefeature.NewHandler(
		sessionMgr,
		rt.AuditLog,
		rt.OAuthStates,
		rt.Resolver,
		appCfg.GoogleClientID,
		appCfg.GoogleClientSecret,
		appCfg.BaseURL,
		logger,
	)
	r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
	r.Post("/auth/session", googleHandler.ServeTokenSession)

	loginHandler := loginfeature.NewHandler(googleHandler.IsConfigured(), logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	removedHandler := removedfeature.NewHandler(sessionMgr, logger)
	r.Mount("/removed", removedfeature.Routes(removedHandler))

	// Cookie-authenticated writes carry a CSRF token; GET /chat hands it out.
	r.Group(func(cr chi.Router) {
		cr.Use(sessionMgr.RequireCSRF)

		logoutHandler := logoutfeature.NewHandler(sessionMgr, rt.AuditLog, rt.Registry, logger)
		cr.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

		// Chat room
		chatHandler := chatfeature.NewHandler(rt.Registry, rt.AuditLog, rt.SendLimit, logger)
		cr.Mount("/chat", chatfeature.Routes(chatHandler, sessionMgr))
	})

	// Stateless assistant
	assistantHandler := assistantfeature.NewHandler(rt.Responder, rt.AssistantLimit, logger)
	r.Mount("/api", assistantfeature.Routes(assistantHandler))

	return r
}
