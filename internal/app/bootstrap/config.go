// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/dukhiatma/internal/app/system/normalize"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for DukhiAtma.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: DUKHIATMA_MONGO_URI, DUKHIATMA_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017/?replicaSet=rs0", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "dukhiatma", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 5, Desc: "MongoDB min connection pool size"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "dukhiatma-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime"},

	// Base URL for OAuth callbacks
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Public base URL (used for the OAuth redirect)"},
	{Name: "trust_proxy", Default: false, Desc: "Read the client IP from X-Forwarded-For/X-Real-IP (only behind a reverse proxy)"},

	// Google sign-in
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},
	{Name: "admin_emails", Default: "", Desc: "Comma-separated emails that become admins when first seen"},

	// Assistant
	{Name: "google_api_key", Default: "", Desc: "Generative-text API key for @chad (blank disables)"},
	{Name: "assistant_models", Default: "", Desc: "Comma-separated model fallback order (blank uses the built-in list)"},
	{Name: "assistant_timeout", Default: "8s", Desc: "Per-model attempt timeout"},
	{Name: "assistant_rate", Default: 20, Desc: "/api/ai-response requests per minute per client IP"},
	{Name: "assistant_burst", Default: 5, Desc: "/api/ai-response burst"},

	// Realtime
	{Name: "realtime_mode", Default: RealtimeChangeStream, Desc: "Realtime delivery: 'changestream' or 'local'"},

	// Send limit
	{Name: "send_rate", Default: 30, Desc: "Messages per minute per member"},
	{Name: "send_burst", Default: 10, Desc: "Message burst per member"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "state_cleanup_interval", Default: "5m", Desc: "How often expired sign-in states are swept"},

	// Timeouts
	{Name: "timeout_short", Default: "", Desc: "Single-document store timeout (blank keeps default)"},
	{Name: "timeout_medium", Default: "", Desc: "Bulk fetch timeout (blank keeps default)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, DUKHIATMA_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "DUKHIATMA", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 30*24*time.Hour),

		BaseURL:    appValues.String("base_url"),
		TrustProxy: appValues.Bool("trust_proxy"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),
		AdminEmails:        normalize.EmailList(appValues.String("admin_emails")),

		GoogleAPIKey:     appValues.String("google_api_key"),
		AssistantModels:  normalize.ModelList(appValues.String("assistant_models")),
		AssistantTimeout: appValues.Duration("assistant_timeout", 8*time.Second),
		AssistantRate:    appValues.Int("assistant_rate"),
		AssistantBurst:   appValues.Int("assistant_burst"),

		RealtimeMode: normalize.Name(appValues.String("realtime_mode")),

		SendRate:  appValues.Int("send_rate"),
		SendBurst: appValues.Int("send_burst"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		StateCleanupInterval: appValues.Duration("state_cleanup_interval", 5*time.Minute),

		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
	}

	return coreCfg, appCfg, nil
}

var auditSettings = map[string]bool{"all": true, "db": true, "log": true, "off": true}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// It checks the MongoDB URI format and the enumerated settings so that
// configuration errors surface before anything connects.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	switch appCfg.RealtimeMode {
	case RealtimeChangeStream, RealtimeLocal:
	default:
		return fmt.Errorf("realtime_mode must be %q or %q, got %q", RealtimeChangeStream, RealtimeLocal, appCfg.RealtimeMode)
	}

	if !auditSettings[appCfg.AuditLogAuth] || !auditSettings[appCfg.AuditLogAdmin] {
		return fmt.Errorf("audit_log_auth and audit_log_admin must be one of all, db, log, off")
	}

	if appCfg.SendRate <= 0 || appCfg.SendBurst <= 0 {
		return fmt.Errorf("send_rate and send_burst must be positive")
	}
	if appCfg.AssistantRate <= 0 || appCfg.AssistantBurst <= 0 {
		return fmt.Errorf("assistant_rate and assistant_burst must be positive")
	}

	if (appCfg.GoogleClientID == "") != (appCfg.GoogleClientSecret == "") {
		return fmt.Errorf("google_client_id and google_client_secret must be set together")
	}

	if appCfg.GoogleAPIKey == "" {
		logger.Warn("google_api_key not set; @chad will not reply")
	}
	if len(appCfg.AdminEmails) == 0 {
		logger.Warn("admin_emails is empty; no member can remove others")
	}
	return nil
}
