// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// Realtime delivery modes.
const (
	RealtimeChangeStream = "changestream" // tail MongoDB change streams (needs a replica set)
	RealtimeLocal        = "local"        // stores publish their own writes in-process
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration (ports, TLS, log level, CORS).
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: dukhiatma-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Base URL for OAuth callbacks (e.g., "https://dukhiatma.example")
	BaseURL string

	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	// Enable only behind a reverse proxy that sets those headers.
	TrustProxy bool

	// Google sign-in
	GoogleClientID     string
	GoogleClientSecret string

	// AdminEmails is the allow-list consulted when a member is first created.
	AdminEmails []string

	// Assistant (@chad)
	GoogleAPIKey     string        // generative-text API key; blank disables the assistant
	AssistantModels  []string      // fallback order
	AssistantTimeout time.Duration // per model attempt
	AssistantRate    int           // /api/ai-response requests per minute per client IP
	AssistantBurst   int

	// Realtime
	RealtimeMode string // "changestream" or "local"

	// Per-member send limit
	SendRate  int // messages per minute
	SendBurst int

	// Audit logging
	AuditLogAuth  string // "all", "db", "log", "off"
	AuditLogAdmin string

	// Sign-in state cleanup
	StateCleanupInterval time.Duration

	// Timeouts (zero keeps the defaults)
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
}
