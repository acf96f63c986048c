// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/dukhiatma/internal/app/chat"
	"github.com/dalemusser/dukhiatma/internal/app/realtime"
	"github.com/dalemusser/dukhiatma/internal/app/store/audit"
	memberstore "github.com/dalemusser/dukhiatma/internal/app/store/members"
	messagestore "github.com/dalemusser/dukhiatma/internal/app/store/messages"
	"github.com/dalemusser/dukhiatma/internal/app/store/oauthstate"
	"github.com/dalemusser/dukhiatma/internal/app/system/auditlog"
	"github.com/dalemusser/dukhiatma/internal/app/system/ratelimit"
	"github.com/dalemusser/dukhiatma/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// WAFFLE passes DBDeps by value to every later hook, so the pieces built in
// Startup live behind the Runtime pointer that ConnectDB allocates.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Runtime *Runtime
}

// Runtime is the long-lived application state wired up in Startup and torn
// down in Shutdown.
type Runtime struct {
	Members     *memberstore.Store
	Messages    *messagestore.Store
	OAuthStates *oauthstate.Store
	Audit       *audit.Store
	AuditLog    *auditlog.Logger

	Hub     *realtime.Hub
	Watcher *realtime.Watcher // nil in local mode

	Resolver  *chat.Resolver
	Responder *chat.Responder
	Registry  *chat.Registry

	SendLimit      *ratelimit.Limiter
	AssistantLimit *ratelimit.Limiter

	StateCleanup *workers.StateCleanup
}
