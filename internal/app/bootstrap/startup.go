// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/dukhiatma/internal/app/chat"
	"github.com/dalemusser/dukhiatma/internal/app/realtime"
	"github.com/dalemusser/dukhiatma/internal/app/store/audit"
	memberstore "github.com/dalemusser/dukhiatma/internal/app/store/members"
	messagestore "github.com/dalemusser/dukhiatma/internal/app/store/messages"
	"github.com/dalemusser/dukhiatma/internal/app/store/oauthstate"
	"github.com/dalemusser/dukhiatma/internal/app/system/auditlog"
	"github.com/dalemusser/dukhiatma/internal/app/system/gemini"
	"github.com/dalemusser/dukhiatma/internal/app/system/ratelimit"
	"github.com/dalemusser/dukhiatma/internal/app/system/timeouts"
	"github.com/dalemusser/dukhiatma/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It wires
// the stores, the realtime hub, the assistant and the chat registry into
// deps.Runtime and starts the background workers.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Runtime == nil {
		return errors.New("startup: DBDeps has no runtime; ConnectDB did not run")
	}

	timeouts.Configure(timeouts.Config{
		Short:     appCfg.TimeoutShort,
		Medium:    appCfg.TimeoutMedium,
		Assistant: appCfg.AssistantTimeout,
	})

	var backend chat.Backend
	if appCfg.GoogleAPIKey != "" {
		client, err := gemini.New(ctx, appCfg.GoogleAPIKey)
		if err != nil {
			logger.Error("gemini client init failed", zap.Error(err))
			return fmt.Errorf("gemini: %w", err)
		}
		backend = client
	}

	if err := wireRuntime(deps.Runtime, appCfg, deps.MongoDatabase, backend, logger); err != nil {
		return err
	}
	startRuntime(deps.Runtime, logger)

	logger.Info("dukhiatma started",
		zap.String("realtime_mode", appCfg.RealtimeMode),
		zap.Bool("assistant", deps.Runtime.Responder.Configured()),
		zap.Strings("assistant_models", deps.Runtime.Responder.Models()),
		zap.Int("admin_emails", len(appCfg.AdminEmails)),
	)
	return nil
}

// wireRuntime builds every long-lived component into rt without starting any
// goroutines. backend may be nil, which leaves @chad silent.
func wireRuntime(rt *Runtime, appCfg AppConfig, db *mongo.Database, backend chat.Backend, logger *zap.Logger) error {
	rt.Members = memberstore.New(db)
	rt.Messages = messagestore.New(db)
	rt.OAuthStates = oauthstate.New(db)
	rt.Audit = audit.New(db)
	rt.AuditLog = auditlog.New(rt.Audit, logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	rt.Hub = realtime.NewHub(logger)
	switch appCfg.RealtimeMode {
	case RealtimeChangeStream:
		rt.Watcher = realtime.NewWatcher(db, rt.Hub, logger)
	case RealtimeLocal:
		rt.Members.SetPublisher(rt.Hub)
		rt.Messages.SetPublisher(rt.Hub)
	default:
		return fmt.Errorf("unknown realtime mode %q", appCfg.RealtimeMode)
	}

	rt.Resolver = chat.NewResolver(rt.Members, appCfg.AdminEmails, logger)
	rt.Responder = chat.NewResponder(backend, appCfg.AssistantModels, logger).WithTimeout(appCfg.AssistantTimeout)

	rt.Registry = chat.NewRegistry(chat.Deps{
		Members:   rt.Members,
		Messages:  rt.Messages,
		Feed:      rt.Hub,
		Responder: rt.Responder,
		Admin:     chat.NewAdmin(rt.Members, rt.AuditLog, logger),
		Log:       logger,
	})

	rt.SendLimit = ratelimit.New(float64(appCfg.SendRate), appCfg.SendBurst)
	rt.AssistantLimit = ratelimit.New(float64(appCfg.AssistantRate), appCfg.AssistantBurst)

	rt.StateCleanup = workers.NewStateCleanup(rt.OAuthStates, logger, appCfg.StateCleanupInterval)
	return nil
}

// startRuntime launches the change-stream watcher (if any) and the sign-in
// state sweeper. Both are stopped in Shutdown.
func startRuntime(rt *Runtime, logger *zap.Logger) {
	if rt.Watcher != nil {
		rt.Watcher.Start(context.Background())
	} else {
		logger.Info("realtime in local mode; only writes from this process are broadcast")
	}
	rt.StateCleanup.Start()
}
