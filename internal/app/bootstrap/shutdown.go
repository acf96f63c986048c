// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown ends open chat sessions, stops the background workers and
// disconnects from MongoDB.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if rt := deps.Runtime; rt != nil {
		stopRuntime(rt, logger)
	}

	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}

func stopRuntime(rt *Runtime, logger *zap.Logger) {
	if rt.Registry != nil {
		n := rt.Registry.Len()
		rt.Registry.CloseAll()
		logger.Info("closed chat sessions", zap.Int("count", n))
	}
	if rt.Watcher != nil {
		rt.Watcher.Stop()
	}
	if rt.StateCleanup != nil {
		rt.StateCleanup.Stop()
	}
	if rt.SendLimit != nil {
		rt.SendLimit.Stop()
	}
	if rt.AssistantLimit != nil {
		rt.AssistantLimit.Stop()
	}
}
