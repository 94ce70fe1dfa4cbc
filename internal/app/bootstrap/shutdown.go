// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown runs after the HTTP server has drained. Retention tasks stop
// before MongoDB disconnects so no purge is cut off mid-query. Every step
// runs even if an earlier one fails; the errors are joined.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	var errs []error

	if taskRunner != nil {
		if err := taskRunner.Stop(ctx); err != nil {
			logger.Warn("retention tasks did not stop before the deadline", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if deps.MongoClient != nil {
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			errs = append(errs, err)
		} else {
			logger.Info("MongoDB disconnected")
		}
	}

	return errors.Join(errs...)
}
