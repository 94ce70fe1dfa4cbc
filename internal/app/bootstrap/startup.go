// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/mthunzitrust/mthunzisite/internal/app/store/audit"
	ledgerstore "github.com/mthunzitrust/mthunzisite/internal/app/store/ledger"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/tasks"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// retentionInterval is how often expired audit and ledger records are purged.
const retentionInterval = 6 * time.Hour

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// Returning a non-nil error aborts startup.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("store timeouts overridden from environment",
			zap.Int("count", n),
			zap.Any("timeouts", timeouts.Current()))
	}

	startTaskRunner(deps.MongoDatabase, appCfg, logger)
	return nil
}

// taskRunner is the process task runner, stopped in Shutdown.
var taskRunner *tasks.Runner

// startTaskRunner registers the retention jobs that are enabled. Nothing is
// started when neither audit nor ledger retention is configured.
func startTaskRunner(db *mongo.Database, appCfg AppConfig, logger *zap.Logger) {
	runner := tasks.New(logger)
	jobs := 0

	if appCfg.LedgerRetention > 0 {
		runner.Register(tasks.RetentionJob("ledger-retention", ledgerstore.New(db), appCfg.LedgerRetention, retentionInterval, logger))
		jobs++
	}
	if appCfg.AuditRetention > 0 {
		runner.Register(tasks.RetentionJob("audit-retention", audit.New(db), appCfg.AuditRetention, retentionInterval, logger))
		jobs++
	}
	if jobs == 0 {
		return
	}

	taskRunner = runner
	taskRunner.Start()
}
