// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/fieldhub/internal/app/system/indexes"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// EnsureSchema reconciles every collection's indexes. The unique and
// 2dsphere indexes are what enforce fieldhub's invariants, so a failure here
// aborts startup.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return err
	}
	logger.Info("indexes ensured", zap.String("database", deps.MongoDatabase.Name()))
	return nil
}
