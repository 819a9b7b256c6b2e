// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"

	metricsstore "github.com/dalemusser/fieldhub/internal/app/store/metrics"
	"github.com/dalemusser/fieldhub/internal/app/system/metrics"
	"github.com/dalemusser/fieldhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.TimeoutPing,
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	if err := registerTotals(prometheus.DefaultRegisterer, deps.MongoDatabase, logger); err != nil {
		logger.Error("register store totals collector failed", zap.Error(err))
		return err
	}
	return nil
}

// registerTotals exposes per-collection document counts on /metrics. A
// second registration (tests, restarts within one process) is not an error.
func registerTotals(reg prometheus.Registerer, db *mongo.Database, logger *zap.Logger) error {
	c := metrics.NewTotalsCollector(func(ctx context.Context) metrics.Totals {
		return metricsstore.FetchTotals(ctx, db, logger)
	}, timeouts.Short())

	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return nil
		}
		return err
	}
	return nil
}
