package metricsstore

import (
	"context"

	"github.com/dalemusser/fieldhub/internal/app/system/metrics"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// FetchTotals returns document counts for the collections reported on
// /metrics. Intentionally tolerant: on error it logs and returns 0 for that
// counter so one slow collection does not fail the scrape.
func FetchTotals(ctx context.Context, db *mongo.Database, logger *zap.Logger) metrics.Totals {
	if logger == nil {
		logger = zap.NewNop()
	}
	count := func(coll string) int64 {
		n, err := db.Collection(coll).EstimatedDocumentCount(ctx)
		if err != nil {
			logger.Warn("count failed", zap.String("collection", coll), zap.Error(err))
			return 0
		}
		return n
	}
	return metrics.Totals{
		Users:       count("users"),
		Communities: count("communities"),
		Cameras:     count("cameras"),
		Sightings:   count("sightings"),
		Areas:       count("geoareas"),
	}
}
