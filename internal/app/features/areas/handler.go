// internal/app/features/areas/handler.go
package areas

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/fieldhub/internal/app/policy/registerpolicy"
	"github.com/dalemusser/fieldhub/internal/app/store/queries/areastats"
	"github.com/dalemusser/fieldhub/internal/app/store/queries/visible"
	"github.com/dalemusser/fieldhub/internal/app/system/auth"
	"github.com/dalemusser/fieldhub/internal/app/system/metrics"
	"github.com/dalemusser/fieldhub/internal/app/system/respond"
	"github.com/dalemusser/fieldhub/internal/app/system/timeouts"
	"github.com/dalemusser/fieldhub/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves drawn areas and their statistics.
type Handler struct {
	Register *registerpolicy.Policy
	Visible  *visible.Resolver
	Stats    *areastats.Aggregator
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, runner *txn.Runner, scope areastats.Scope, logger *zap.Logger) *Handler {
	return &Handler{
		Register: registerpolicy.New(db, runner, logger),
		Visible:  visible.New(db),
		Stats:    areastats.ForDatabase(db, scope, logger),
		Log:      logger,
	}
}

// ServeList handles GET /areas: the raw areas, without statistics.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.Caller(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "geoareas.visible")
	defer cancel()

	list, err := h.Visible.Areas(ctx, id.UID)
	metrics.Observe("geoareas.visible", err)
	if err != nil {
		respond.Error(w, h.Log.With(zap.String("uid", id.UID)), "geoareas.visible", err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

// ServeStats handles GET /areas/stats.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.Caller(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "geoareas.stats")
	defer cancel()

	res, err := Aggregate(ctx, h.Stats, id.UID)
	if err != nil {
		respond.Error(w, h.Log.With(zap.String("uid", id.UID)), "geoareas.stats", err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// Aggregate runs agg for uid and records how long it took and how many
// areas were skipped.
func Aggregate(ctx context.Context, agg *areastats.Aggregator, uid string) (areastats.Result, error) {
	start := time.Now()
	res, err := agg.Aggregate(ctx, uid)
	metrics.AggregationDuration.Observe(time.Since(start).Seconds())
	metrics.Observe("geoareas.stats", err)
	if err == nil {
		metrics.AreasSkipped.Add(float64(len(res.Errors)))
	}
	return res, err
}
