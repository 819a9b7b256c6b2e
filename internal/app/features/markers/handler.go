// internal/app/features/markers/handler.go
package markers

import (
	"net/http"

	"github.com/dalemusser/fieldhub/internal/app/features/areas"
	"github.com/dalemusser/fieldhub/internal/app/store/queries/areastats"
	"github.com/dalemusser/fieldhub/internal/app/store/queries/visible"
	"github.com/dalemusser/fieldhub/internal/app/system/auth"
	"github.com/dalemusser/fieldhub/internal/app/system/metrics"
	"github.com/dalemusser/fieldhub/internal/app/system/respond"
	"github.com/dalemusser/fieldhub/internal/app/system/timeouts"
	"github.com/dalemusser/fieldhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Markers is everything the map draws for one user.
type Markers struct {
	Cameras   []models.Camera       `json:"cameras"`
	Sightings []models.Sighting     `json:"sightings"`
	Areas     []areastats.AreaStats `json:"areas"`
	Errors    []areastats.AreaError `json:"errors"`
}

type Handler struct {
	Visible *visible.Resolver
	Stats   *areastats.Aggregator
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, scope areastats.Scope, logger *zap.Logger) *Handler {
	return &Handler{
		Visible: visible.New(db),
		Stats:   areastats.ForDatabase(db, scope, logger),
		Log:     logger,
	}
}

// ServeMarkers handles GET /markers. The three reads are independent and
// run concurrently; the first failure cancels the others.
func (h *Handler) ServeMarkers(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.Caller(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "markers")
	defer cancel()

	var out Markers
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Cameras, err = h.Visible.Cameras(gctx, id.UID)
		return err
	})
	g.Go(func() (err error) {
		out.Sightings, err = h.Visible.Sightings(gctx, id.UID)
		return err
	})
	g.Go(func() error {
		res, err := areas.Aggregate(gctx, h.Stats, id.UID)
		out.Areas, out.Errors = res.Areas, res.Errors
		return err
	})
	err := g.Wait()
	metrics.Observe("markers", err)
	if err != nil {
		respond.Error(w, h.Log.With(zap.String("uid", id.UID)), "markers", err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}
