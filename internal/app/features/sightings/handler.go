// internal/app/features/sightings/handler.go
package sightings

import (
	"net/http"

	"github.com/dalemusser/fieldhub/internal/app/policy/registerpolicy"
	"github.com/dalemusser/fieldhub/internal/app/store/queries/visible"
	"github.com/dalemusser/fieldhub/internal/app/system/auth"
	"github.com/dalemusser/fieldhub/internal/app/system/blobstore"
	"github.com/dalemusser/fieldhub/internal/app/system/limits"
	"github.com/dalemusser/fieldhub/internal/app/system/metrics"
	"github.com/dalemusser/fieldhub/internal/app/system/respond"
	"github.com/dalemusser/fieldhub/internal/app/system/timeouts"
	"github.com/dalemusser/fieldhub/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves sightings. Blob may be nil, in which case submissions with
// an image are refused.
type Handler struct {
	Register  *registerpolicy.Policy
	Visible   *visible.Resolver
	Blob      blobstore.Uploader
	MaxUpload int64
	Log       *zap.Logger
}

func NewHandler(db *mongo.Database, runner *txn.Runner, blob blobstore.Uploader, maxUploadMB int, logger *zap.Logger) *Handler {
	return &Handler{
		Register:  registerpolicy.New(db, runner, logger),
		Visible:   visible.New(db),
		Blob:      blob,
		MaxUpload: limits.UploadBytes(maxUploadMB),
		Log:       logger,
	}
}

// ServeList handles GET /sightings.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.Caller(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "sightings.visible")
	defer cancel()

	list, err := h.Visible.Sightings(ctx, id.UID)
	metrics.Observe("sightings.visible", err)
	if err != nil {
		respond.Error(w, h.Log.With(zap.String("uid", id.UID)), "sightings.visible", err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}
