// internal/app/features/cameras/list.go
package cameras

import (
	"net/http"

	"github.com/dalemusser/fieldhub/internal/app/system/auth"
	"github.com/dalemusser/fieldhub/internal/app/system/metrics"
	"github.com/dalemusser/fieldhub/internal/app/system/respond"
	"github.com/dalemusser/fieldhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ServeList handles GET /cameras: every placement shared into a community
// the caller belongs to, once each.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.Caller(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "cameras.visible")
	defer cancel()

	cams, err := h.Visible.Cameras(ctx, id.UID)
	metrics.Observe("cameras.visible", err)
	if err != nil {
		respond.Error(w, h.Log.With(zap.String("uid", id.UID)), "cameras.visible", err)
		return
	}
	respond.JSON(w, http.StatusOK, cams)
}
