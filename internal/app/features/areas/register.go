// internal/app/features/areas/register.go
package areas

import (
	"net/http"

	"github.com/dalemusser/fieldhub/internal/app/policy/registerpolicy"
	"github.com/dalemusser/fieldhub/internal/app/system/auth"
	"github.com/dalemusser/fieldhub/internal/app/system/metrics"
	"github.com/dalemusser/fieldhub/internal/app/system/respond"
	"github.com/dalemusser/fieldhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// maxAreaBody allows for detailed polygons.
const maxAreaBody = 4 << 20

// ServeRegister handles POST /areas. geom is GeoJSON; several polygons are
// stored as their union.
func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.Caller(w, r)
	if !ok {
		return
	}
	log := h.Log.With(zap.String("uid", id.UID))

	var req registerpolicy.AreaRequest
	if err := respond.Decode(w, r, &req, maxAreaBody); err != nil {
		respond.Error(w, log, "geoareas.register", err)
		return
	}
	area, err := req.Area()
	if err != nil {
		respond.Error(w, log, "geoareas.register", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "geoareas.register")
	defer cancel()

	area, err = h.Register.RegisterArea(ctx, area, req.Communities)
	metrics.Observe("geoareas.register", err)
	if err != nil {
		respond.Error(w, log, "geoareas.register", err)
		return
	}
	respond.JSON(w, http.StatusCreated, area)
}
