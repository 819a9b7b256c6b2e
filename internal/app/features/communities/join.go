// internal/app/features/communities/join.go
package communities

import (
	"net/http"

	"github.com/dalemusser/fieldhub/internal/app/system/auth"
	"github.com/dalemusser/fieldhub/internal/app/system/metrics"
	"github.com/dalemusser/fieldhub/internal/app/system/respond"
	"github.com/dalemusser/fieldhub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ServeJoin handles POST /communities/{code}/join.
func (h *Handler) ServeJoin(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.Caller(w, r)
	if !ok {
		return
	}
	code := chi.URLParam(r, "code")
	log := h.Log.With(zap.String("uid", id.UID), zap.String("code", code))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "communities.join")
	defer cancel()

	m, err := h.Members.Join(ctx, id.UID, code)
	metrics.Observe("communities.join", err)
	if err != nil {
		respond.Error(w, log, "communities.join", err)
		return
	}
	log.Info("joined community")
	respond.JSON(w, http.StatusCreated, m)
}
