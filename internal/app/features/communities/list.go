// internal/app/features/communities/list.go
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

// ServeList handles GET /communities: the caller's communities by name.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.Caller(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "communities.list")
	defer cancel()

	list, err := h.Members.Communities(ctx, id.UID)
	metrics.Observe("communities.list", err)
	if err != nil {
		respond.Error(w, h.Log.With(zap.String("uid", id.UID)), "communities.list", err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

// ServeMembers handles GET /communities/{code}/members. Callers outside the
// community get 404, as if the code did not exist.
func (h *Handler) ServeMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.Caller(w, r)
	if !ok {
		return
	}
	code := chi.URLParam(r, "code")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "communities.members")
	defer cancel()

	users, err := h.Members.Members(ctx, id.UID, code)
	metrics.Observe("communities.members", err)
	if err != nil {
		respond.Error(w, h.Log.With(zap.String("uid", id.UID), zap.String("code", code)), "communities.members", err)
		return
	}
	respond.JSON(w, http.StatusOK, users)
}
