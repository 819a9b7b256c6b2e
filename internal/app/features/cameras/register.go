// internal/app/features/cameras/register.go
package cameras

import (
	"net/http"

	"github.com/dalemusser/fieldhub/internal/app/policy/registerpolicy"
	"github.com/dalemusser/fieldhub/internal/app/system/auth"
	"github.com/dalemusser/fieldhub/internal/app/system/metrics"
	"github.com/dalemusser/fieldhub/internal/app/system/respond"
	"github.com/dalemusser/fieldhub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ServeRegister handles POST /cameras.
func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.Caller(w, r)
	if !ok {
		return
	}
	var req registerpolicy.CameraRequest
	if err := respond.Decode(w, r, &req, 0); err != nil {
		respond.Error(w, h.Log, "cameras.register", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "cameras.register")
	defer cancel()

	cam, err := h.register(ctx, id.UID, req)
	metrics.Observe("cameras.register", err)
	if err != nil {
		respond.Error(w, h.Log.With(zap.String("uid", id.UID)), "cameras.register", err)
		return
	}
	respond.JSON(w, http.StatusCreated, cam)
}

// ServeStatus handles PATCH /cameras/{key}/status.
func (h *Handler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.Caller(w, r); !ok {
		return
	}
	key := chi.URLParam(r, "key")

	var req registerpolicy.StatusRequest
	if err := respond.Decode(w, r, &req, 0); err != nil {
		respond.Error(w, h.Log, "cameras.status", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "cameras.status")
	defer cancel()

	err := h.Register.UpdateCameraStatus(ctx, key, req)
	metrics.Observe("cameras.status", err)
	if err != nil {
		respond.Error(w, h.Log.With(zap.String("key", key)), "cameras.status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
