// internal/app/features/sightings/register.go
package sightings

import (
	"net/http"

	"github.com/dalemusser/fieldhub/internal/app/policy/registerpolicy"
	"github.com/dalemusser/fieldhub/internal/app/system/auth"
	"github.com/dalemusser/fieldhub/internal/app/system/formutil"
	"github.com/dalemusser/fieldhub/internal/app/system/metrics"
	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/dalemusser/fieldhub/internal/app/system/respond"
	"github.com/dalemusser/fieldhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ServeRegister handles POST /sightings. The body is JSON, or multipart with
// the JSON in "data" and a photo in "image". The photo is stored first and
// its URL recorded on the sighting; a later registration failure leaves the
// stored photo behind.
func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.Caller(w, r)
	if !ok {
		return
	}
	log := h.Log.With(zap.String("uid", id.UID))

	var req registerpolicy.SightingRequest
	img, err := formutil.Decode(w, r, &req, h.MaxUpload)
	if err != nil {
		respond.Error(w, log, "sightings.register", err)
		return
	}
	defer img.Close()

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "sightings.register")
	defer cancel()

	owner, err := h.Register.Owner(ctx, id.UID)
	if err != nil {
		respond.Error(w, log, "sightings.register", err)
		return
	}
	// Validate before paying for an upload.
	if _, err := req.Sighting(owner); err != nil {
		respond.Error(w, log, "sightings.register", err)
		return
	}

	if img != nil {
		if h.Blob == nil {
			respond.Error(w, log, "sightings.register",
				outcome.Malformed("sightings.register", "image uploads are not enabled"))
			return
		}
		url, err := h.Blob.Upload(ctx, img.Filename, img.ContentType, img.File, img.Size)
		metrics.Observe("blob.upload", err)
		if err != nil {
			respond.Error(w, log, "sightings.register", err)
			return
		}
		req.URL = url
	}

	s, err := req.Sighting(owner)
	if err == nil {
		s, err = h.Register.RegisterSighting(ctx, s, req.Communities)
	}
	metrics.Observe("sightings.register", err)
	if err != nil {
		if req.URL != "" && img != nil {
			log.Warn("sighting not registered; uploaded image left in storage", zap.String("url", req.URL))
		}
		respond.Error(w, log, "sightings.register", err)
		return
	}
	respond.JSON(w, http.StatusCreated, s)
}
