// internal/app/features/communities/create.go
package communities

import (
	"net/http"

	"github.com/dalemusser/fieldhub/internal/app/policy/memberpolicy"
	"github.com/dalemusser/fieldhub/internal/app/system/auth"
	"github.com/dalemusser/fieldhub/internal/app/system/formutil"
	"github.com/dalemusser/fieldhub/internal/app/system/metrics"
	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/dalemusser/fieldhub/internal/app/system/respond"
	"github.com/dalemusser/fieldhub/internal/app/system/timeouts"
	"github.com/dalemusser/fieldhub/internal/app/system/validate"
	"go.uber.org/zap"
)

type createRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// ServeCreate handles POST /communities, JSON or multipart with an optional
// cover image. The creator becomes the first member.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.Caller(w, r)
	if !ok {
		return
	}
	log := h.Log.With(zap.String("uid", id.UID))

	var req createRequest
	img, err := formutil.Decode(w, r, &req, h.MaxUpload)
	if err != nil {
		respond.Error(w, log, "communities.create", err)
		return
	}
	defer img.Close()
	if err := validate.Struct("communities.create", req); err != nil {
		respond.Error(w, log, "communities.create", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "communities.create")
	defer cancel()

	in := memberpolicy.NewCommunity{Name: req.Name, Description: req.Description}
	if img != nil {
		if h.Blob == nil {
			respond.Error(w, log, "communities.create",
				outcome.Malformed("communities.create", "image uploads are not enabled"))
			return
		}
		url, err := h.Blob.Upload(ctx, img.Filename, img.ContentType, img.File, img.Size)
		metrics.Observe("blob.upload", err)
		if err != nil {
			respond.Error(w, log, "communities.create", err)
			return
		}
		in.ImageURL = url
	}

	c, err := h.Members.CreateCommunity(ctx, id.UID, in)
	metrics.Observe("communities.create", err)
	if err != nil {
		respond.Error(w, log, "communities.create", err)
		return
	}
	log.Info("community created", zap.String("code", c.Code))
	respond.JSON(w, http.StatusCreated, c)
}
