// internal/app/features/photos/handler.go
package photos

import (
	"net/http"

	"github.com/dalemusser/fieldhub/internal/app/system/auth"
	"github.com/dalemusser/fieldhub/internal/app/system/blobstore"
	"github.com/dalemusser/fieldhub/internal/app/system/formutil"
	"github.com/dalemusser/fieldhub/internal/app/system/limits"
	"github.com/dalemusser/fieldhub/internal/app/system/metrics"
	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/dalemusser/fieldhub/internal/app/system/respond"
	"github.com/dalemusser/fieldhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler stores photos that are not attached to a sighting, such as camera
// trap batches. Blob may be nil, in which case uploads are refused.
type Handler struct {
	Blob      blobstore.Uploader
	MaxUpload int64
	Log       *zap.Logger
}

func NewHandler(blob blobstore.Uploader, maxUploadMB int, logger *zap.Logger) *Handler {
	return &Handler{
		Blob:      blob,
		MaxUpload: limits.UploadBytes(maxUploadMB),
		Log:       logger,
	}
}

type uploadResult struct {
	URLs []string `json:"urls"`
}

// ServeUpload handles POST /photos: multipart with one or more images in
// "files". The limit applies to the whole request. Files are stored in
// order; when one fails, those already stored stay in storage and the
// request fails.
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.Caller(w, r)
	if !ok {
		return
	}
	log := h.Log.With(zap.String("uid", id.UID))

	if h.Blob == nil {
		respond.Error(w, log, "photos.upload", outcome.Malformed("photos.upload", "image uploads are not enabled"))
		return
	}

	imgs, err := formutil.Files(w, r, formutil.FilesField, h.MaxUpload)
	if err != nil {
		respond.Error(w, log, "photos.upload", err)
		return
	}
	defer formutil.CloseAll(imgs)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "photos.upload")
	defer cancel()

	res := uploadResult{URLs: make([]string, 0, len(imgs))}
	for _, img := range imgs {
		url, err := h.Blob.Upload(ctx, img.Filename, img.ContentType, img.File, img.Size)
		metrics.Observe("blob.upload", err)
		if err != nil {
			if len(res.URLs) > 0 {
				log.Warn("photo batch failed part way; earlier photos left in storage",
					zap.Strings("urls", res.URLs), zap.String("file", img.Filename))
			}
			respond.Error(w, log, "photos.upload", err)
			return
		}
		res.URLs = append(res.URLs, url)
	}

	log.Info("photos uploaded", zap.Int("count", len(res.URLs)))
	respond.JSON(w, http.StatusCreated, res)
}
