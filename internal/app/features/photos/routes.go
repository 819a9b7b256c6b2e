// internal/app/features/photos/routes.go
package photos

import (
	"github.com/dalemusser/fieldhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter mounted under /photos. Uploads need a writer
// role.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireRole(auth.Writers...))
	r.Post("/", h.ServeUpload)
	return r
}
