// internal/app/features/cameras/routes.go
package cameras

import (
	"github.com/dalemusser/fieldhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter mounted under /cameras. Listing is open to
// every role; writes need editor or admin.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(auth.Writers...))
		pr.Post("/", h.ServeRegister)
		pr.Patch("/{key}/status", h.ServeStatus)
	})
	return r
}
