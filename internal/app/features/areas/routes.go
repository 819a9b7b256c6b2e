// internal/app/features/areas/routes.go
package areas

import (
	"github.com/dalemusser/fieldhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter mounted under /areas.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/stats", h.ServeStats)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(auth.Writers...))
		pr.Post("/", h.ServeRegister)
	})
	return r
}
