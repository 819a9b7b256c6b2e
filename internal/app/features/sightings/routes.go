// internal/app/features/sightings/routes.go
package sightings

import (
	"github.com/dalemusser/fieldhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter mounted under /sightings.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(auth.Writers...))
		pr.Post("/", h.ServeRegister)
	})
	return r
}
