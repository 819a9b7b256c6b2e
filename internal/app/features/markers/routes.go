// internal/app/features/markers/routes.go
package markers

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter mounted under /markers.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeMarkers)
	return r
}
