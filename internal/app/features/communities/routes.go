// internal/app/features/communities/routes.go
package communities

import (
	"net/http"
	"time"

	"github.com/dalemusser/fieldhub/internal/app/system/auth"
	"github.com/dalemusser/fieldhub/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// Routes returns a subrouter mounted under /communities. Joining is rate
// limited per client address so codes cannot be enumerated quickly.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/{code}/members", h.ServeMembers)

	r.With(httprate.Limit(
		h.JoinPerMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respond.Status(w, http.StatusTooManyRequests, "rate_limited", "too many join attempts, try again shortly")
		}),
	)).Post("/{code}/join", h.ServeJoin)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(auth.Writers...))
		pr.Post("/", h.ServeCreate)
	})
	return r
}
