// internal/app/features/users/handler.go
package users

import (
	"net/http"
	"strings"

	userstore "github.com/dalemusser/fieldhub/internal/app/store/users"
	"github.com/dalemusser/fieldhub/internal/app/system/auth"
	"github.com/dalemusser/fieldhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/fieldhub/internal/app/system/metrics"
	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/dalemusser/fieldhub/internal/app/system/respond"
	"github.com/dalemusser/fieldhub/internal/app/system/timeouts"
	"github.com/dalemusser/fieldhub/internal/app/system/validate"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler registers and describes the calling user.
type Handler struct {
	Users *userstore.Store
	Log   *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{Users: userstore.New(db), Log: logger}
}

type createRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email,max=320"`
}

// ServeCreate handles POST /users. The uid comes from the verified identity,
// never from the body.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.Caller(w, r)
	if !ok {
		return
	}

	var req createRequest
	if err := respond.Decode(w, r, &req, 0); err != nil {
		respond.Error(w, h.Log, "users.create", err)
		return
	}
	if err := validate.Struct("users.create", req); err != nil {
		respond.Error(w, h.Log, "users.create", err)
		return
	}
	name := htmlsanitize.Text(strings.TrimSpace(req.Name))
	if name == "" {
		respond.Error(w, h.Log, "users.create", outcome.Malformed("users.create", "name is required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "users.create")
	defer cancel()

	u, err := h.Users.Create(ctx, id.UID, name, req.Email)
	metrics.Observe("users.create", err)
	if err != nil {
		respond.Error(w, h.Log.With(zap.String("uid", id.UID)), "users.create", err)
		return
	}
	h.Log.Info("user registered", zap.String("uid", u.UID))
	respond.JSON(w, http.StatusCreated, u)
}

// ServeMe handles GET /users/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.Caller(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "users.get")
	defer cancel()

	u, err := h.Users.GetByUID(ctx, id.UID)
	if err != nil {
		respond.Error(w, h.Log, "users.get", err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}
