// internal/app/features/cameras/util.go
package cameras

import (
	"context"

	"github.com/dalemusser/fieldhub/internal/app/policy/registerpolicy"
	"github.com/dalemusser/fieldhub/internal/domain/models"
)

// register converts req with the caller's display name as owner and shares
// the placement into the listed communities.
func (h *Handler) register(ctx context.Context, uid string, req registerpolicy.CameraRequest) (models.Camera, error) {
	owner, err := h.Register.Owner(ctx, uid)
	if err != nil {
		return models.Camera{}, err
	}
	cam, err := req.Camera(owner)
	if err != nil {
		return models.Camera{}, err
	}
	return h.Register.RegisterCamera(ctx, cam, req.Communities)
}
