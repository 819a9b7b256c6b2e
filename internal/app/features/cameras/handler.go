// internal/app/features/cameras/handler.go
package cameras

import (
	"github.com/dalemusser/fieldhub/internal/app/policy/registerpolicy"
	"github.com/dalemusser/fieldhub/internal/app/store/queries/visible"
	"github.com/dalemusser/fieldhub/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves camera placements: the caller's visible cameras,
// registration into communities and status updates.
type Handler struct {
	Register *registerpolicy.Policy
	Visible  *visible.Resolver
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, runner *txn.Runner, logger *zap.Logger) *Handler {
	return &Handler{
		Register: registerpolicy.New(db, runner, logger),
		Visible:  visible.New(db),
		Log:      logger,
	}
}
