// internal/app/features/communities/handler.go
package communities

import (
	"github.com/dalemusser/fieldhub/internal/app/policy/memberpolicy"
	communitystore "github.com/dalemusser/fieldhub/internal/app/store/communities"
	"github.com/dalemusser/fieldhub/internal/app/system/blobstore"
	"github.com/dalemusser/fieldhub/internal/app/system/joincode"
	"github.com/dalemusser/fieldhub/internal/app/system/limits"
	"github.com/dalemusser/fieldhub/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultJoinPerMinute bounds join attempts per client when unset.
const DefaultJoinPerMinute = 20

// Options tune community creation and joining.
type Options struct {
	CodeLength    int
	CodeAttempts  int
	JoinPerMinute int
	MaxUploadMB   int
	Blob          blobstore.Uploader // nil disables community images
}

// Handler serves communities: listing, creation, joining by code and the
// member list.
type Handler struct {
	Members       *memberpolicy.Policy
	Blob          blobstore.Uploader
	MaxUpload     int64
	JoinPerMinute int
	Log           *zap.Logger
}

func NewHandler(db *mongo.Database, runner *txn.Runner, opts Options, logger *zap.Logger) *Handler {
	issuer := joincode.NewIssuer(communitystore.New(db), logger)
	if opts.CodeLength > 0 {
		issuer.Length = opts.CodeLength
	}
	if opts.CodeAttempts > 0 {
		issuer.Attempts = opts.CodeAttempts
	}
	perMinute := opts.JoinPerMinute
	if perMinute <= 0 {
		perMinute = DefaultJoinPerMinute
	}
	return &Handler{
		Members:       memberpolicy.New(db, runner, issuer, logger),
		Blob:          opts.Blob,
		MaxUpload:     limits.UploadBytes(opts.MaxUploadMB),
		JoinPerMinute: perMinute,
		Log:           logger,
	}
}
