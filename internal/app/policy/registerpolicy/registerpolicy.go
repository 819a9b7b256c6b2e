// Package registerpolicy governs how cameras, sightings and areas enter the
// membership graph.
//
// Rules:
//   - Every resource is shared into at least one community; an empty list is
//     rejected as malformed before anything is written
//   - Every listed community must exist (NotFound otherwise)
//   - The resource and all of its community edges are written as one unit:
//     a failure at any step leaves neither behind
//   - Writers are recorded by display name; owner carries no permissions
package registerpolicy

import (
	"context"
	"errors"
	"strings"

	camerastore "github.com/dalemusser/fieldhub/internal/app/store/cameras"
	communitystore "github.com/dalemusser/fieldhub/internal/app/store/communities"
	geoareastore "github.com/dalemusser/fieldhub/internal/app/store/geoareas"
	membershipstore "github.com/dalemusser/fieldhub/internal/app/store/memberships"
	sightingstore "github.com/dalemusser/fieldhub/internal/app/store/sightings"
	userstore "github.com/dalemusser/fieldhub/internal/app/store/users"
	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/dalemusser/fieldhub/internal/app/system/txn"
	"github.com/dalemusser/fieldhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Policy struct {
	users       *userstore.Store
	communities *communitystore.Store
	members     *membershipstore.Store
	cameras     *camerastore.Store
	sightings   *sightingstore.Store
	areas       *geoareastore.Store
	txn         *txn.Runner
	log         *zap.Logger
}

func New(db *mongo.Database, runner *txn.Runner, logger *zap.Logger) *Policy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{
		users:       userstore.New(db),
		communities: communitystore.New(db),
		members:     membershipstore.New(db),
		cameras:     camerastore.New(db),
		sightings:   sightingstore.New(db),
		areas:       geoareastore.New(db),
		txn:         runner,
		log:         logger,
	}
}

// Owner returns the display name recorded as owner for uid's writes.
func (p *Policy) Owner(ctx context.Context, uid string) (string, error) {
	u, err := p.users.GetByUID(ctx, uid)
	if err != nil {
		return "", err
	}
	return u.Name, nil
}

// RegisterCamera stores a camera placement shared into codes.
func (p *Policy) RegisterCamera(ctx context.Context, cam models.Camera, codes []string) (models.Camera, error) {
	var out models.Camera
	err := p.register(ctx, models.KindCamera, codes,
		func(ctx context.Context) (primitive.ObjectID, error) {
			var err error
			out, err = p.cameras.Insert(ctx, cam)
			return out.ID, err
		},
		p.cameras.Delete)
	return out, err
}

// RegisterSighting stores a sighting shared into codes.
func (p *Policy) RegisterSighting(ctx context.Context, s models.Sighting, codes []string) (models.Sighting, error) {
	var out models.Sighting
	err := p.register(ctx, models.KindSighting, codes,
		func(ctx context.Context) (primitive.ObjectID, error) {
			var err error
			out, err = p.sightings.Insert(ctx, s)
			return out.ID, err
		},
		p.sightings.Delete)
	return out, err
}

// RegisterArea stores an area shared into codes.
func (p *Policy) RegisterArea(ctx context.Context, a models.GeoArea, codes []string) (models.GeoArea, error) {
	var out models.GeoArea
	err := p.register(ctx, models.KindArea, codes,
		func(ctx context.Context) (primitive.ObjectID, error) {
			var err error
			out, err = p.areas.Insert(ctx, a)
			return out.ID, err
		},
		p.areas.Delete)
	return out, err
}

// UpdateCameraStatus sets the status of the placement named by key
// ("<camera_id>-<date>") to "<next>,<daysAhead>".
func (p *Policy) UpdateCameraStatus(ctx context.Context, key string, req StatusRequest) error {
	cameraID, date, err := ParseCameraKey(key)
	if err != nil {
		return err
	}
	if err := validateStatus(req); err != nil {
		return err
	}
	return p.cameras.UpdateStatus(ctx, cameraID, date, statusText(req))
}

func (p *Policy) register(
	ctx context.Context,
	kind models.Kind,
	codes []string,
	insert func(ctx context.Context) (primitive.ObjectID, error),
	remove func(ctx context.Context, id primitive.ObjectID) error,
) error {
	op := string(kind) + ".register"
	codes = normalizeCodes(codes)
	if len(codes) == 0 {
		return outcome.Malformed(op, "communities must list at least one community code")
	}
	missing, err := p.communities.MissingCodes(ctx, codes)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return outcome.NotFound(op, "unknown community codes: %s", strings.Join(missing, ", "))
	}

	var id primitive.ObjectID
	err = p.txn.Run(ctx, func(ctx context.Context) error {
		var err error
		if id, err = insert(ctx); err != nil {
			return err
		}
		return p.members.AddResourceEdges(ctx, kind, id, codes)
	}, func(ctx context.Context) error {
		if id.IsZero() {
			return nil
		}
		return errors.Join(
			p.members.DeleteResourceEdges(ctx, kind, id),
			remove(ctx, id),
		)
	})
	if err != nil {
		if outcome.Is(err, outcome.KindConflict) {
			p.log.Info("registration conflict", zap.String("kind", string(kind)), zap.Error(err))
		}
		return err
	}
	p.log.Info("resource registered",
		zap.String("kind", string(kind)),
		zap.String("id", id.Hex()),
		zap.Strings("communities", codes))
	return nil
}

func normalizeCodes(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
