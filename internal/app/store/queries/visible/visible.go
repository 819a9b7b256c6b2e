// internal/app/store/queries/visible/visible.go

// Package visible resolves what a user can see through the membership graph.
//
// A camera, sighting or area is visible to a user iff some community holds
// both an edge to the user (user_communities) and an edge to the resource
// (<kind>_communities). Results are the union over all of the user's
// communities, deduplicated and ordered by id. An unknown uid resolves to an
// empty result; a store fault is reported as outcome.KindUnavailable so
// callers can tell "no access" apart from "could not determine access". A
// stored document that no longer decodes is an outcome.InternalError.
package visible

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/dalemusser/fieldhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var errNoEdgeKind = errors.New("kind has no community edge collection")

// Resolver runs the visibility joins against one database.
type Resolver struct {
	db *mongo.Database
}

func New(db *mongo.Database) *Resolver {
	return &Resolver{db: db}
}

// Cameras returns the camera placements visible to uid.
func (r *Resolver) Cameras(ctx context.Context, uid string) ([]models.Camera, error) {
	return resolve[models.Camera](ctx, r.db, models.KindCamera, uid)
}

// Sightings returns the sightings visible to uid.
func (r *Resolver) Sightings(ctx context.Context, uid string) ([]models.Sighting, error) {
	return resolve[models.Sighting](ctx, r.db, models.KindSighting, uid)
}

// Areas returns the areas visible to uid.
func (r *Resolver) Areas(ctx context.Context, uid string) ([]models.GeoArea, error) {
	return resolve[models.GeoArea](ctx, r.db, models.KindArea, uid)
}

// ReadableAreas is Areas for callers that can do without the documents that
// no longer decode: those are returned separately instead of failing the
// whole read.
func (r *Resolver) ReadableAreas(ctx context.Context, uid string) ([]models.GeoArea, []*DecodeError, error) {
	op := "visible." + string(models.KindArea)
	pipe, err := resourcePipeline(op, models.KindArea, uid)
	if err != nil {
		return nil, nil, err
	}
	return collect[models.GeoArea](ctx, r.db.Collection("user_communities"), op, pipe, true)
}

// resolve walks user_communities → <kind>_communities → <kind> for uid.
func resolve[T any](ctx context.Context, db *mongo.Database, kind models.Kind, uid string) ([]T, error) {
	op := "visible." + string(kind)
	pipe, err := resourcePipeline(op, kind, uid)
	if err != nil {
		return nil, err
	}
	return aggregate[T](ctx, db.Collection("user_communities"), op, pipe)
}

func resourcePipeline(op string, kind models.Kind, uid string) (mongo.Pipeline, error) {
	edges := kind.EdgeCollection()
	if edges == "" {
		return nil, fmt.Errorf("%s: %w", op, errNoEdgeKind)
	}
	return mongo.Pipeline{
		// The user's communities.
		bson.D{{Key: "$match", Value: bson.M{"uid": uid}}},
		// Every edge sharing a resource of this kind into one of them.
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         edges,
			"localField":   "code",
			"foreignField": "code",
			"as":           "e",
		}}},
		bson.D{{Key: "$unwind", Value: "$e"}},
		// A resource shared into several of the user's communities appears once.
		bson.D{{Key: "$group", Value: bson.M{"_id": "$e.resource_id"}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         kind.Collection(),
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "r",
		}}},
		bson.D{{Key: "$unwind", Value: "$r"}},
		bson.D{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$r"}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}, nil
}

// Communities returns the communities uid belongs to, ordered by name.
func (r *Resolver) Communities(ctx context.Context, uid string) ([]models.Community, error) {
	pipe := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"uid": uid}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "communities",
			"localField":   "code",
			"foreignField": "_id",
			"as":           "c",
		}}},
		bson.D{{Key: "$unwind", Value: "$c"}},
		bson.D{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$c"}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}}},
	}
	return aggregate[models.Community](ctx, r.db.Collection("user_communities"), "visible.community", pipe)
}

// Membership returns uid's membership in code enriched with the community's
// public fields. It is the community path narrowed to a single code, and
// reports NotFound when uid is not a member.
func (r *Resolver) Membership(ctx context.Context, uid, code string) (models.Membership, error) {
	pipe := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"uid": uid, "code": code}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "communities",
			"localField":   "code",
			"foreignField": "_id",
			"as":           "c",
		}}},
		bson.D{{Key: "$unwind", Value: "$c"}},
		bson.D{{Key: "$limit", Value: 1}},
	}
	rows, err := aggregate[membershipRow](ctx, r.db.Collection("user_communities"), "visible.membership", pipe)
	if err != nil {
		return models.Membership{}, err
	}
	if len(rows) == 0 {
		return models.Membership{}, outcome.NotFound("visible.membership", "user %s is not a member of %s", uid, code)
	}
	row := rows[0]
	return models.Membership{
		UID:         row.UID,
		Code:        row.Code,
		JoinedAt:    row.JoinedAt,
		Owner:       row.Community.Owner,
		Name:        row.Community.Name,
		Description: row.Community.Description,
		ImageURL:    row.Community.ImageURL,
	}, nil
}

type membershipRow struct {
	UID       string           `bson:"uid"`
	Code      string           `bson:"code"`
	JoinedAt  time.Time        `bson:"joined_at"`
	Community models.Community `bson:"c"`
}

// IDs returns the ids of the resources of kind visible to uid, without
// loading the documents. Used to scope area statistics.
func (r *Resolver) IDs(ctx context.Context, kind models.Kind, uid string) ([]primitive.ObjectID, error) {
	op := "visible.ids." + string(kind)
	edges := kind.EdgeCollection()
	if edges == "" {
		return nil, fmt.Errorf("%s: %w", op, errNoEdgeKind)
	}
	pipe := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"uid": uid}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         edges,
			"localField":   "code",
			"foreignField": "code",
			"as":           "e",
		}}},
		bson.D{{Key: "$unwind", Value: "$e"}},
		bson.D{{Key: "$group", Value: bson.M{"_id": "$e.resource_id"}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	rows, err := aggregate[struct {
		ID primitive.ObjectID `bson:"_id"`
	}](ctx, r.db.Collection("user_communities"), op, pipe)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids, nil
}

// DecodeError names a stored document that does not fit its model.
type DecodeError struct {
	ID   string // hex object id, or the raw _id when it is not an ObjectID
	Name string // the document's name field, when readable
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("document %s does not decode: %v", e.ID, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func newDecodeError(doc bson.Raw, err error) *DecodeError {
	de := &DecodeError{Err: err}
	if v, lerr := doc.LookupErr("_id"); lerr == nil {
		if oid, ok := v.ObjectIDOK(); ok {
			de.ID = oid.Hex()
		} else {
			de.ID = v.String()
		}
	}
	if v, lerr := doc.LookupErr("name"); lerr == nil {
		de.Name, _ = v.StringValueOK()
	}
	return de
}

// aggregate runs pipe and decodes every result. A document that does not
// decode is an internal fault, not a store outage.
func aggregate[T any](ctx context.Context, c *mongo.Collection, op string, pipe mongo.Pipeline) ([]T, error) {
	out, _, err := collect[T](ctx, c, op, pipe, false)
	return out, err
}

// collect runs pipe. With skipBad set, documents that do not decode are
// returned in the second result; otherwise the first one fails the call.
func collect[T any](ctx context.Context, c *mongo.Collection, op string, pipe mongo.Pipeline, skipBad bool) ([]T, []*DecodeError, error) {
	cur, err := c.Aggregate(ctx, pipe)
	if err != nil {
		return nil, nil, outcome.FromStore(op, err)
	}
	defer cur.Close(ctx)

	out := []T{}
	var bad []*DecodeError
	for cur.Next(ctx) {
		var v T
		if err := cur.Decode(&v); err != nil {
			de := newDecodeError(cur.Current, err)
			if !skipBad {
				return nil, nil, outcome.Internal(op, de)
			}
			bad = append(bad, de)
			continue
		}
		out = append(out, v)
	}
	if err := cur.Err(); err != nil {
		return nil, nil, outcome.FromStore(op, err)
	}
	return out, bad, nil
}
