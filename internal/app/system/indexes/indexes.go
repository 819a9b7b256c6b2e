// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.

The unique indexes here are the uniqueness invariants of the data model; the
stores rely on them to turn concurrent duplicate writes into conflicts. The
2dsphere indexes back every $geoIntersects query. Problems are collected so
one bad collection does not hide another.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	steps := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"users", ensureUsers},
		{"communities", ensureCommunities},
		{"user_communities", ensureUserCommunities},
		{"cameras", ensureCameras},
		{"sightings", ensureSightings},
		{"geoareas", ensureGeoAreas},
		{"camera_communities", ensureEdges("camera_communities", "cc")},
		{"sighting_communities", ensureEdges("sighting_communities", "sc")},
		{"geoarea_communities", ensureEdges("geoarea_communities", "gc")},
	}
	for _, s := range steps {
		if err := s.fn(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Reconciliation                                                             */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func isUnique(b *bool) bool { return b != nil && *b }

func listIndexes(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

// ensureIndexSet makes coll carry exactly the desired key patterns with the
// desired names and uniqueness. An index with the same keys but a different
// name or uniqueness is dropped and recreated.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listIndexes(ctx, coll)
	if err != nil {
		// A collection that does not exist yet has no indexes.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		name := ""
		var unique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()
		fields := []zap.Field{
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", isUnique(unique)),
		}

		if ex, ok := existing[sig]; ok {
			if isUnique(ex.Unique) == isUnique(unique) && (name == "" || ex.Name == name) {
				zap.L().Debug("reusing existing index", fields...)
				continue
			}
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop %s failed: %v", coll.Name(), name, ex.Name, err))
				continue
			}
			zap.L().Info("dropped index for recreation", append(fields, zap.String("old_name", ex.Name))...)
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if wafflemongo.IsDup(err) && isUnique(unique) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present on %s)", coll.Name(), name, sig))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			zap.L().Warn("index ensure failed", append(fields, zap.Error(err))...)
			continue
		}
		zap.L().Info("index ensured", append(fields, zap.Duration("took", time.Since(start)))...)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                             */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "uid", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_uid"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
	})
}

// Community codes are the _id, so uniqueness comes for free.
func ensureCommunities(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("communities"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_communities_nameci__id"),
		},
	})
}

func ensureUserCommunities(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("user_communities"), []mongo.IndexModel{
		// One edge per (user, community); settles concurrent joins.
		{
			Keys:    bson.D{{Key: "uid", Value: 1}, {Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_uc_uid_code"),
		},
		// Member listing
		{
			Keys:    bson.D{{Key: "code", Value: 1}, {Key: "uid", Value: 1}},
			Options: options.Index().SetName("idx_uc_code_uid"),
		},
	})
}

func ensureCameras(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("cameras"), []mongo.IndexModel{
		// A device may be redeployed, but only once per placement time.
		{
			Keys:    bson.D{{Key: "camera_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_cameras_cameraid_date"),
		},
		{
			Keys:    bson.D{{Key: "crds", Value: "2dsphere"}},
			Options: options.Index().SetName("geo_cameras_crds"),
		},
	})
}

func ensureSightings(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("sightings"), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "observer", Value: 1},
				{Key: "species", Value: 1},
				{Key: "date", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_sightings_observer_species_date"),
		},
		{
			Keys:    bson.D{{Key: "crds", Value: "2dsphere"}},
			Options: options.Index().SetName("geo_sightings_crds"),
		},
	})
}

func ensureGeoAreas(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("geoareas"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_geoareas_name"),
		},
		{
			Keys:    bson.D{{Key: "geom", Value: "2dsphere"}},
			Options: options.Index().SetName("geo_geoareas_geom"),
		},
	})
}

// ensureEdges indexes one resource-to-community join collection. prefix keeps
// index names short and distinct per collection.
func ensureEdges(coll, prefix string) func(context.Context, *mongo.Database) error {
	return func(ctx context.Context, db *mongo.Database) error {
		return ensureIndexSet(ctx, db.Collection(coll), []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "resource_id", Value: 1}, {Key: "code", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_" + prefix + "_resource_code"),
			},
			// Visibility lookups start from a community code.
			{
				Keys:    bson.D{{Key: "code", Value: 1}, {Key: "resource_id", Value: 1}},
				Options: options.Index().SetName("idx_" + prefix + "_code_resource"),
			},
		})
	}
}
