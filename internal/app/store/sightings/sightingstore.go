package sightingstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/fieldhub/internal/app/system/geo"
	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/dalemusser/fieldhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("sightings")}
}

var ErrDuplicateSighting = errors.New("this observer already reported this species at this time")

// Insert stores a sighting. (observer, species, date) is unique.
func (s *Store) Insert(ctx context.Context, sg models.Sighting) (models.Sighting, error) {
	if sg.ID.IsZero() {
		sg.ID = primitive.NewObjectID()
	}
	sg.Date = sg.Date.UTC()
	if sg.CreatedAt.IsZero() {
		sg.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, sg); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Sighting{}, outcome.Conflict("sightings.insert", ErrDuplicateSighting,
				"%s already reported %s at %s", sg.Observer, sg.Species, sg.Date.Format(time.RFC3339))
		}
		return models.Sighting{}, outcome.FromStore("sightings.insert", err)
	}
	return sg, nil
}

// Delete removes a sighting by id.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return outcome.FromStore("sightings.delete", err)
}

// Observation is the slice of a sighting that area statistics need.
type Observation struct {
	Species   string    `bson:"species"`
	Observer  string    `bson:"observer"`
	Date      time.Time `bson:"date"`
	UTCOffset int       `bson:"utc_offset"`
}

// LocalHour is the hour of day at the offset the sighting was reported with.
func (o Observation) LocalHour() int {
	return models.LocalTime(o.Date, o.UTCOffset).Hour()
}

// ListIntersecting returns the observations inside geom. When ids is
// non-nil the result is limited to those ids.
func (s *Store) ListIntersecting(ctx context.Context, geom models.Geometry, ids []primitive.ObjectID) ([]Observation, error) {
	filter := geo.Intersects("crds", geom)
	if ids != nil {
		filter["_id"] = bson.M{"$in": ids}
	}
	proj := options.Find().SetProjection(bson.M{
		"species":    1,
		"observer":   1,
		"date":       1,
		"utc_offset": 1,
	})
	cur, err := s.c.Find(ctx, filter, proj)
	if err != nil {
		return nil, outcome.FromStore("sightings.list_intersecting", err)
	}
	defer cur.Close(ctx)

	var out []Observation
	if err := cur.All(ctx, &out); err != nil {
		return nil, outcome.FromStore("sightings.list_intersecting", err)
	}
	return out, nil
}
