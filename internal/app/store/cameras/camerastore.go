package camerastore

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
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("cameras")}
}

var ErrDuplicatePlacement = errors.New("camera is already placed at this date")

// Insert stores a new placement. (camera_id, date) is unique.
func (s *Store) Insert(ctx context.Context, cam models.Camera) (models.Camera, error) {
	if cam.ID.IsZero() {
		cam.ID = primitive.NewObjectID()
	}
	cam.Date = cam.Date.UTC()
	if cam.CreatedAt.IsZero() {
		cam.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, cam); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Camera{}, outcome.Conflict("cameras.insert", ErrDuplicatePlacement,
				"camera %s already placed at %s", cam.CameraID, cam.Date.Format(time.RFC3339))
		}
		return models.Camera{}, outcome.FromStore("cameras.insert", err)
	}
	return cam, nil
}

// Delete removes a placement by id.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return outcome.FromStore("cameras.delete", err)
}

// UpdateStatus replaces the status of the placement identified by
// (cameraID, date).
func (s *Store) UpdateStatus(ctx context.Context, cameraID string, date time.Time, status string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"camera_id": cameraID, "date": date.UTC()},
		bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return outcome.FromStore("cameras.update_status", err)
	}
	if res.MatchedCount == 0 {
		return outcome.NotFound("cameras.update_status", "no camera %s placed at %s", cameraID, date.UTC().Format(time.RFC3339))
	}
	return nil
}

// CountIntersecting counts placements inside geom. When ids is non-nil the
// count is limited to those ids.
func (s *Store) CountIntersecting(ctx context.Context, geom models.Geometry, ids []primitive.ObjectID) (int64, error) {
	filter := geo.Intersects("crds", geom)
	if ids != nil {
		filter["_id"] = bson.M{"$in": ids}
	}
	n, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return 0, outcome.FromStore("cameras.count_intersecting", err)
	}
	return n, nil
}
