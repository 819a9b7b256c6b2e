package geoareastore

import (
	"context"
	"errors"
	"time"

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
	return &Store{c: db.Collection("geoareas")}
}

var ErrDuplicateName = errors.New("an area with this name already exists")

// Insert stores an area. Names are globally unique.
func (s *Store) Insert(ctx context.Context, a models.GeoArea) (models.GeoArea, error) {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.GeoArea{}, outcome.Conflict("geoareas.insert", ErrDuplicateName, "area %q already exists", a.Name)
		}
		return models.GeoArea{}, outcome.FromStore("geoareas.insert", err)
	}
	return a, nil
}

// Delete removes an area by id.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return outcome.FromStore("geoareas.delete", err)
}
