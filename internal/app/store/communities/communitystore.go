package communitystore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/dalemusser/fieldhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("communities")}
}

var ErrDuplicateCode = errors.New("a community with this code already exists")

// Create inserts c. The code is the primary key; a collision is a Conflict
// wrapping ErrDuplicateCode so the caller can draw a new code.
func (s *Store) Create(ctx context.Context, c models.Community) (models.Community, error) {
	c.NameCI = text.Fold(c.Name)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Community{}, outcome.Conflict("communities.create", ErrDuplicateCode, "community code %s is taken", c.Code)
		}
		return models.Community{}, outcome.FromStore("communities.create", err)
	}
	return c, nil
}

// GetByCode loads one community.
func (s *Store) GetByCode(ctx context.Context, code string) (models.Community, error) {
	var c models.Community
	err := s.c.FindOne(ctx, bson.M{"_id": code}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Community{}, outcome.NotFound("communities.get", "no community %s", code)
	}
	if err != nil {
		return models.Community{}, outcome.FromStore("communities.get", err)
	}
	return c, nil
}

// CodeExists reports whether code is in use.
func (s *Store) CodeExists(ctx context.Context, code string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": code}, options.Count().SetLimit(1))
	if err != nil {
		return false, outcome.FromStore("communities.exists", err)
	}
	return n > 0, nil
}

// MissingCodes returns the codes in codes that name no community, in input
// order and without repeats.
func (s *Store) MissingCodes(ctx context.Context, codes []string) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	raw, err := s.c.Distinct(ctx, "_id", bson.M{"_id": bson.M{"$in": codes}})
	if err != nil {
		return nil, outcome.FromStore("communities.missing", err)
	}
	found := make(map[string]bool, len(raw))
	for _, v := range raw {
		if code, ok := v.(string); ok {
			found[code] = true
		}
	}
	var missing []string
	for _, code := range codes {
		if !found[code] {
			missing = append(missing, code)
			found[code] = true
		}
	}
	return missing, nil
}

// Delete removes a community. Used to undo a failed creation.
func (s *Store) Delete(ctx context.Context, code string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": code})
	return outcome.FromStore("communities.delete", err)
}
