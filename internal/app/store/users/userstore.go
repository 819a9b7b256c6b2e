package userstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/dalemusser/fieldhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	ErrDuplicateUID   = errors.New("a user with this uid already exists")
	ErrDuplicateEmail = errors.New("a user with this email already exists")
)

// Create registers a user the first time the identity provider presents
// their uid.
func (s *Store) Create(ctx context.Context, uid, name, email string) (models.User, error) {
	u := models.User{
		ID:        primitive.NewObjectID(),
		UID:       uid,
		Name:      name,
		NameCI:    text.Fold(name),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			if strings.Contains(err.Error(), "uniq_users_email") {
				return models.User{}, outcome.Conflict("users.create", ErrDuplicateEmail, "email %s is already registered", u.Email)
			}
			return models.User{}, outcome.Conflict("users.create", ErrDuplicateUID, "user %s is already registered", uid)
		}
		return models.User{}, outcome.FromStore("users.create", err)
	}
	return u, nil
}

// GetByUID loads a user by external uid.
func (s *Store) GetByUID(ctx context.Context, uid string) (models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"uid": uid}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, outcome.NotFound("users.get", "no user %s", uid)
	}
	if err != nil {
		return models.User{}, outcome.FromStore("users.get", err)
	}
	return u, nil
}

// ListByUIDs loads the users with the given uids sorted by name. Unknown
// uids are skipped.
func (s *Store) ListByUIDs(ctx context.Context, uids []string) ([]models.User, error) {
	if len(uids) == 0 {
		return []models.User{}, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"uid": bson.M{"$in": uids}},
		options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, outcome.FromStore("users.list", err)
	}
	defer cur.Close(ctx)

	out := []models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, outcome.FromStore("users.list", err)
	}
	return out, nil
}
