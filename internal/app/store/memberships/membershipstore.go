// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/dalemusser/fieldhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store owns the four membership edge collections: user_communities and
// one <kind>_communities collection per resource kind.
type Store struct {
	db    *mongo.Database
	users *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		db:    db,
		users: db.Collection("user_communities"),
	}
}

var (
	ErrAlreadyMember = errors.New("user is already a member of this community")
	ErrDuplicateEdge = errors.New("resource is already shared into this community")
	errNoEdgeKind    = errors.New("kind has no community edge collection")
)

// Add records that uid belongs to code. A second edge for the same pair is a
// Conflict wrapping ErrAlreadyMember, whether it loses a race at the unique
// index or arrives later.
func (s *Store) Add(ctx context.Context, uid, code string) (models.UserCommunity, error) {
	uc := models.UserCommunity{
		ID:       primitive.NewObjectID(),
		UID:      uid,
		Code:     code,
		JoinedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.users.InsertOne(ctx, uc); err != nil {
		if wafflemongo.IsDup(err) {
			return models.UserCommunity{}, outcome.Conflict("memberships.add", ErrAlreadyMember,
				"user %s is already a member of community %s", uid, code)
		}
		return models.UserCommunity{}, outcome.FromStore("memberships.add", err)
	}
	return uc, nil
}

// Exists reports whether uid belongs to code.
func (s *Store) Exists(ctx context.Context, uid, code string) (bool, error) {
	err := s.users.FindOne(ctx, bson.M{"uid": uid, "code": code},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, outcome.FromStore("memberships.exists", err)
	}
	return true, nil
}

// Remove deletes the edge for (uid, code). Missing edges are not an error.
func (s *Store) Remove(ctx context.Context, uid, code string) error {
	_, err := s.users.DeleteOne(ctx, bson.M{"uid": uid, "code": code})
	return outcome.FromStore("memberships.remove", err)
}

// UIDsForCommunity returns member uids of code in join order.
func (s *Store) UIDsForCommunity(ctx context.Context, code string) ([]string, error) {
	cur, err := s.users.Find(ctx, bson.M{"code": code},
		options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}, {Key: "_id", Value: 1}}).
			SetProjection(bson.M{"uid": 1}))
	if err != nil {
		return nil, outcome.FromStore("memberships.uids", err)
	}
	defer cur.Close(ctx)

	var out []string
	for cur.Next(ctx) {
		var row struct {
			UID string `bson:"uid"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, outcome.FromStore("memberships.uids", err)
		}
		out = append(out, row.UID)
	}
	return out, outcome.FromStore("memberships.uids", cur.Err())
}

func (s *Store) edges(kind models.Kind) (*mongo.Collection, error) {
	name := kind.EdgeCollection()
	if name == "" {
		return nil, fmt.Errorf("%w: %q", errNoEdgeKind, kind)
	}
	return s.db.Collection(name), nil
}

// AddResourceEdges shares a resource into each community in codes. Repeated
// codes are written once. Callers run this inside txn.Runner.Run together
// with the resource insert.
func (s *Store) AddResourceEdges(ctx context.Context, kind models.Kind, resourceID primitive.ObjectID, codes []string) error {
	c, err := s.edges(kind)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	seen := make(map[string]bool, len(codes))
	docs := make([]any, 0, len(codes))
	for _, code := range codes {
		if seen[code] {
			continue
		}
		seen[code] = true
		docs = append(docs, models.ResourceCommunity{
			ID:         primitive.NewObjectID(),
			ResourceID: resourceID,
			Code:       code,
			CreatedAt:  now,
		})
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := c.InsertMany(ctx, docs); err != nil {
		if wafflemongo.IsDup(err) {
			return outcome.Conflict("memberships.add_edges", ErrDuplicateEdge,
				"%s %s is already shared into one of %v", kind, resourceID.Hex(), codes)
		}
		return outcome.FromStore("memberships.add_edges", err)
	}
	return nil
}

// DeleteResourceEdges removes every community edge of a resource.
func (s *Store) DeleteResourceEdges(ctx context.Context, kind models.Kind, resourceID primitive.ObjectID) error {
	c, err := s.edges(kind)
	if err != nil {
		return err
	}
	_, err = c.DeleteMany(ctx, bson.M{"resource_id": resourceID})
	return outcome.FromStore("memberships.delete_edges", err)
}
