// internal/domain/models/membership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCommunity records that a user belongs to a community. (uid, code) is
// unique; the index is what settles concurrent joins.
type UserCommunity struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	UID      string             `bson:"uid"`
	Code     string             `bson:"code"`
	JoinedAt time.Time          `bson:"joined_at"`
}

// ResourceCommunity shares one camera, sighting or area into a community.
// The same shape is stored in each kind's edge collection.
type ResourceCommunity struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	ResourceID primitive.ObjectID `bson:"resource_id"`
	Code       string             `bson:"code"`
	CreatedAt  time.Time          `bson:"created_at"`
}

// Membership is a user's membership enriched with the community's public
// fields, as returned by a successful join.
type Membership struct {
	UID         string    `json:"uid"`
	Code        string    `json:"code"`
	JoinedAt    time.Time `json:"joinedAt"`
	Owner       string    `json:"owner"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl"`
}
