// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is created once, the first time the identity provider hands us a uid.
// Community membership is not embedded; use the user_communities collection.
type User struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UID    string             `bson:"uid" json:"uid"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	Email  string             `bson:"email" json:"email"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
}
