// internal/domain/models/community.go
package models

import "time"

// Community is the unit of sharing. Its code is both the primary key and the
// invite token handed to prospective members.
type Community struct {
	Code        string `bson:"_id" json:"code"`
	Owner       string `bson:"owner" json:"owner"` // creator's display name, not a reference
	Name        string `bson:"name" json:"name"`
	NameCI      string `bson:"name_ci" json:"-"`
	Description string `bson:"description" json:"description"`
	ImageURL    string `bson:"image_url,omitempty" json:"imageUrl"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
}
