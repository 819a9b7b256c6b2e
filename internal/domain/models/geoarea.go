// internal/domain/models/geoarea.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GeoArea is a named region users draw to get statistics for. Names are
// globally unique.
type GeoArea struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Geom        Geometry           `bson:"geom" json:"geom"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
}
