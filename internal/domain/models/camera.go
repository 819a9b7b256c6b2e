// internal/domain/models/camera.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Camera is one placement of a camera trap. The same physical device
// (CameraID) may be redeployed, so (CameraID, Date) is the identity used for
// uniqueness and status updates.
type Camera struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CameraID string             `bson:"camera_id" json:"camera_id"`
	Date     time.Time          `bson:"date" json:"date"`
	Owner    string             `bson:"owner" json:"owner"`
	Site     string             `bson:"site" json:"site"`
	Crds     Point              `bson:"crds" json:"crds"`
	Status   string             `bson:"status" json:"status"`
	Type     string             `bson:"type,omitempty" json:"type"`
	Perc     string             `bson:"perc,omitempty" json:"perc"` // battery percentage as entered
	Mem      string             `bson:"mem,omitempty" json:"mem"`   // memory card state
	Lock     string             `bson:"lock,omitempty" json:"lock"`
	Comments string             `bson:"comments,omitempty" json:"comments"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
}
