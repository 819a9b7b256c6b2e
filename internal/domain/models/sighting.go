// internal/domain/models/sighting.go
package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sighting is an immutable wildlife observation. Date is stored in UTC and
// UTCOffset keeps the offset (seconds east of UTC) it was reported with, so
// the observer's local hour can be recovered.
type Sighting struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title     string             `bson:"title,omitempty" json:"title"`
	Owner     string             `bson:"owner" json:"owner"`
	Observer  string             `bson:"observer" json:"observer"`
	Crds      Point              `bson:"crds" json:"crds"`
	Date      time.Time          `bson:"date" json:"date"`
	UTCOffset int                `bson:"utc_offset" json:"-"`
	Species   string             `bson:"species" json:"species"`
	Number    int                `bson:"number" json:"number"`
	Type      string             `bson:"type,omitempty" json:"type"`
	URL       string             `bson:"url,omitempty" json:"url"`
	Comments  string             `bson:"comments,omitempty" json:"comments"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
}

// LocalTime returns Date at the offset it was reported with.
func (s Sighting) LocalTime() time.Time {
	return LocalTime(s.Date, s.UTCOffset)
}

// MarshalJSON renders the date at its reported offset.
func (s Sighting) MarshalJSON() ([]byte, error) {
	type plain Sighting
	return json.Marshal(struct {
		plain
		Date time.Time `json:"date"`
	}{plain: plain(s), Date: s.LocalTime()})
}

// LocalTime places t in a fixed zone offset seconds east of UTC.
func LocalTime(t time.Time, offset int) time.Time {
	if offset == 0 {
		return t.UTC()
	}
	return t.In(time.FixedZone("", offset))
}
