// internal/domain/models/geometry.go
package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// GeoJSON type names used in stored documents.
const (
	GeoPoint        = "Point"
	GeoPolygon      = "Polygon"
	GeoMultiPolygon = "MultiPolygon"
)

// Point is a GeoJSON point in WGS84. Coordinates are [lon, lat] as GeoJSON
// and the 2dsphere index require. It renders to JSON as "lat, lon" text.
type Point struct {
	Type        string     `bson:"type"`
	Coordinates [2]float64 `bson:"coordinates"`
}

// NewPoint builds a point from latitude and longitude.
func NewPoint(lat, lon float64) Point {
	return Point{Type: GeoPoint, Coordinates: [2]float64{lon, lat}}
}

func (p Point) Lat() float64 { return p.Coordinates[1] }
func (p Point) Lon() float64 { return p.Coordinates[0] }

// String renders the point as "lat, lon". Integral values keep a trailing
// ".0" so 45 renders as "45.0".
func (p Point) String() string {
	return formatCoord(p.Lat()) + ", " + formatCoord(p.Lon())
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func formatCoord(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Geometry is a stored area shape: a GeoJSON Polygon or MultiPolygon in
// WGS84. Coordinates are written as nested float64 slices and come back from
// the store as nested bson arrays; both marshal to plain GeoJSON.
type Geometry struct {
	Type        string `bson:"type" json:"type"`
	Coordinates any    `bson:"coordinates" json:"coordinates"`
}
