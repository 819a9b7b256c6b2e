// internal/app/system/geo/geo.go

// Package geo converts the text and GeoJSON forms clients send into the
// WGS84 shapes stored in MongoDB, and checks stored shapes before they are
// used in intersection queries.
package geo

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/dalemusser/fieldhub/internal/domain/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.mongodb.org/mongo-driver/bson"
)

// ParseLatLon parses "lat, lon" into a point.
func ParseLatLon(s string) (models.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return models.Point{}, outcome.Malformed("geo.latlon", "coordinates must be \"lat, lon\", got %q", s)
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return models.Point{}, outcome.Malformed("geo.latlon", "coordinates must be numeric, got %q", s)
	}
	if !validLat(lat) || !validLon(lon) {
		return models.Point{}, outcome.Malformed("geo.latlon", "coordinates out of range: %q", s)
	}
	return models.NewPoint(lat, lon), nil
}

func validLat(v float64) bool { return !math.IsNaN(v) && v >= -90 && v <= 90 }
func validLon(v float64) bool { return !math.IsNaN(v) && v >= -180 && v <= 180 }

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. It returns the instant in UTC
// and the offset, in seconds east of UTC, the timestamp was written with.
// Timestamps without an offset are taken as UTC.
func ParseTimestamp(s string) (time.Time, int, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			_, off := t.Zone()
			return t.UTC(), off, nil
		}
	}
	return time.Time{}, 0, outcome.Malformed("geo.timestamp", "timestamp must be ISO-8601, got %q", s)
}

// ParseArea reads a GeoJSON FeatureCollection (or a single Feature or bare
// geometry) and unions its polygons into one area shape. A single polygon is
// stored as a Polygon; several are stored as one MultiPolygon, which
// intersects exactly the same points and shapes as their union.
func ParseArea(raw []byte) (models.Geometry, error) {
	polys, err := collectPolygons(raw)
	if err != nil {
		return models.Geometry{}, err
	}
	if len(polys) == 0 {
		return models.Geometry{}, outcome.Malformed("geo.area", "geometry contains no polygons")
	}
	for i, p := range polys {
		if err := checkPolygon(p); err != nil {
			return models.Geometry{}, outcome.Malformed("geo.area", "polygon %d: %v", i, err)
		}
	}
	if len(polys) == 1 {
		return models.Geometry{Type: models.GeoPolygon, Coordinates: polygonCoords(polys[0])}, nil
	}
	multi := make([][][][]float64, len(polys))
	for i, p := range polys {
		multi[i] = polygonCoords(p)
	}
	return models.Geometry{Type: models.GeoMultiPolygon, Coordinates: multi}, nil
}

func collectPolygons(raw []byte) ([]orb.Polygon, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, outcome.Malformed("geo.area", "geometry is not valid JSON")
	}

	var geoms []orb.Geometry
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			return nil, outcome.Malformed("geo.area", "invalid feature collection: %v", err)
		}
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, outcome.Malformed("geo.area", "invalid feature: %v", err)
		}
		geoms = append(geoms, f.Geometry)
	default:
		g, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, outcome.Malformed("geo.area", "invalid geometry: %v", err)
		}
		geoms = append(geoms, g.Geometry())
	}

	var polys []orb.Polygon
	for _, g := range geoms {
		switch v := g.(type) {
		case orb.Polygon:
			polys = append(polys, v)
		case orb.MultiPolygon:
			polys = append(polys, v...)
		case nil:
			return nil, outcome.Malformed("geo.area", "feature without geometry")
		default:
			return nil, outcome.Malformed("geo.area", "unsupported geometry type %s", g.GeoJSONType())
		}
	}
	return polys, nil
}

func checkPolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return fmt.Errorf("no rings")
	}
	for i, r := range p {
		if len(r) < 4 {
			return fmt.Errorf("ring %d has %d positions, need at least 4", i, len(r))
		}
		if !r.Closed() {
			return fmt.Errorf("ring %d is not closed", i)
		}
		for _, pt := range r {
			if !validLon(pt[0]) || !validLat(pt[1]) {
				return fmt.Errorf("ring %d has position %v out of range", i, pt)
			}
		}
	}
	return nil
}

func polygonCoords(p orb.Polygon) [][][]float64 {
	out := make([][][]float64, len(p))
	for i, r := range p {
		ring := make([][]float64, len(r))
		for j, pt := range r {
			ring[j] = []float64{pt[0], pt[1]}
		}
		out[i] = ring
	}
	return out
}

// CheckStored verifies a geometry read back from the store is a well-formed
// Polygon or MultiPolygon before it is used as a query shape.
func CheckStored(g models.Geometry) error {
	if g.Type != models.GeoPolygon && g.Type != models.GeoMultiPolygon {
		return fmt.Errorf("unsupported geometry type %q", g.Type)
	}
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode geometry: %w", err)
	}
	parsed, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return fmt.Errorf("decode geometry: %w", err)
	}
	var polys []orb.Polygon
	switch v := parsed.Geometry().(type) {
	case orb.Polygon:
		polys = []orb.Polygon{v}
	case orb.MultiPolygon:
		polys = v
	default:
		return fmt.Errorf("unexpected geometry %T", v)
	}
	if len(polys) == 0 {
		return fmt.Errorf("no polygons")
	}
	for _, p := range polys {
		if err := checkPolygon(p); err != nil {
			return err
		}
	}
	return nil
}

// Intersects builds a $geoIntersects filter on field for g.
func Intersects(field string, g models.Geometry) bson.M {
	return bson.M{field: bson.M{"$geoIntersects": bson.M{
		"$geometry": bson.M{"type": g.Type, "coordinates": g.Coordinates},
	}}}
}
