package geo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/dalemusser/fieldhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
)

func TestParseLatLon(t *testing.T) {
	tests := []struct {
		in      string
		wantLat float64
		wantLon float64
		wantErr bool
	}{
		{"45.0, -93.0", 45, -93, false},
		{"45,-93", 45, -93, false},
		{" -12.5 ,  130.25 ", -12.5, 130.25, false},
		{"", 0, 0, true},
		{"45.0", 0, 0, true},
		{"45.0, -93.0, 1", 0, 0, true},
		{"north, west", 0, 0, true},
		{"91, 0", 0, 0, true},
		{"0, 181", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := ParseLatLon(tt.in)
			if tt.wantErr {
				if !outcome.Is(err, outcome.KindMalformed) {
					t.Fatalf("ParseLatLon(%q): got %v, want malformed", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLatLon(%q): %v", tt.in, err)
			}
			if p.Lat() != tt.wantLat || p.Lon() != tt.wantLon {
				t.Errorf("ParseLatLon(%q): got (%v, %v), want (%v, %v)", tt.in, p.Lat(), p.Lon(), tt.wantLat, tt.wantLon)
			}
			if p.Type != models.GeoPoint {
				t.Errorf("type: got %q", p.Type)
			}
		})
	}
}

func TestPointRoundTripText(t *testing.T) {
	for _, in := range []string{"45.0, -93.0", "12.345, 0.5", "-0.25, 179.999"} {
		p, err := ParseLatLon(in)
		if err != nil {
			t.Fatalf("ParseLatLon(%q): %v", in, err)
		}
		if got := p.String(); got != in {
			t.Errorf("String: got %q, want %q", got, in)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in         string
		wantUTC    time.Time
		wantOffset int
	}{
		{"2024-05-01T10:00:00Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), 0},
		{"2024-05-01T23:15:00-05:00", time.Date(2024, 5, 2, 4, 15, 0, 0, time.UTC), -5 * 3600},
		{"2024-05-01T10:00:00.123456", time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC), 0},
		{"2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, off, err := ParseTimestamp(tt.in)
			if err != nil {
				t.Fatalf("ParseTimestamp: %v", err)
			}
			if !got.Equal(tt.wantUTC) {
				t.Errorf("instant: got %v, want %v", got, tt.wantUTC)
			}
			if off != tt.wantOffset {
				t.Errorf("offset: got %d, want %d", off, tt.wantOffset)
			}
			if got.Location() != time.UTC {
				t.Errorf("expected UTC location, got %v", got.Location())
			}
		})
	}

	if _, _, err := ParseTimestamp("yesterday"); !outcome.Is(err, outcome.KindMalformed) {
		t.Errorf("ParseTimestamp(yesterday): got %v, want malformed", err)
	}
}

const square = `{"type":"Polygon","coordinates":[[[-94,44],[-92,44],[-92,46],[-94,46],[-94,44]]]}`

func TestParseArea_FeatureCollectionSingle(t *testing.T) {
	raw := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":` + square + `}]}`
	g, err := ParseArea([]byte(raw))
	if err != nil {
		t.Fatalf("ParseArea: %v", err)
	}
	if g.Type != models.GeoPolygon {
		t.Fatalf("type: got %q, want Polygon", g.Type)
	}
	coords, ok := g.Coordinates.([][][]float64)
	if !ok {
		t.Fatalf("coordinates: got %T", g.Coordinates)
	}
	if len(coords) != 1 || len(coords[0]) != 5 {
		t.Errorf("rings: got %v", coords)
	}
	if err := CheckStored(g); err != nil {
		t.Errorf("CheckStored: %v", err)
	}
}

func TestParseArea_UnionOfFeatures(t *testing.T) {
	other := `{"type":"Polygon","coordinates":[[[10,10],[11,10],[11,11],[10,11],[10,10]]]}`
	raw := `{"type":"FeatureCollection","features":[` +
		`{"type":"Feature","properties":{},"geometry":` + square + `},` +
		`{"type":"Feature","properties":{},"geometry":` + other + `}]}`
	g, err := ParseArea([]byte(raw))
	if err != nil {
		t.Fatalf("ParseArea: %v", err)
	}
	if g.Type != models.GeoMultiPolygon {
		t.Fatalf("type: got %q, want MultiPolygon", g.Type)
	}
	coords := g.Coordinates.([][][][]float64)
	if len(coords) != 2 {
		t.Errorf("polygons: got %d, want 2", len(coords))
	}
}

func TestParseArea_BareGeometry(t *testing.T) {
	g, err := ParseArea([]byte(square))
	if err != nil {
		t.Fatalf("ParseArea: %v", err)
	}
	if g.Type != models.GeoPolygon {
		t.Errorf("type: got %q", g.Type)
	}
}

func TestParseArea_Rejects(t *testing.T) {
	tests := map[string]string{
		"not json":     `{"type":`,
		"empty":        `{"type":"FeatureCollection","features":[]}`,
		"point":        `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[1,2]}}]}`,
		"open ring":    `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1]]]}`,
		"short ring":   `{"type":"Polygon","coordinates":[[[0,0],[1,0],[0,0]]]}`,
		"out of range": `{"type":"Polygon","coordinates":[[[0,0],[200,0],[200,1],[0,0]]]}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseArea([]byte(raw)); !outcome.Is(err, outcome.KindMalformed) {
				t.Errorf("ParseArea: got %v, want malformed", err)
			}
		})
	}
}

func TestCheckStored_FromBSON(t *testing.T) {
	g, err := ParseArea([]byte(square))
	if err != nil {
		t.Fatalf("ParseArea: %v", err)
	}

	// Round-trip through BSON the way the store returns it.
	raw, err := bson.Marshal(bson.M{"geom": g})
	if err != nil {
		t.Fatalf("bson.Marshal: %v", err)
	}
	var back struct {
		Geom models.Geometry `bson:"geom"`
	}
	if err := bson.Unmarshal(raw, &back); err != nil {
		t.Fatalf("bson.Unmarshal: %v", err)
	}
	if err := CheckStored(back.Geom); err != nil {
		t.Errorf("CheckStored: %v", err)
	}

	out, err := json.Marshal(back.Geom)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	if string(out) != square {
		t.Errorf("json: got %s, want %s", out, square)
	}
}

func TestCheckStored_Rejects(t *testing.T) {
	bad := []models.Geometry{
		{Type: "Point", Coordinates: []float64{1, 2}},
		{Type: models.GeoPolygon, Coordinates: [][][]float64{{{0, 0}, {1, 0}, {1, 1}}}},
		{Type: models.GeoPolygon, Coordinates: "garbage"},
	}
	for i, g := range bad {
		if err := CheckStored(g); err == nil {
			t.Errorf("case %d: expected error for %+v", i, g)
		}
	}
}
