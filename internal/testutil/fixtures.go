package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/fieldhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures writes test data straight into the collections, bypassing the
// stores under test.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("insert into %s failed: %v", coll, err)
	}
}

// CreateUser creates a user with the given uid, name and email.
func (f *Fixtures) CreateUser(ctx context.Context, uid, name, email string) models.User {
	f.t.Helper()
	u := models.User{
		ID:        primitive.NewObjectID(),
		UID:       uid,
		Name:      name,
		NameCI:    text.Fold(name),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateCommunity creates a community with a fixed code.
func (f *Fixtures) CreateCommunity(ctx context.Context, code, name, owner string) models.Community {
	f.t.Helper()
	c := models.Community{
		Code:        code,
		Owner:       owner,
		Name:        name,
		NameCI:      text.Fold(name),
		Description: name + " description",
		ImageURL:    "https://img.example.com/" + code + ".png",
		CreatedAt:   time.Now().UTC(),
	}
	f.insert(ctx, "communities", c)
	return c
}

// Join adds uid to the community code.
func (f *Fixtures) Join(ctx context.Context, uid, code string) {
	f.t.Helper()
	f.insert(ctx, "user_communities", models.UserCommunity{
		ID:       primitive.NewObjectID(),
		UID:      uid,
		Code:     code,
		JoinedAt: time.Now().UTC(),
	})
}

// Share links a resource of kind to each code.
func (f *Fixtures) Share(ctx context.Context, kind models.Kind, id primitive.ObjectID, codes ...string) {
	f.t.Helper()
	for _, code := range codes {
		f.insert(ctx, kind.EdgeCollection(), models.ResourceCommunity{
			ID:         primitive.NewObjectID(),
			ResourceID: id,
			Code:       code,
			CreatedAt:  time.Now().UTC(),
		})
	}
}

// CreateCamera creates a camera placement and shares it into codes.
func (f *Fixtures) CreateCamera(ctx context.Context, cameraID string, lat, lon float64, date time.Time, codes ...string) models.Camera {
	f.t.Helper()
	cam := models.Camera{
		ID:        primitive.NewObjectID(),
		CameraID:  cameraID,
		Date:      date.UTC(),
		Owner:     "Fixture Owner",
		Site:      "Fixture Site",
		Crds:      models.NewPoint(lat, lon),
		Status:    "active",
		CreatedAt: time.Now().UTC(),
	}
	f.insert(ctx, "cameras", cam)
	f.Share(ctx, models.KindCamera, cam.ID, codes...)
	return cam
}

// CreateSighting creates a sighting and shares it into codes.
func (f *Fixtures) CreateSighting(ctx context.Context, observer, species string, lat, lon float64, date time.Time, codes ...string) models.Sighting {
	f.t.Helper()
	_, off := date.Zone()
	s := models.Sighting{
		ID:        primitive.NewObjectID(),
		Owner:     observer,
		Observer:  observer,
		Crds:      models.NewPoint(lat, lon),
		Date:      date.UTC(),
		UTCOffset: off,
		Species:   species,
		Number:    1,
		CreatedAt: time.Now().UTC(),
	}
	f.insert(ctx, "sightings", s)
	f.Share(ctx, models.KindSighting, s.ID, codes...)
	return s
}

// CreateArea creates an area from a geometry and shares it into codes.
func (f *Fixtures) CreateArea(ctx context.Context, name string, geom models.Geometry, codes ...string) models.GeoArea {
	f.t.Helper()
	a := models.GeoArea{
		ID:          primitive.NewObjectID(),
		Name:        name,
		Description: name + " description",
		Geom:        geom,
		CreatedAt:   time.Now().UTC(),
	}
	f.insert(ctx, "geoareas", a)
	f.Share(ctx, models.KindArea, a.ID, codes...)
	return a
}

// Box returns a rectangular polygon from (minLat, minLon) to (maxLat, maxLon).
func Box(minLat, minLon, maxLat, maxLon float64) models.Geometry {
	return models.Geometry{
		Type: models.GeoPolygon,
		Coordinates: [][][]float64{{
			{minLon, minLat},
			{maxLon, minLat},
			{maxLon, maxLat},
			{minLon, maxLat},
			{minLon, minLat},
		}},
	}
}
