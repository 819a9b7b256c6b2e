package areastats_test

import (
	"context"
	"errors"
	"testing"
	"time"

	camerastore "github.com/dalemusser/fieldhub/internal/app/store/cameras"
	"github.com/dalemusser/fieldhub/internal/app/store/queries/areastats"
	"github.com/dalemusser/fieldhub/internal/app/store/queries/visible"
	sightingstore "github.com/dalemusser/fieldhub/internal/app/store/sightings"
	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/dalemusser/fieldhub/internal/domain/models"
	"github.com/dalemusser/fieldhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeAreas []models.GeoArea

func (f fakeAreas) ReadableAreas(context.Context, string) ([]models.GeoArea, []*visible.DecodeError, error) {
	return f, nil, nil
}

type unreadableAreas struct {
	good []models.GeoArea
	bad  []*visible.DecodeError
}

func (f unreadableAreas) ReadableAreas(context.Context, string) ([]models.GeoArea, []*visible.DecodeError, error) {
	return f.good, f.bad, nil
}

type fakeCameras struct {
	n      int64
	err    error
	gotIDs [][]primitive.ObjectID
}

func (f *fakeCameras) CountIntersecting(_ context.Context, _ models.Geometry, ids []primitive.ObjectID) (int64, error) {
	f.gotIDs = append(f.gotIDs, ids)
	return f.n, f.err
}

type fakeSightings struct {
	obs []sightingstore.Observation
	err error
}

func (f *fakeSightings) ListIntersecting(context.Context, models.Geometry, []primitive.ObjectID) ([]sightingstore.Observation, error) {
	return f.obs, f.err
}

type fakeScoper map[models.Kind][]primitive.ObjectID

func (f fakeScoper) IDs(_ context.Context, kind models.Kind, _ string) ([]primitive.ObjectID, error) {
	return f[kind], nil
}

func at(hour int) time.Time {
	return time.Date(2024, 6, 1, hour, 30, 0, 0, time.UTC)
}

func TestTally_HourBoundary(t *testing.T) {
	st := areastats.Tally([]sightingstore.Observation{{Species: "fox", Observer: "ann", Date: at(23)}})
	for h, n := range st.HourBins {
		want := 0
		if h == 23 {
			want = 1
		}
		if n != want {
			t.Errorf("bin %d: got %d, want %d", h, n, want)
		}
	}
}

func TestTally_TwentyFourHours(t *testing.T) {
	var obs []sightingstore.Observation
	for h := 0; h < 24; h++ {
		obs = append(obs, sightingstore.Observation{Species: "fox", Observer: "ann", Date: at(h)})
	}
	st := areastats.Tally(obs)
	for h, n := range st.HourBins {
		if n != 1 {
			t.Errorf("bin %d: got %d, want 1", h, n)
		}
	}
	if st.NumSightings != 24 || st.NumSpecies != 1 || st.SpeciesDist["fox"] != 24 || st.ObserverDist["ann"] != 24 {
		t.Errorf("tally: got %+v", st)
	}
}

func TestTally_UsesReportedOffset(t *testing.T) {
	// 04:30 UTC reported at -05:00 is 23:30 local.
	o := sightingstore.Observation{Species: "owl", Observer: "bo", Date: at(4), UTCOffset: -5 * 3600}
	st := areastats.Tally([]sightingstore.Observation{o})
	if st.HourBins[23] != 1 || st.HourBins[4] != 0 {
		t.Errorf("bins: got %v", st.HourBins)
	}
}

func TestTally_Empty(t *testing.T) {
	st := areastats.Tally(nil)
	if st.NumSightings != 0 || st.NumSpecies != 0 {
		t.Errorf("counts: got %+v", st)
	}
	if st.SpeciesDist == nil || st.ObserverDist == nil {
		t.Error("distributions should be empty maps, not nil")
	}
}

func TestAggregate_SkipsMalformedArea(t *testing.T) {
	good := models.GeoArea{Name: "Good", Geom: testutil.Box(45, -94, 46, -93)}
	bad := models.GeoArea{Name: "Bad", Geom: models.Geometry{Type: models.GeoPolygon, Coordinates: [][][]float64{{{0, 0}, {1, 1}}}}}

	agg := areastats.New(areastats.Sources{
		Areas:     fakeAreas{bad, good},
		Cameras:   &fakeCameras{n: 3},
		Sightings: &fakeSightings{obs: []sightingstore.Observation{{Species: "fox", Observer: "ann", Date: at(5)}}},
	}, areastats.ScopeGlobal, nil)

	res, err := agg.Aggregate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(res.Areas) != 1 || res.Areas[0].Name != "Good" || res.Areas[0].NumCameras != 3 || res.Areas[0].NumSightings != 1 {
		t.Errorf("areas: got %+v", res.Areas)
	}
	if len(res.Errors) != 1 || res.Errors[0].Area != "Bad" {
		t.Errorf("errors: got %+v", res.Errors)
	}
}

func TestAggregate_ListsUnreadableAreas(t *testing.T) {
	good := models.GeoArea{Name: "Good", Geom: testutil.Box(45, -94, 46, -93)}
	agg := areastats.New(areastats.Sources{
		Areas: unreadableAreas{
			good: []models.GeoArea{good},
			bad: []*visible.DecodeError{
				{ID: "64b000000000000000000001", Name: "Marsh", Err: errors.New("cannot decode")},
				{ID: "64b000000000000000000002", Err: errors.New("cannot decode")},
			},
		},
		Cameras:   &fakeCameras{n: 2},
		Sightings: &fakeSightings{},
	}, areastats.ScopeGlobal, nil)

	res, err := agg.Aggregate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(res.Areas) != 1 || res.Areas[0].Name != "Good" || res.Areas[0].NumCameras != 2 {
		t.Errorf("areas: got %+v", res.Areas)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("errors: got %+v, want 2", res.Errors)
	}
	if res.Errors[0].Area != "Marsh" {
		t.Errorf("errors[0].Area: got %q, want %q", res.Errors[0].Area, "Marsh")
	}
	if res.Errors[1].Area != "64b000000000000000000002" {
		t.Errorf("errors[1].Area: got %q, want the document id", res.Errors[1].Area)
	}
}

func TestAggregate_StoreGeoRejectionIsSkipped(t *testing.T) {
	area := models.GeoArea{Name: "Twisted", Geom: testutil.Box(45, -94, 46, -93)}
	agg := areastats.New(areastats.Sources{
		Areas:     fakeAreas{area},
		Cameras:   &fakeCameras{err: outcome.Malformed("cameras.count_intersecting", "geometry rejected by store")},
		Sightings: &fakeSightings{},
	}, areastats.ScopeGlobal, nil)

	res, err := agg.Aggregate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(res.Areas) != 0 || len(res.Errors) != 1 {
		t.Errorf("result: got %+v", res)
	}
}

func TestAggregate_StoreFaultAborts(t *testing.T) {
	area := models.GeoArea{Name: "A", Geom: testutil.Box(45, -94, 46, -93)}
	agg := areastats.New(areastats.Sources{
		Areas:     fakeAreas{area},
		Cameras:   &fakeCameras{},
		Sightings: &fakeSightings{err: outcome.Unavailable("sightings.list_intersecting", errors.New("connection reset"))},
	}, areastats.ScopeGlobal, nil)

	_, err := agg.Aggregate(context.Background(), "u1")
	if !outcome.Is(err, outcome.KindUnavailable) {
		t.Errorf("got %v, want store unavailable", err)
	}
}

func TestAggregate_ScopePassesIDs(t *testing.T) {
	area := models.GeoArea{Name: "A", Geom: testutil.Box(45, -94, 46, -93)}
	id := primitive.NewObjectID()

	tests := []struct {
		name  string
		scope areastats.Scope
		want  []primitive.ObjectID
	}{
		{"global", areastats.ScopeGlobal, nil},
		{"community", areastats.ScopeCommunity, []primitive.ObjectID{id}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cams := &fakeCameras{}
			agg := areastats.New(areastats.Sources{
				Areas:     fakeAreas{area},
				Cameras:   cams,
				Sightings: &fakeSightings{},
				Scoper:    fakeScoper{models.KindCamera: {id}},
			}, tt.scope, nil)
			if _, err := agg.Aggregate(context.Background(), "u1"); err != nil {
				t.Fatalf("Aggregate: %v", err)
			}
			got := cams.gotIDs[0]
			if (got == nil) != (tt.want == nil) || len(got) != len(tt.want) {
				t.Errorf("ids: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseScope(t *testing.T) {
	for in, want := range map[string]areastats.Scope{"": areastats.ScopeGlobal, "global": areastats.ScopeGlobal, "community": areastats.ScopeCommunity} {
		got, err := areastats.ParseScope(in)
		if err != nil || got != want {
			t.Errorf("ParseScope(%q): got (%v, %v), want %v", in, got, err, want)
		}
	}
	if _, err := areastats.ParseScope("everyone"); err == nil {
		t.Error("ParseScope(everyone): expected error")
	}
}

func newStoreAggregator(t *testing.T, scope areastats.Scope) (*areastats.Aggregator, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	r := visible.New(db)
	return areastats.New(areastats.Sources{
		Areas:     r,
		Cameras:   camerastore.New(db),
		Sightings: sightingstore.New(db),
		Scoper:    r,
	}, scope, nil), testutil.NewFixtures(t, db)
}

func TestAggregate_FoxesInsideOwlOutside(t *testing.T) {
	agg, f := newStoreAggregator(t, areastats.ScopeGlobal)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	f.CreateUser(ctx, "u1", "Ann", "ann@example.com")
	f.CreateCommunity(ctx, "AAA", "Alpha", "Ann")
	f.Join(ctx, "u1", "AAA")
	f.CreateArea(ctx, "Marsh", testutil.Box(45, -94, 46, -93), "AAA")

	// Not shared anywhere: the default scope still counts them.
	f.CreateSighting(ctx, "ann", "fox", 45.5, -93.5, at(6))
	f.CreateSighting(ctx, "ann", "fox", 45.6, -93.6, at(7))
	f.CreateSighting(ctx, "bob", "owl", 10, 10, at(8))
	f.CreateCamera(ctx, "C1", 45.5, -93.5, at(1))

	res, err := agg.Aggregate(ctx, "u1")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(res.Areas) != 1 {
		t.Fatalf("areas: got %d, want 1", len(res.Areas))
	}
	st := res.Areas[0]
	if st.NumSightings != 2 || st.NumSpecies != 1 || st.SpeciesDist["fox"] != 2 {
		t.Errorf("stats: got %+v", st)
	}
	if _, ok := st.SpeciesDist["owl"]; ok {
		t.Error("owl is outside the area and must not be counted")
	}
	if st.NumCameras != 1 || st.HourBins[6] != 1 || st.HourBins[7] != 1 {
		t.Errorf("stats: got %+v", st)
	}
}

func TestAggregate_CommunityScope(t *testing.T) {
	agg, f := newStoreAggregator(t, areastats.ScopeCommunity)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	f.CreateUser(ctx, "u1", "Ann", "ann@example.com")
	f.CreateCommunity(ctx, "AAA", "Alpha", "Ann")
	f.CreateCommunity(ctx, "BBB", "Beta", "Bob")
	f.Join(ctx, "u1", "AAA")
	f.CreateArea(ctx, "Marsh", testutil.Box(45, -94, 46, -93), "AAA")

	f.CreateSighting(ctx, "ann", "fox", 45.5, -93.5, at(6), "AAA")
	f.CreateSighting(ctx, "bob", "fox", 45.6, -93.6, at(7), "BBB")
	f.CreateCamera(ctx, "C1", 45.5, -93.5, at(1), "BBB")

	res, err := agg.Aggregate(ctx, "u1")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	st := res.Areas[0]
	if st.NumSightings != 1 || st.ObserverDist["ann"] != 1 || st.NumCameras != 0 {
		t.Errorf("community-scoped stats: got %+v", st)
	}
}

func TestAggregate_NoAreas(t *testing.T) {
	agg, _ := newStoreAggregator(t, areastats.ScopeGlobal)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	res, err := agg.Aggregate(ctx, "ghost")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if res.Areas == nil || len(res.Areas) != 0 || len(res.Errors) != 0 {
		t.Errorf("result: got %+v", res)
	}
}
