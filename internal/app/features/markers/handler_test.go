package markers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/fieldhub/internal/app/features/markers"
	"github.com/dalemusser/fieldhub/internal/app/store/queries/areastats"
	"github.com/dalemusser/fieldhub/internal/testutil"
	"go.uber.org/zap"
)

type markersJSON struct {
	Cameras   []map[string]any      `json:"cameras"`
	Sightings []map[string]any      `json:"sightings"`
	Areas     []areastats.AreaStats `json:"areas"`
	Errors    []areastats.AreaError `json:"errors"`
}

func TestServeMarkers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := markers.NewHandler(db, areastats.ScopeGlobal, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.Join(ctx, "u-1", "C1")
	fx.Join(ctx, "u-1", "C2")
	when := time.Date(2024, 5, 1, 23, 0, 0, 0, time.FixedZone("", -5*3600))
	fx.CreateCamera(ctx, "CAM1", 45, -93, when, "C1", "C2")
	fx.CreateSighting(ctx, "Alice", "Red fox", 45.1, -93.1, when, "C1")
	fx.CreateArea(ctx, "Ridge", testutil.Box(44, -94, 46, -92), "C1")
	fx.CreateArea(ctx, "Far away", testutil.Box(0, 0, 1, 1), "C2")

	rec := testutil.NewRecorder()
	h.ServeMarkers(rec, testutil.NewAuthenticatedRequest(t, "GET", "/markers", testutil.Viewer("u-1"), nil))
	rec.AssertStatus(t, http.StatusOK)

	var got markersJSON
	rec.Decode(t, &got)
	if len(got.Cameras) != 1 {
		t.Errorf("cameras: got %d, want 1 (shared twice, listed once)", len(got.Cameras))
	}
	if len(got.Sightings) != 1 {
		t.Errorf("sightings: got %d, want 1", len(got.Sightings))
	}
	if len(got.Areas) != 2 {
		t.Fatalf("areas: got %d, want 2", len(got.Areas))
	}
	byName := map[string]areastats.AreaStats{}
	for _, a := range got.Areas {
		byName[a.Name] = a
	}
	ridge := byName["Ridge"]
	if ridge.NumCameras != 1 || ridge.NumSightings != 1 {
		t.Errorf("Ridge counts: got %d cameras %d sightings, want 1 and 1", ridge.NumCameras, ridge.NumSightings)
	}
	if ridge.HourBins[23] != 1 {
		t.Errorf("Ridge hourBins[23]: got %d, want 1", ridge.HourBins[23])
	}
	if far := byName["Far away"]; far.NumCameras != 0 || far.NumSightings != 0 {
		t.Errorf("Far away counts: got %d cameras %d sightings, want 0 and 0", far.NumCameras, far.NumSightings)
	}
	if len(got.Errors) != 0 {
		t.Errorf("errors: got %+v, want none", got.Errors)
	}
}

func TestServeMarkers_EmptyForStranger(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := markers.NewHandler(db, areastats.ScopeGlobal, zap.NewNop())

	rec := testutil.NewRecorder()
	h.ServeMarkers(rec, testutil.NewAuthenticatedRequest(t, "GET", "/markers", testutil.Viewer("nobody"), nil))
	rec.AssertStatus(t, http.StatusOK)

	var got markersJSON
	rec.Decode(t, &got)
	if got.Cameras == nil || got.Sightings == nil || got.Areas == nil || got.Errors == nil {
		t.Errorf("empty lists must be [] not null: %s", rec.Body.String())
	}
}

func TestServeMarkers_StoreDown(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := markers.NewHandler(db, areastats.ScopeGlobal, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := testutil.NewAuthenticatedRequest(t, "GET", "/markers", testutil.Viewer("u-1"), nil).WithContext(ctx)
	req = testutil.WithIdentity(req, testutil.Viewer("u-1"))

	rec := testutil.NewRecorder()
	h.ServeMarkers(rec, req)
	rec.AssertStatus(t, http.StatusServiceUnavailable)
}
