package areas_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/fieldhub/internal/app/features/areas"
	"github.com/dalemusser/fieldhub/internal/app/store/queries/areastats"
	"github.com/dalemusser/fieldhub/internal/app/system/txn"
	"github.com/dalemusser/fieldhub/internal/domain/models"
	"github.com/dalemusser/fieldhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const twoBoxes = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[-94,44],[-92,44],[-92,46],[-94,46],[-94,44]]]}},
 {"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[10,10],[11,10],[11,11],[10,11],[10,10]]]}}
]}`

func newTestHandler(t *testing.T, scope areastats.Scope) (*areas.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return areas.NewHandler(db, txn.New(nil, zap.NewNop()), scope, zap.NewNop()), testutil.NewFixtures(t, db)
}

func TestServeRegister_UnionIsStoredAsMultiPolygon(t *testing.T) {
	h, fx := newTestHandler(t, areastats.ScopeGlobal)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateCommunity(ctx, "C1", "Ridge", "Alice")

	body := map[string]any{
		"name":        "Ridge and island",
		"description": "two parts",
		"geom":        json.RawMessage(twoBoxes),
		"communities": []string{"C1"},
	}
	rec := testutil.NewRecorder()
	h.ServeRegister(rec, testutil.NewAuthenticatedRequest(t, "POST", "/areas", testutil.Editor("u-1"), body))
	rec.AssertStatus(t, http.StatusCreated)

	var doc models.GeoArea
	if err := fx.DB().Collection("geoareas").FindOne(ctx, bson.M{"name": "Ridge and island"}).Decode(&doc); err != nil {
		t.Fatalf("find area: %v", err)
	}
	if doc.Geom.Type != models.GeoMultiPolygon {
		t.Errorf("geometry type: got %q, want %q", doc.Geom.Type, models.GeoMultiPolygon)
	}

	rec = testutil.NewRecorder()
	h.ServeRegister(rec, testutil.NewAuthenticatedRequest(t, "POST", "/areas", testutil.Editor("u-1"), body))
	rec.AssertStatus(t, http.StatusConflict)
}

func TestServeRegister_BadGeometry(t *testing.T) {
	h, fx := newTestHandler(t, areastats.ScopeGlobal)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateCommunity(ctx, "C1", "Ridge", "Alice")

	body := map[string]any{
		"name":        "Open ring",
		"geom":        json.RawMessage(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1]]]}`),
		"communities": []string{"C1"},
	}
	rec := testutil.NewRecorder()
	h.ServeRegister(rec, testutil.NewAuthenticatedRequest(t, "POST", "/areas", testutil.Editor("u-1"), body))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestServeStats(t *testing.T) {
	for _, scope := range []areastats.Scope{areastats.ScopeGlobal, areastats.ScopeCommunity} {
		t.Run(string(scope), func(t *testing.T) {
			h, fx := newTestHandler(t, scope)
			ctx, cancel := testutil.TestContext()
			defer cancel()

			fx.Join(ctx, "u-1", "C1")
			fx.CreateArea(ctx, "Ridge", testutil.Box(44, -94, 46, -92), "C1")
			when := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
			fx.CreateCamera(ctx, "CAM1", 45, -93, when, "C1")
			// Inside the area but shared only into a community u-1 is not in.
			fx.CreateCamera(ctx, "CAM2", 45.5, -93.5, when, "C2")

			rec := testutil.NewRecorder()
			h.ServeStats(rec, testutil.NewAuthenticatedRequest(t, "GET", "/areas/stats", testutil.Viewer("u-1"), nil))
			rec.AssertStatus(t, http.StatusOK)

			var res areastats.Result
			rec.Decode(t, &res)
			if len(res.Areas) != 1 {
				t.Fatalf("areas: got %d, want 1", len(res.Areas))
			}
			want := int64(2)
			if scope == areastats.ScopeCommunity {
				want = 1
			}
			if res.Areas[0].NumCameras != want {
				t.Errorf("numCameras: got %d, want %d", res.Areas[0].NumCameras, want)
			}
			if len(res.Errors) != 0 {
				t.Errorf("errors: got %v, want none", res.Errors)
			}
		})
	}
}

func TestServeList(t *testing.T) {
	h, fx := newTestHandler(t, areastats.ScopeGlobal)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.Join(ctx, "u-1", "C1")
	fx.CreateArea(ctx, "Ridge", testutil.Box(44, -94, 46, -92), "C1")
	fx.CreateArea(ctx, "Hidden", testutil.Box(0, 0, 1, 1), "C2")

	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.NewAuthenticatedRequest(t, "GET", "/areas", testutil.Viewer("u-1"), nil))
	rec.AssertStatus(t, http.StatusOK)

	var list []struct {
		Name string `json:"name"`
	}
	rec.Decode(t, &list)
	if len(list) != 1 || list[0].Name != "Ridge" {
		t.Errorf("visible areas: got %+v, want [Ridge]", list)
	}
}
