package cameras_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/fieldhub/internal/app/features/cameras"
	"github.com/dalemusser/fieldhub/internal/app/system/txn"
	"github.com/dalemusser/fieldhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type cameraJSON struct {
	ID       string `json:"id"`
	CameraID string `json:"camera_id"`
	Owner    string `json:"owner"`
	Crds     string `json:"crds"`
	Status   string `json:"status"`
}

func newTestHandler(t *testing.T) (*cameras.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return cameras.NewHandler(db, txn.New(nil, zap.NewNop()), zap.NewNop()), testutil.NewFixtures(t, db)
}

func cameraBody(codes ...string) map[string]any {
	return map[string]any{
		"camera_id":   "CAM-7",
		"site":        "North ridge",
		"crds":        "45.0, -93.0",
		"date":        "2024-05-01T00:00:00Z",
		"next":        "2024-05-08",
		"daysAhead":   7,
		"communities": codes,
	}
}

func TestServeRegister_ThenVisibleToMembers(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateUser(ctx, "u-1", "Alice", "alice@example.com")
	fx.CreateCommunity(ctx, "C1", "Ridge", "Alice")
	fx.Join(ctx, "u-2", "C1")

	rec := testutil.NewRecorder()
	h.ServeRegister(rec, testutil.NewAuthenticatedRequest(t, "POST", "/cameras", testutil.Editor("u-1"), cameraBody("C1")))
	rec.AssertStatus(t, http.StatusCreated)

	var created cameraJSON
	rec.Decode(t, &created)
	if created.Owner != "Alice" {
		t.Errorf("owner: got %q, want %q", created.Owner, "Alice")
	}
	if created.Status != "2024-05-08,7" {
		t.Errorf("status: got %q, want %q", created.Status, "2024-05-08,7")
	}

	rec = testutil.NewRecorder()
	h.ServeList(rec, testutil.NewAuthenticatedRequest(t, "GET", "/cameras", testutil.Viewer("u-2"), nil))
	rec.AssertStatus(t, http.StatusOK)

	var list []cameraJSON
	rec.Decode(t, &list)
	if len(list) != 1 {
		t.Fatalf("visible cameras: got %d, want 1", len(list))
	}
	if list[0].Crds != "45.0, -93.0" {
		t.Errorf("crds: got %q, want %q", list[0].Crds, "45.0, -93.0")
	}
}

func TestServeList_NonMemberSeesEmptyArray(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateCamera(ctx, "CAM-1", 45, -93, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), "C1")

	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.NewAuthenticatedRequest(t, "GET", "/cameras", testutil.Viewer("stranger"), nil))
	rec.AssertStatus(t, http.StatusOK)
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("body: got %q, want %q", got, "[]\n")
	}
}

func TestServeRegister_Failures(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateUser(ctx, "u-1", "Alice", "alice@example.com")
	fx.CreateCommunity(ctx, "C1", "Ridge", "Alice")

	bad := cameraBody("C1")
	bad["crds"] = "north-ish"

	tests := []struct {
		name string
		uid  string
		body any
		want int
	}{
		{"unknown community", "u-1", cameraBody("NOPE"), http.StatusNotFound},
		{"no communities", "u-1", cameraBody(), http.StatusBadRequest},
		{"bad coordinates", "u-1", bad, http.StatusBadRequest},
		{"unregistered user", "ghost", cameraBody("C1"), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.ServeRegister(rec, testutil.NewAuthenticatedRequest(t, "POST", "/cameras", testutil.Editor(tt.uid), tt.body))
			rec.AssertStatus(t, tt.want)
		})
	}

	n, err := fx.DB().Collection("cameras").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("cameras written: got %d, want 0", n)
	}

	// Same camera on the same date twice.
	rec := testutil.NewRecorder()
	h.ServeRegister(rec, testutil.NewAuthenticatedRequest(t, "POST", "/cameras", testutil.Editor("u-1"), cameraBody("C1")))
	rec.AssertStatus(t, http.StatusCreated)
	rec = testutil.NewRecorder()
	h.ServeRegister(rec, testutil.NewAuthenticatedRequest(t, "POST", "/cameras", testutil.Editor("u-1"), cameraBody("C1")))
	rec.AssertStatus(t, http.StatusConflict)
}

func TestServeStatus(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateCamera(ctx, "CAM1", 45, -93, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), "C1")

	// Keys split at the first '-', so camera ids in keys carry none.
	body := map[string]any{"next": "2024-05-08", "daysAhead": 7}

	rec := testutil.NewRecorder()
	req := testutil.NewAuthenticatedRequest(t, "PATCH", "/cameras/CAM1-2024-05-01/status", testutil.Editor("u-1"), body)
	h.ServeStatus(rec, testutil.WithChiURLParam(req, "key", "CAM1-2024-05-01T00:00:00Z"))
	rec.AssertStatus(t, http.StatusNoContent)

	var doc struct {
		Status string `bson:"status"`
	}
	if err := fx.DB().Collection("cameras").FindOne(ctx, bson.M{"camera_id": "CAM1"}).Decode(&doc); err != nil {
		t.Fatalf("find camera: %v", err)
	}
	if doc.Status != "2024-05-08,7" {
		t.Errorf("status: got %q, want %q", doc.Status, "2024-05-08,7")
	}

	rec = testutil.NewRecorder()
	req = testutil.NewAuthenticatedRequest(t, "PATCH", "/cameras/x/status", testutil.Editor("u-1"), body)
	h.ServeStatus(rec, testutil.WithChiURLParam(req, "key", "CAM9-2024-05-01T00:00:00Z"))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestRoutes_ViewerCannotWrite(t *testing.T) {
	h, _ := newTestHandler(t)
	router := cameras.Routes(h)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(t, "POST", "/", testutil.Viewer("u-1"), cameraBody("C1")))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(t, "PATCH", "/CAM-1-2024-05-01/status", testutil.Viewer("u-1"),
		map[string]any{"next": "x"}))
	rec.AssertStatus(t, http.StatusForbidden)
}
