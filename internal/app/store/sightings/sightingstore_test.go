package sightingstore_test

import (
	"errors"
	"testing"
	"time"

	sightingstore "github.com/dalemusser/fieldhub/internal/app/store/sightings"
	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/dalemusser/fieldhub/internal/domain/models"
	"github.com/dalemusser/fieldhub/internal/testutil"
)

func TestStore_Insert_Unique(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := sightingstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	at := time.Date(2024, 6, 1, 6, 30, 0, 0, time.UTC)
	sg := models.Sighting{Observer: "ann", Owner: "Ann", Species: "fox", Date: at, Crds: models.NewPoint(45, -93), Number: 1}
	if _, err := store.Insert(ctx, sg); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	_, err := store.Insert(ctx, sg)
	if !errors.Is(err, sightingstore.ErrDuplicateSighting) || !outcome.Is(err, outcome.KindConflict) {
		t.Fatalf("duplicate: got %v, want conflict", err)
	}

	sg.Species = "owl"
	if _, err := store.Insert(ctx, sg); err != nil {
		t.Errorf("different species should succeed: %v", err)
	}
}

func TestStore_ListIntersecting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := sightingstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	zone := time.FixedZone("CDT", -5*3600)
	in := fixtures.CreateSighting(ctx, "ann", "fox", 45.5, -93.5, time.Date(2024, 6, 1, 23, 15, 0, 0, zone))
	fixtures.CreateSighting(ctx, "bob", "owl", 10, 10, time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC))

	obs, err := store.ListIntersecting(ctx, testutil.Box(45, -94, 46, -93), nil)
	if err != nil {
		t.Fatalf("ListIntersecting failed: %v", err)
	}
	if len(obs) != 1 {
		t.Fatalf("got %d observations, want 1", len(obs))
	}
	if obs[0].Species != "fox" || obs[0].Observer != "ann" {
		t.Errorf("observation: got %+v", obs[0])
	}
	if obs[0].LocalHour() != 23 {
		t.Errorf("local hour: got %d, want 23", obs[0].LocalHour())
	}
	if !obs[0].Date.Equal(in.Date) {
		t.Errorf("date: got %v, want %v", obs[0].Date, in.Date)
	}
}
