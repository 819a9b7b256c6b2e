package communitystore_test

import (
	"errors"
	"testing"

	communitystore "github.com/dalemusser/fieldhub/internal/app/store/communities"
	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/dalemusser/fieldhub/internal/domain/models"
	"github.com/dalemusser/fieldhub/internal/testutil"
)

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := communitystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, models.Community{
		Code:        "ABC123",
		Owner:       "Alice",
		Name:        "North Woods",
		Description: "Trail cameras",
		ImageURL:    "https://img.example.com/n.png",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.GetByCode(ctx, "ABC123")
	if err != nil {
		t.Fatalf("GetByCode failed: %v", err)
	}
	if got.Name != "North Woods" || got.NameCI != "north woods" || got.Owner != "Alice" {
		t.Errorf("community: got %+v", got)
	}
}

func TestStore_Create_DuplicateCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := communitystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := models.Community{Code: "ABC123", Name: "One"}
	if _, err := store.Create(ctx, c); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	c.Name = "Two"
	_, err := store.Create(ctx, c)
	if !errors.Is(err, communitystore.ErrDuplicateCode) || !outcome.Is(err, outcome.KindConflict) {
		t.Errorf("duplicate: got %v, want conflict wrapping ErrDuplicateCode", err)
	}
}

func TestStore_CodeExistsAndMissing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := communitystore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateCommunity(ctx, "AAA", "A", "Alice")
	fixtures.CreateCommunity(ctx, "BBB", "B", "Bob")

	ok, err := store.CodeExists(ctx, "AAA")
	if err != nil || !ok {
		t.Errorf("CodeExists(AAA): got (%v, %v)", ok, err)
	}
	ok, err = store.CodeExists(ctx, "ZZZ")
	if err != nil || ok {
		t.Errorf("CodeExists(ZZZ): got (%v, %v)", ok, err)
	}

	missing, err := store.MissingCodes(ctx, []string{"AAA", "ZZZ", "BBB", "YYY", "ZZZ"})
	if err != nil {
		t.Fatalf("MissingCodes: %v", err)
	}
	if len(missing) != 2 || missing[0] != "ZZZ" || missing[1] != "YYY" {
		t.Errorf("missing: got %v, want [ZZZ YYY]", missing)
	}
}

func TestStore_GetByCode_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := communitystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.GetByCode(ctx, "NOPE"); !outcome.Is(err, outcome.KindNotFound) {
		t.Errorf("GetByCode: got %v, want not found", err)
	}
}
