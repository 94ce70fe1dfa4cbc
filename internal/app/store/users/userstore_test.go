package userstore

import (
	"errors"
	"sync"
	"testing"

	"github.com/mthunzitrust/mthunzisite/internal/domain/models"
	"github.com/mthunzitrust/mthunzisite/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestStore_SyncIdentity_Creates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.SyncIdentity(ctx, Identity{
		Email:     " Thandi@Example.org ",
		Name:      "Thandi Banda",
		AvatarURL: "https://example.org/t.png",
		Subject:   "sub-1",
	})
	if err != nil {
		t.Fatalf("SyncIdentity() error = %v", err)
	}
	if u.ID.IsZero() {
		t.Error("SyncIdentity() should assign an ID")
	}
	if u.Email != "thandi@example.org" {
		t.Errorf("Email = %q, want lowercase", u.Email)
	}
	if u.Role != models.RoleUser {
		t.Errorf("Role = %q, want %q", u.Role, models.RoleUser)
	}
	if u.Status != models.StatusActive {
		t.Errorf("Status = %q, want %q", u.Status, models.StatusActive)
	}
	if u.FullNameCI == "" {
		t.Error("FullNameCI should be set")
	}
	if u.LastLoginAt == nil {
		t.Error("LastLoginAt should be set")
	}
	if u.ProviderSubject != "sub-1" {
		t.Errorf("ProviderSubject = %q", u.ProviderSubject)
	}
}

func TestStore_SyncIdentity_KeepsRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first, _ := store.SyncIdentity(ctx, Identity{Email: "a@example.org", Name: "A"})
	if _, _, err := store.SetRole(ctx, first.ID, models.RoleAdmin); err != nil {
		t.Fatalf("SetRole() error = %v", err)
	}

	again, err := store.SyncIdentity(ctx, Identity{Email: "A@EXAMPLE.ORG", Name: "A Renamed"})
	if err != nil {
		t.Fatalf("SyncIdentity() error = %v", err)
	}
	if again.ID != first.ID {
		t.Error("second sync should update the same user")
	}
	if again.Role != models.RoleAdmin {
		t.Errorf("Role = %q, want role kept as %q", again.Role, models.RoleAdmin)
	}
	if again.FullName != "A Renamed" {
		t.Errorf("FullName = %q, want refreshed name", again.FullName)
	}

	n, _ := store.Count(ctx, bson.M{})
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestStore_SyncIdentity_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.SyncIdentity(ctx, Identity{Email: "race@example.org"}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("SyncIdentity() error = %v", err)
	}

	n, _ := store.Count(ctx, bson.M{"email": "race@example.org"})
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestStore_SyncIdentity_NameFallback(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.SyncIdentity(ctx, Identity{Email: "noname@example.org"})
	if err != nil {
		t.Fatalf("SyncIdentity() error = %v", err)
	}
	if u.FullName != "noname" {
		t.Errorf("FullName = %q, want %q", u.FullName, "noname")
	}

	if _, err := store.SyncIdentity(ctx, Identity{Email: "  "}); !errors.Is(err, ErrNoEmail) {
		t.Errorf("SyncIdentity() blank email error = %v, want ErrNoEmail", err)
	}
}

func TestStore_GetByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, _ := store.SyncIdentity(ctx, Identity{Email: "get@example.org", Name: "Get"})

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Email != "get@example.org" {
		t.Errorf("Email = %q", got.Email)
	}

	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() missing error = %v, want ErrNotFound", err)
	}
}

func TestStore_GetByEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, _ = store.SyncIdentity(ctx, Identity{Email: "email@example.org"})

	got, err := store.GetByEmail(ctx, "EMAIL@example.org")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.Email != "email@example.org" {
		t.Errorf("Email = %q", got.Email)
	}
	if _, err := store.GetByEmail(ctx, "nobody@example.org"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByEmail() missing error = %v, want ErrNotFound", err)
	}
}

func TestStore_EnsureRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.EnsureRole(ctx, "director@mthunzitrust.org", "Director", models.RoleSuperAdmin)
	if err != nil {
		t.Fatalf("EnsureRole() error = %v", err)
	}
	if u.Role != models.RoleSuperAdmin || u.FullName != "Director" {
		t.Errorf("EnsureRole() = %+v", u)
	}

	// Existing user keeps its name, gets the role.
	_, _ = store.SyncIdentity(ctx, Identity{Email: "staff@example.org", Name: "Staff"})
	u, err = store.EnsureRole(ctx, "staff@example.org", "Ignored", models.RoleAdmin)
	if err != nil {
		t.Fatalf("EnsureRole() error = %v", err)
	}
	if u.Role != models.RoleAdmin || u.FullName != "Staff" {
		t.Errorf("EnsureRole() existing = %+v", u)
	}

	if _, err := store.EnsureRole(ctx, "x@example.org", "", "owner"); !errors.Is(err, ErrBadRole) {
		t.Errorf("EnsureRole() bad role error = %v", err)
	}
}

func TestStore_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	empty, err := store.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("List() on empty collection = %v, want empty non-nil slice", empty)
	}

	_, _ = store.SyncIdentity(ctx, Identity{Email: "zed@example.org", Name: "Zed"})
	b, _ := store.SyncIdentity(ctx, Identity{Email: "bongani@example.org", Name: "Bongani"})
	_, _ = store.SyncIdentity(ctx, Identity{Email: "amara@example.org", Name: "amara"})
	_, _, _ = store.SetRole(ctx, b.ID, models.RoleAdmin)

	all, _ := store.List(ctx, ListFilter{})
	if len(all) != 3 {
		t.Fatalf("List() len = %d, want 3", len(all))
	}
	if all[0].FullName != "amara" || all[1].FullName != "Bongani" || all[2].FullName != "Zed" {
		t.Errorf("List() order = %s, %s, %s", all[0].FullName, all[1].FullName, all[2].FullName)
	}

	admins, _ := store.List(ctx, ListFilter{Role: "ADMIN"})
	if len(admins) != 1 || admins[0].ID != b.ID {
		t.Errorf("List(role=admin) = %v", admins)
	}

	found, _ := store.List(ctx, ListFilter{Search: "bon"})
	if len(found) != 1 {
		t.Errorf("List(search=bon) len = %d, want 1", len(found))
	}
	byEmail, _ := store.List(ctx, ListFilter{Search: "zed@"})
	if len(byEmail) != 1 {
		t.Errorf("List(search=zed@) len = %d, want 1", len(byEmail))
	}
}

func TestStore_SetRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, _ := store.SyncIdentity(ctx, Identity{Email: "role@example.org"})

	updated, old, err := store.SetRole(ctx, u.ID, " Editor ")
	if err != nil {
		t.Fatalf("SetRole() error = %v", err)
	}
	if old != models.RoleUser {
		t.Errorf("old role = %q, want %q", old, models.RoleUser)
	}
	if updated.Role != models.RoleEditor {
		t.Errorf("new role = %q, want %q", updated.Role, models.RoleEditor)
	}

	stored, _ := store.GetByID(ctx, u.ID)
	if stored.Role != models.RoleEditor {
		t.Errorf("stored role = %q", stored.Role)
	}

	if _, _, err := store.SetRole(ctx, u.ID, "owner"); !errors.Is(err, ErrBadRole) {
		t.Errorf("SetRole() bad role error = %v", err)
	}
	if _, _, err := store.SetRole(ctx, primitive.NewObjectID(), models.RoleAdmin); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetRole() missing user error = %v", err)
	}
}

func TestStore_SetStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, _ := store.SyncIdentity(ctx, Identity{Email: "status@example.org"})

	updated, old, err := store.SetStatus(ctx, u.ID, models.StatusDisabled)
	if err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if old != models.StatusActive || updated.Status != models.StatusDisabled {
		t.Errorf("SetStatus() old=%q new=%q", old, updated.Status)
	}
	if _, _, err := store.SetStatus(ctx, u.ID, "paused"); !errors.Is(err, ErrBadStatus) {
		t.Errorf("SetStatus() bad status error = %v", err)
	}
}

func TestFetcher_FetchUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	fetcher := NewFetcher(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, _ := store.SyncIdentity(ctx, Identity{
		Email:     "fetch@example.org",
		Name:      "Fetch User",
		AvatarURL: "https://example.org/f.png",
	})
	_, _, _ = store.SetRole(ctx, created.ID, models.RoleAdmin)

	su := fetcher.FetchUser(ctx, created.ID.Hex())
	if su == nil {
		t.Fatal("FetchUser() returned nil for existing user")
	}
	if su.ID != created.ID.Hex() {
		t.Errorf("ID = %q, want %q", su.ID, created.ID.Hex())
	}
	if su.Name != "Fetch User" || su.Email != "fetch@example.org" {
		t.Errorf("FetchUser() = %+v", su)
	}
	if su.Role != models.RoleAdmin {
		t.Errorf("Role = %q, want fresh role %q", su.Role, models.RoleAdmin)
	}
	if su.AvatarURL != "https://example.org/f.png" {
		t.Errorf("AvatarURL = %q", su.AvatarURL)
	}
}

func TestFetcher_FetchUser_InvalidID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fetcher := NewFetcher(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if su := fetcher.FetchUser(ctx, "invalid-id"); su != nil {
		t.Error("FetchUser() invalid ID should return nil")
	}
}

func TestFetcher_FetchUser_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fetcher := NewFetcher(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if su := fetcher.FetchUser(ctx, primitive.NewObjectID().Hex()); su != nil {
		t.Error("FetchUser() non-existent user should return nil")
	}
}

func TestFetcher_FetchUser_Disabled(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	fetcher := NewFetcher(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, _ := store.SyncIdentity(ctx, Identity{Email: "disabled@example.org"})
	_, _, _ = store.SetStatus(ctx, created.ID, models.StatusDisabled)

	if su := fetcher.FetchUser(ctx, created.ID.Hex()); su != nil {
		t.Error("FetchUser() disabled user should return nil")
	}
}
