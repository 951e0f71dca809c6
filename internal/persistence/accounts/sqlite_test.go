package accounts

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "accounts.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_CreateAndFind(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.FindByUsername(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("fresh lookup err = %v, want ErrNotFound", err)
	}

	created, err := s.Create(ctx, Account{Username: "alice", Password: "pw1", Level: 1, SkinID: "starter"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("store did not assign an id")
	}

	got, err := s.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if got.ID != created.ID || got.Password != "pw1" || got.XP != 0 || got.Level != 1 || got.SkinID != "starter" {
		t.Fatalf("account mismatch: %+v", got)
	}
}

func TestStore_CreateDuplicateUsername(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, Account{Username: "bob", Password: "pw2"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create(ctx, Account{Username: "bob", Password: "other"}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("duplicate create err = %v, want ErrUsernameTaken", err)
	}
}

func TestStore_UpdateByID_Partial(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	acc, err := s.Create(ctx, Account{Username: "carol", Password: "pw3", SkinID: "starter"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	xp := int64(842)
	level := 3
	high := int64(37)
	if err := s.UpdateByID(ctx, acc.ID, Progress{XP: &xp, Level: &level, HighScore: &high}); err != nil {
		t.Fatalf("UpdateByID: %v", err)
	}

	got, err := s.FindByUsername(ctx, "carol")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if got.XP != 842 || got.Level != 3 || got.HighScore != 37 {
		t.Fatalf("progression not applied: %+v", got)
	}
	// Untouched fields keep their stored values.
	if got.SkinID != "starter" || got.Password != "pw3" {
		t.Fatalf("partial update clobbered other fields: %+v", got)
	}

	if err := s.UpdateByID(ctx, "missing-id", Progress{XP: &xp}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update of unknown id err = %v, want ErrNotFound", err)
	}
}

func TestStore_SchemaOnDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.Create(context.Background(), Account{Username: "dave", Password: "pw"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	var username string
	var level int
	row := db.QueryRow(`SELECT username,level FROM players WHERE username='dave'`)
	if err := row.Scan(&username, &level); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if username != "dave" || level != 1 {
		t.Fatalf("row mismatch: username=%q level=%d", username, level)
	}
}
