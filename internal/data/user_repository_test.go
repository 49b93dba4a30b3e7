//go:build integration

package data

import (
	"context"
	"errors"
	"go-ws-relay/internal/config"
	"testing"
)

// setupUserTest opens an in-memory SQLite database with the users table.
func setupUserTest(t *testing.T) (*SQLUserRepository, func()) {
	t.Helper()

	db, err := NewDB(config.DBConfig{Driver: "sqlite3", DSN: "file::memory:"})
	if err != nil {
		t.Fatalf("Failed to connect to sqlite test database: %v", err)
	}
	// Every pooled connection would get its own in-memory database.
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		subject TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		auth_hash TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`
	db.MustExec(schema)

	teardown := func() {
		db.Close()
	}
	return NewSQLUserRepository(db), teardown
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo, teardown := setupUserTest(t)
	defer teardown()
	ctx := context.Background()

	user := &User{Subject: "alice", DisplayName: "Alice", AuthHash: "h1", IsActive: true}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() returned error: %v", err)
	}
	if user.ID == 0 {
		t.Error("expected non-zero id")
	}

	got, err := repo.FindBySubject(ctx, "alice")
	if err != nil {
		t.Fatalf("FindBySubject() returned error: %v", err)
	}
	if got.DisplayName != "Alice" || got.AuthHash != "h1" || !got.IsActive {
		t.Errorf("unexpected user: %+v", got)
	}
}

func TestUserRepository_FindMissing(t *testing.T) {
	repo, teardown := setupUserTest(t)
	defer teardown()

	_, err := repo.FindBySubject(context.Background(), "nobody")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("want ErrUserNotFound; got %v", err)
	}
}

func TestUserRepository_SetActive(t *testing.T) {
	repo, teardown := setupUserTest(t)
	defer teardown()
	ctx := context.Background()

	if err := repo.CreateUser(ctx, &User{Subject: "bob", IsActive: true}); err != nil {
		t.Fatalf("CreateUser() returned error: %v", err)
	}
	if err := repo.SetActive(ctx, "bob", false); err != nil {
		t.Fatalf("SetActive() returned error: %v", err)
	}

	got, err := repo.FindBySubject(ctx, "bob")
	if err != nil {
		t.Fatalf("FindBySubject() returned error: %v", err)
	}
	if got.IsActive {
		t.Error("expected user to be inactive")
	}

	if err := repo.SetActive(ctx, "nobody", true); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("want ErrUserNotFound; got %v", err)
	}
}
