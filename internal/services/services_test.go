package services

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"tally/internal/core"
	applog "tally/internal/log"
	"tally/internal/storage"
)

// newTestRepo opens a fresh migrated SQLite database in a temp dir.
func newTestRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.New(filepath.Join(t.TempDir(), "tally.db"))
	if err != nil {
		t.Fatalf("open test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testLogger() *applog.Logger {
	return applog.New(applog.Config{
		Handler: slog.NewTextHandler(io.Discard, nil),
	})
}

func seedUser(t *testing.T, repo *storage.Repository, username string) int64 {
	t.Helper()
	id, err := repo.CreateUser(context.Background(), core.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         core.RoleUser,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return id
}

// categoryID looks up one of the seeded categories by name.
func categoryID(t *testing.T, repo *storage.Repository, name string) int64 {
	t.Helper()
	categories, err := repo.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	for _, c := range categories {
		if c.Name == name {
			return c.ID
		}
	}
	t.Fatalf("category %q not seeded", name)
	return 0
}
