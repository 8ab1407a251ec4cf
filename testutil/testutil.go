package testutil

import (
	"os"
	"testing"

	"github.com/hearthline-bakery/hearthline-api/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// OpenTestDB opens an isolated in-memory database with the full schema
// migrated. Each call returns a fresh database, so tests never share state.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// RequireTestEnvironment fails the test unless GO_ENV is set to "test".
// Use this in tests that read DATABASE_URL or other ambient configuration,
// to prevent accidental runs against a development database.
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	if env := os.Getenv("GO_ENV"); env != "test" {
		t.Fatalf("Tests touching ambient configuration must run with GO_ENV=test (current: %q)", env)
	}
}
