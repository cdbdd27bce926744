// Package databasetest opens throwaway databases for tests.
package databasetest

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/ManuelReschke/insights/internal/pkg/config"
	"github.com/ManuelReschke/insights/internal/pkg/database"
)

// OpenTestDB returns a migrated SQLite database in a per-test directory.
func OpenTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.SetupDatabase(config.Database{
		Driver: config.DBDriverSQLite,
		Path:   filepath.Join(t.TempDir(), "insights_test.db"),
	}, false)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	return db
}
