// Package dbtest provides an in-memory SQLite stand-in for the service database.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/suteetoe/tradenet/pkg/database"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open installs a private in-memory SQLite database as the global
// instance, migrates models into it and restores the previous instance
// when the test ends.
func Open(t testing.TB, models ...interface{}) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	previous := database.DB
	database.DB = db
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		database.DB = previous
	})

	if err := database.MigrateModels(models...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}
