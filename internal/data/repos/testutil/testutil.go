// Package testutil gives repo and service tests a migrated SQLite store.
package testutil

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/roomchat-backend/internal/data/db"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
)

// Logger only prints warnings and above so failing tests stay readable.
func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := logger.New("test")
	if err != nil {
		tb.Fatalf("logger: %v", err)
	}
	return log
}

// DB is a fresh database file per test, so tests may run in parallel and
// commit without cleanup.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	conn, err := db.OpenSQLite(filepath.Join(tb.TempDir(), "roomchat_test.db"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormLogger.Discard,
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrateAll(conn); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return conn
}
