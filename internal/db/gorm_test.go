package db

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenGormSQLiteCreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "store.db")
	gormDB, err := OpenGorm("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(dbPath)); err != nil {
		t.Fatalf("expected directory to exist: %v", err)
	}
}

func TestOpenGormRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenGorm("oracle", "dsn"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestOpenGormPostgresRequiresDSN(t *testing.T) {
	if _, err := OpenGorm("postgres", ""); err == nil {
		t.Fatal("expected error for missing dsn")
	}
}
