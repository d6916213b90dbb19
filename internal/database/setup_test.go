package database

import (
	"testing"
	"visionary-backend/internal/models"
)

func TestSetupSqliteCreatesTables(t *testing.T) {
	db, err := Setup(&models.ConfigFile{SelfContained: true, SqlitePath: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM kv_store").Scan(&count)
	if err != nil {
		t.Fatalf("kv_store should exist: %v", err)
	}
	if count != 0 {
		t.Errorf("fresh kv_store has %d rows, want 0", count)
	}
}

func TestSetupTablesIsRepeatable(t *testing.T) {
	db, err := Setup(&models.ConfigFile{SelfContained: true, SqlitePath: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := setupTables(db); err != nil {
		t.Errorf("second setupTables failed: %v", err)
	}
}
