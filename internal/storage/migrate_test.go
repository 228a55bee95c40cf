package storage

import (
	"path/filepath"
	"testing"

	"github.com/banshee-data/cockpit.fusion/internal/telemetry"
)

const migrationsDir = "../../migrations"

func TestMigrateUp(t *testing.T) {
	db := newTestDB(t)

	if err := db.MigrateUp(migrationsDir); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}

	version, dirty, err := db.MigrateVersion(migrationsDir)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if dirty {
		t.Error("expected clean migration state")
	}
	if version < 2 {
		t.Errorf("expected version >= 2 after MigrateUp, got %d", version)
	}

	// The store stays usable on the migrated schema.
	if err := db.CreateSession(Session{SessionID: "sess-m", StartMicros: 1}); err != nil {
		t.Fatalf("CreateSession after migration failed: %v", err)
	}
	err = db.InsertPoint("sess-m", telemetry.DeviceTypeHeartRateMonitor, telemetry.Sample{
		DeviceID:        "hrm-01",
		Type:            telemetry.DataTypeHeartRate,
		TimestampMicros: 1000,
		Payload:         telemetry.HeartRateData{BPM: 70},
	})
	if err != nil {
		t.Fatalf("InsertPoint after migration failed: %v", err)
	}
}

func TestMigrateUpIdempotent(t *testing.T) {
	db := newTestDB(t)

	if err := db.MigrateUp(migrationsDir); err != nil {
		t.Fatalf("first MigrateUp failed: %v", err)
	}
	// Re-running with no new migrations is a no-op, not an error.
	if err := db.MigrateUp(migrationsDir); err != nil {
		t.Fatalf("second MigrateUp failed: %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "down.db")
	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	defer db.Close()

	if err := db.MigrateUp(migrationsDir); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	if err := db.MigrateDown(migrationsDir); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}
}
