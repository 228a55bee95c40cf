package storage

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/cockpit.fusion/internal/telemetry"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSessionLifecycle(t *testing.T) {
	db := newTestDB(t)

	sess := Session{
		SessionID:     "sess-1",
		UserID:        "pilot-7",
		ExerciseID:    "ils-approach",
		StartMicros:   1_700_000_000_000_000,
		RecordingPath: "/var/lib/fusion/recordings/sess-1",
		Metadata:      map[string]string{"aircraft": "c172"},
	}
	if err := db.CreateSession(sess); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Session IDs are unique.
	if err := db.CreateSession(sess); err == nil {
		t.Error("expected error creating duplicate session")
	}

	got, err := db.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if !got.Active() {
		t.Error("expected session to be active before EndSession")
	}
	if got.UserID != "pilot-7" || got.ExerciseID != "ils-approach" {
		t.Errorf("unexpected session fields: %+v", got)
	}
	if diff := cmp.Diff(sess.Metadata, got.Metadata); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}

	if err := db.EndSession("sess-1", sess.StartMicros+60_000_000); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	got, err = db.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession after end failed: %v", err)
	}
	if got.Active() {
		t.Error("expected session to be inactive after EndSession")
	}
	if got.EndMicros == nil || *got.EndMicros != sess.StartMicros+60_000_000 {
		t.Errorf("unexpected end time: %v", got.EndMicros)
	}

	// Ending twice, or ending an unknown session, is an error.
	if err := db.EndSession("sess-1", 1); err == nil {
		t.Error("expected error ending already-ended session")
	}
	if err := db.EndSession("ghost", 1); err == nil {
		t.Error("expected error ending unknown session")
	}
}

func TestGetSessionNotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.GetSession("missing"); err == nil {
		t.Error("expected error for missing session")
	}
}

func seedPoints(t *testing.T, db *DB, sessionID string) {
	t.Helper()
	if err := db.CreateSession(Session{SessionID: sessionID, StartMicros: 1}); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	samples := []struct {
		deviceType telemetry.DeviceType
		sample     telemetry.Sample
	}{
		{telemetry.DeviceTypeHeartRateMonitor, telemetry.Sample{
			DeviceID: "hrm-01", Type: telemetry.DataTypeHeartRate, TimestampMicros: 1000,
			Payload: telemetry.HeartRateData{BPM: 70, Confidence: 0.9},
		}},
		{telemetry.DeviceTypeEyeTracker, telemetry.Sample{
			DeviceID: "eyetracker-01", Type: telemetry.DataTypeGaze, TimestampMicros: 1500,
			Payload: telemetry.GazeData{X: 0.4, Y: 0.5, Z: 0.6, Confidence: 0.95},
		}},
		{telemetry.DeviceTypeHeartRateMonitor, telemetry.Sample{
			DeviceID: "hrm-01", Type: telemetry.DataTypeHeartRate, TimestampMicros: 2000,
			Payload: telemetry.HeartRateData{BPM: 72},
		}},
		{telemetry.DeviceTypeSimulator, telemetry.Sample{
			DeviceID: "sim-01", Type: telemetry.DataTypeSimPosition, TimestampMicros: 2500,
			Payload: telemetry.SimPositionData{X: 100, Y: 200, Z: 1500, Yaw: 270},
		}},
	}
	for _, s := range samples {
		if err := db.InsertPoint(sessionID, s.deviceType, s.sample); err != nil {
			t.Fatalf("InsertPoint failed: %v", err)
		}
	}
}

func TestQueryPoints(t *testing.T) {
	db := newTestDB(t)
	seedPoints(t, db, "sess-q")

	t.Run("all points ordered by time", func(t *testing.T) {
		points, err := db.QueryPoints(Query{SessionID: "sess-q"})
		if err != nil {
			t.Fatalf("QueryPoints failed: %v", err)
		}
		if len(points) != 4 {
			t.Fatalf("expected 4 points, got %d", len(points))
		}
		for i := 1; i < len(points); i++ {
			if points[i].TimestampMicros < points[i-1].TimestampMicros {
				t.Errorf("points out of order at %d", i)
			}
		}
	})

	t.Run("payload round trip", func(t *testing.T) {
		points, err := db.QueryPoints(Query{
			SessionID: "sess-q",
			DataTypes: []telemetry.DataType{telemetry.DataTypeGaze},
		})
		if err != nil {
			t.Fatalf("QueryPoints failed: %v", err)
		}
		if len(points) != 1 {
			t.Fatalf("expected 1 gaze point, got %d", len(points))
		}
		want := telemetry.GazeData{X: 0.4, Y: 0.5, Z: 0.6, Confidence: 0.95}
		if diff := cmp.Diff(want, points[0].Payload); diff != "" {
			t.Errorf("payload mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("filter by device type", func(t *testing.T) {
		points, err := db.QueryPoints(Query{
			SessionID:   "sess-q",
			DeviceTypes: []telemetry.DeviceType{telemetry.DeviceTypeHeartRateMonitor},
		})
		if err != nil {
			t.Fatalf("QueryPoints failed: %v", err)
		}
		if len(points) != 2 {
			t.Fatalf("expected 2 heart-rate points, got %d", len(points))
		}
		for _, p := range points {
			if p.DeviceID != "hrm-01" {
				t.Errorf("unexpected device %s", p.DeviceID)
			}
		}
	})

	t.Run("time bounds", func(t *testing.T) {
		points, err := db.QueryPoints(Query{
			SessionID:   "sess-q",
			StartMicros: 1500,
			EndMicros:   2000,
		})
		if err != nil {
			t.Fatalf("QueryPoints failed: %v", err)
		}
		if len(points) != 2 {
			t.Fatalf("expected 2 points in [1500, 2000], got %d", len(points))
		}
	})

	t.Run("limit", func(t *testing.T) {
		points, err := db.QueryPoints(Query{SessionID: "sess-q", MaxPoints: 3})
		if err != nil {
			t.Fatalf("QueryPoints failed: %v", err)
		}
		if len(points) != 3 {
			t.Fatalf("expected 3 points with limit, got %d", len(points))
		}
		// Earliest points win under a cap.
		if points[0].TimestampMicros != 1000 {
			t.Errorf("expected first point at 1000µs, got %d", points[0].TimestampMicros)
		}
	})

	t.Run("missing session id", func(t *testing.T) {
		if _, err := db.QueryPoints(Query{}); err == nil {
			t.Error("expected error for missing session id")
		}
	})

	t.Run("unknown session yields no points", func(t *testing.T) {
		points, err := db.QueryPoints(Query{SessionID: "ghost"})
		if err != nil {
			t.Fatalf("QueryPoints failed: %v", err)
		}
		if len(points) != 0 {
			t.Errorf("expected no points, got %d", len(points))
		}
	})
}

func TestCountPoints(t *testing.T) {
	db := newTestDB(t)
	seedPoints(t, db, "sess-c")

	n, err := db.CountPoints("sess-c")
	if err != nil {
		t.Fatalf("CountPoints failed: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 points, got %d", n)
	}

	n, err = db.CountPoints("ghost")
	if err != nil {
		t.Fatalf("CountPoints failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 points for unknown session, got %d", n)
	}
}

func TestInsertPointRejectsNilPayload(t *testing.T) {
	db := newTestDB(t)
	if err := db.CreateSession(Session{SessionID: "sess-n", StartMicros: 1}); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	err := db.InsertPoint("sess-n", telemetry.DeviceTypeEyeTracker, telemetry.Sample{
		DeviceID: "eyetracker-01",
		Type:     telemetry.DataTypeGaze,
	})
	if err == nil {
		t.Error("expected error inserting sample without payload")
	}
}
