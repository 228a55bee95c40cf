// Package storage persists recorded telemetry sessions to SQLite and
// serves the historical queries over them.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/cockpit.fusion/internal/telemetry"
)

type DB struct {
	*sql.DB
}

// NewDB opens (creating if necessary) the session store at path. The
// base schema is applied inline; versioned changes on top of it go
// through the migrations in internal/storage/migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite allows one writer; recording inserts and historical reads
	// share this handle.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id        TEXT PRIMARY KEY,
			user_id           TEXT,
			exercise_id       TEXT,
			start_us          BIGINT NOT NULL,
			end_us            BIGINT,
			recording_path    TEXT,
			metadata          TEXT,
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS data_points (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id        TEXT NOT NULL,
			device_id         TEXT NOT NULL,
			device_type       INTEGER NOT NULL,
			data_type         INTEGER NOT NULL,
			timestamp_us      BIGINT NOT NULL,
			payload           TEXT NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);
		CREATE INDEX IF NOT EXISTS idx_data_points_session_time
			ON data_points(session_id, timestamp_us);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// Session is one recorded capture window.
type Session struct {
	SessionID     string
	UserID        string
	ExerciseID    string
	StartMicros   int64
	EndMicros     *int64 // nil while the recording is active
	RecordingPath string
	Metadata      map[string]string
}

// Active reports whether the session is still recording.
func (s Session) Active() bool { return s.EndMicros == nil }

// CreateSession inserts a new session row. Fails if the session ID is
// already in use.
func (db *DB) CreateSession(s Session) error {
	meta := "{}"
	if len(s.Metadata) > 0 {
		raw, err := json.Marshal(s.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode session metadata: %w", err)
		}
		meta = string(raw)
	}
	_, err := db.Exec(
		`INSERT INTO sessions (session_id, user_id, exercise_id, start_us, recording_path, metadata)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.SessionID, s.UserID, s.ExerciseID, s.StartMicros, s.RecordingPath, meta,
	)
	if err != nil {
		return fmt.Errorf("failed to create session %s: %w", s.SessionID, err)
	}
	return nil
}

// EndSession stamps the end time of an active session.
func (db *DB) EndSession(sessionID string, endMicros int64) error {
	res, err := db.Exec(
		`UPDATE sessions SET end_us = ? WHERE session_id = ? AND end_us IS NULL`,
		endMicros, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to end session %s: %w", sessionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s is not active", sessionID)
	}
	return nil
}

// GetSession fetches one session row.
func (db *DB) GetSession(sessionID string) (Session, error) {
	var s Session
	var endUs sql.NullInt64
	var meta string
	err := db.QueryRow(
		`SELECT session_id, user_id, exercise_id, start_us, end_us, recording_path, metadata
		 FROM sessions WHERE session_id = ?`,
		sessionID,
	).Scan(&s.SessionID, &s.UserID, &s.ExerciseID, &s.StartMicros, &endUs, &s.RecordingPath, &meta)
	if err != nil {
		return Session{}, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	if endUs.Valid {
		v := endUs.Int64
		s.EndMicros = &v
	}
	if meta != "" && meta != "{}" {
		if err := json.Unmarshal([]byte(meta), &s.Metadata); err != nil {
			return Session{}, fmt.Errorf("failed to decode session metadata: %w", err)
		}
	}
	return s, nil
}

// Point is one stored observation, tagged with the device type the
// catalogue reported at capture time.
type Point struct {
	DeviceID        string
	DeviceType      telemetry.DeviceType
	DataType        telemetry.DataType
	TimestampMicros int64
	Payload         telemetry.Payload
}

// InsertPoint stores one raw sample under a session.
func (db *DB) InsertPoint(sessionID string, deviceType telemetry.DeviceType, sample telemetry.Sample) error {
	raw, err := encodePayload(sample.Payload)
	if err != nil {
		return err
	}
	_, err = db.Exec(
		`INSERT INTO data_points (session_id, device_id, device_type, data_type, timestamp_us, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, sample.DeviceID, int(deviceType), int(sample.Type), sample.TimestampMicros, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to insert data point: %w", err)
	}
	return nil
}

// Query bounds a historical read. Zero time bounds are unbounded on
// that side; MaxPoints <= 0 means no cap.
type Query struct {
	SessionID   string
	DeviceTypes []telemetry.DeviceType
	DataTypes   []telemetry.DataType
	StartMicros int64
	EndMicros   int64
	MaxPoints   int
}

// QueryPoints returns matching points ordered by timestamp.
func (db *DB) QueryPoints(q Query) ([]Point, error) {
	if q.SessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}

	var sb strings.Builder
	sb.WriteString(`SELECT device_id, device_type, data_type, timestamp_us, payload
		FROM data_points WHERE session_id = ?`)
	args := []interface{}{q.SessionID}

	if len(q.DeviceTypes) > 0 {
		sb.WriteString(" AND device_type IN (" + placeholders(len(q.DeviceTypes)) + ")")
		for _, dt := range q.DeviceTypes {
			args = append(args, int(dt))
		}
	}
	if len(q.DataTypes) > 0 {
		sb.WriteString(" AND data_type IN (" + placeholders(len(q.DataTypes)) + ")")
		for _, dt := range q.DataTypes {
			args = append(args, int(dt))
		}
	}
	if q.StartMicros != 0 {
		sb.WriteString(" AND timestamp_us >= ?")
		args = append(args, q.StartMicros)
	}
	if q.EndMicros != 0 {
		sb.WriteString(" AND timestamp_us <= ?")
		args = append(args, q.EndMicros)
	}
	sb.WriteString(" ORDER BY timestamp_us")
	if q.MaxPoints > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.MaxPoints)
	}

	rows, err := db.DB.Query(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("historical query failed: %w", err)
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var p Point
		var deviceType, dataType int
		var raw string
		if err := rows.Scan(&p.DeviceID, &deviceType, &dataType, &p.TimestampMicros, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan data point: %w", err)
		}
		p.DeviceType = telemetry.DeviceType(deviceType)
		p.DataType = telemetry.DataType(dataType)
		p.Payload, err = decodePayload(p.DataType, raw)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// CountPoints returns the number of stored points for a session.
func (db *DB) CountPoints(sessionID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM data_points WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count data points: %w", err)
	}
	return n, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
