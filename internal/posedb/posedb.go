// Package posedb persists pose sessions, raw landmark frames, computed joint
// angles and validation results in sqlite. The engine itself never touches
// this package; the API layer writes through it after each frame.
package posedb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ptpal-data/ptpal/internal/pose"
)

type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the pose database at path and ensures the schema
// exists. The inline schema matches migration 000001; MigrateUp applies
// anything newer.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Single writer; WAL keeps readers unblocked during frame ingest.
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;`); err != nil {
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id        TEXT PRIMARY KEY,
			started_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS pose_data (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id        TEXT NOT NULL,
			timestamp         TEXT NOT NULL,
			landmarks         TEXT NOT NULL,
			world_landmarks   TEXT,
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS angle_data (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id        TEXT NOT NULL,
			timestamp         TEXT NOT NULL,
			shoulder_left     REAL,
			shoulder_right    REAL,
			elbow_left        REAL,
			elbow_right       REAL,
			hip_left          REAL,
			hip_right         REAL,
			knee_left         REAL,
			knee_right        REAL,
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS validations (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id        TEXT NOT NULL,
			timestamp         TEXT NOT NULL,
			pose              TEXT NOT NULL,
			score             INTEGER NOT NULL,
			pass              INTEGER NOT NULL,
			feedback          TEXT NOT NULL,
			metrics           TEXT NOT NULL,
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_angle_data_session ON angle_data(session_id, timestamp);
		CREATE INDEX IF NOT EXISTS idx_pose_data_session ON pose_data(session_id, timestamp);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// CreateSession records a new session id.
func (db *DB) CreateSession(sessionID string) error {
	_, err := db.Exec("INSERT OR IGNORE INTO sessions (session_id) VALUES (?)", sessionID)
	return err
}

// RecordPoseFrame stores the raw landmark JSON for one frame.
func (db *DB) RecordPoseFrame(sessionID, timestamp string, landmarks, worldLandmarks []pose.Landmark) error {
	lm, err := json.Marshal(landmarks)
	if err != nil {
		return fmt.Errorf("failed to marshal landmarks: %w", err)
	}
	var world any
	if worldLandmarks != nil {
		w, err := json.Marshal(worldLandmarks)
		if err != nil {
			return fmt.Errorf("failed to marshal world landmarks: %w", err)
		}
		world = string(w)
	}
	_, err = db.Exec(
		"INSERT INTO pose_data (session_id, timestamp, landmarks, world_landmarks) VALUES (?, ?, ?, ?)",
		sessionID, timestamp, string(lm), world)
	return err
}

// AngleRecord is one frame's worth of joint angles. Undefined angles are
// stored as NULL and come back as nil.
type AngleRecord struct {
	Timestamp     string   `json:"timestamp"`
	ShoulderLeft  *float64 `json:"shoulder_left"`
	ShoulderRight *float64 `json:"shoulder_right"`
	ElbowLeft     *float64 `json:"elbow_left"`
	ElbowRight    *float64 `json:"elbow_right"`
	HipLeft       *float64 `json:"hip_left"`
	HipRight      *float64 `json:"hip_right"`
	KneeLeft      *float64 `json:"knee_left"`
	KneeRight     *float64 `json:"knee_right"`
}

// angleColumns fixes the column order shared by the insert and the scans.
const angleColumns = "shoulder_left, shoulder_right, elbow_left, elbow_right, hip_left, hip_right, knee_left, knee_right"

// RecordAngles stores the standard joint set for one frame. Angles absent
// from the map or undefined are stored as NULL, never as zero.
func (db *DB) RecordAngles(sessionID, timestamp string, angles map[string]float64) error {
	val := func(name string) any {
		v, ok := angles[name]
		if !ok || !pose.IsDefined(v) {
			return nil
		}
		return v
	}
	_, err := db.Exec(
		"INSERT INTO angle_data (session_id, timestamp, "+angleColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		sessionID, timestamp,
		val("shoulder_left"), val("shoulder_right"),
		val("elbow_left"), val("elbow_right"),
		val("hip_left"), val("hip_right"),
		val("knee_left"), val("knee_right"))
	return err
}

// RecordValidation stores one validation result.
func (db *DB) RecordValidation(sessionID, timestamp string, res pose.ValidationResult) error {
	feedback, err := json.Marshal(res.Feedback)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}
	metrics, err := json.Marshal(res.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	passInt := 0
	if res.Pass {
		passInt = 1
	}
	_, err = db.Exec(
		"INSERT INTO validations (session_id, timestamp, pose, score, pass, feedback, metrics) VALUES (?, ?, ?, ?, ?, ?, ?)",
		sessionID, timestamp, res.Pose, res.Score, passInt, string(feedback), string(metrics))
	return err
}

// AnglesForSession returns the stored joint angles for a session, newest
// first.
func (db *DB) AnglesForSession(sessionID string) ([]AngleRecord, error) {
	return db.queryAngles(
		"SELECT timestamp, "+angleColumns+" FROM angle_data WHERE session_id = ? ORDER BY timestamp DESC", sessionID)
}

// ExportSession returns the stored joint angles for a session in recording
// order, oldest first, for downstream analysis.
func (db *DB) ExportSession(sessionID string) ([]AngleRecord, error) {
	return db.queryAngles(
		"SELECT timestamp, "+angleColumns+" FROM angle_data WHERE session_id = ? ORDER BY timestamp ASC", sessionID)
}

// RecentAngles returns the most recent angle records across all sessions.
func (db *DB) RecentAngles(limit int) ([]AngleRecord, error) {
	return db.queryAngles(
		"SELECT timestamp, "+angleColumns+" FROM angle_data ORDER BY created_at DESC LIMIT ?", limit)
}

func (db *DB) queryAngles(query string, args ...any) ([]AngleRecord, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []AngleRecord
	for rows.Next() {
		var r AngleRecord
		if err := rows.Scan(&r.Timestamp,
			&r.ShoulderLeft, &r.ShoulderRight,
			&r.ElbowLeft, &r.ElbowRight,
			&r.HipLeft, &r.HipRight,
			&r.KneeLeft, &r.KneeRight); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// CurrentSession returns the session id with the most recent angle record,
// or "" when the database is empty.
func (db *DB) CurrentSession() (string, error) {
	var id string
	err := db.QueryRow(
		"SELECT session_id FROM angle_data ORDER BY created_at DESC LIMIT 1").Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

// SessionCount returns the number of distinct sessions with angle data.
func (db *DB) SessionCount() (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(DISTINCT session_id) FROM angle_data").Scan(&n)
	return n, err
}

// AngleCountForSession returns the number of angle records for a session.
func (db *DB) AngleCountForSession(sessionID string) (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM angle_data WHERE session_id = ?", sessionID).Scan(&n)
	return n, err
}

// Timestamp formats t the way the ingest endpoints expect: RFC3339 with
// millisecond precision, UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
