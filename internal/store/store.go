// Package store persists scored roster snapshots and learned intent patterns
// in a local SQLite database.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"credlens/internal/dq"
	"credlens/internal/logging"
)

// Store wraps the SQLite database holding snapshots and learned patterns.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Open initializes the database at the given path, creating the directory
// and schema as needed.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	if path == "" {
		return nil, fmt.Errorf("database path required")
	}
	logging.Store("Opening store at: %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to create directory %s: %v", dir, err)
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	// synchronous=NORMAL is safe under WAL and much faster than FULL.
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		logging.Get(logging.CategoryStore).Error("Failed to initialize schema: %v", err)
		return nil, err
	}

	logging.Store("Store initialized")
	return s, nil
}

// initialize creates the required tables.
func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		roster_file TEXT NOT NULL,
		total_providers INTEGER NOT NULL,
		score REAL NOT NULL,
		expired_licenses INTEGER NOT NULL,
		missing_npi INTEGER NOT NULL,
		phone_issues INTEGER NOT NULL,
		duplicates INTEGER NOT NULL,
		state_mismatches INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at);

	CREATE TABLE IF NOT EXISTS learned_patterns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		phrase TEXT NOT NULL UNIQUE,
		intent TEXT NOT NULL,
		confidence REAL DEFAULT 1.0,
		embedding BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_learned_intent ON learned_patterns(intent);
	CREATE INDEX IF NOT EXISTS idx_learned_confidence ON learned_patterns(confidence);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logging.Get(logging.CategoryStore).Error("Failed to close database: %v", err)
			return err
		}
		s.db = nil
	}
	return nil
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// Snapshot is one persisted scoring run.
type Snapshot struct {
	ID              string    `json:"id"`
	RosterFile      string    `json:"roster_file"`
	TotalProviders  int       `json:"total_providers"`
	Score           float64   `json:"score"`
	ExpiredLicenses int       `json:"expired_licenses"`
	MissingNPI      int       `json:"missing_npi"`
	PhoneIssues     int       `json:"phone_issues"`
	Duplicates      int       `json:"duplicates"`
	StateMismatches int       `json:"state_mismatches"`
	CreatedAt       time.Time `json:"created_at"`
}

// SaveSnapshot records the outcome of a scoring run and returns its id.
func (s *Store) SaveSnapshot(ctx context.Context, rosterFile string, stats dq.Stats) (string, error) {
	timer := logging.StartTimer(logging.CategoryStore, "SaveSnapshot")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (
			id, roster_file, total_providers, score,
			expired_licenses, missing_npi, phone_issues, duplicates, state_mismatches
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, rosterFile, stats.TotalProviders, stats.Score,
		stats.ExpiredLicenses.Count, stats.MissingNPI.Count,
		stats.PhoneIssues.Count, stats.Duplicates.Count, stats.StateMismatches.Count)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to save snapshot: %v", err)
		return "", fmt.Errorf("failed to save snapshot: %w", err)
	}

	logging.Store("Snapshot saved: id=%s score=%.1f providers=%d", id, stats.Score, stats.TotalProviders)
	return id, nil
}

// History returns the most recent snapshots, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]Snapshot, error) {
	timer := logging.StartTimer(logging.CategoryStore, "History")
	defer timer.Stop()

	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, roster_file, total_providers, score,
		       expired_licenses, missing_npi, phone_issues, duplicates, state_mismatches,
		       created_at
		FROM snapshots
		ORDER BY created_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(
			&snap.ID, &snap.RosterFile, &snap.TotalProviders, &snap.Score,
			&snap.ExpiredLicenses, &snap.MissingNPI, &snap.PhoneIssues,
			&snap.Duplicates, &snap.StateMismatches, &snap.CreatedAt,
		); err != nil {
			logging.Get(logging.CategoryStore).Warn("Failed to scan snapshot row: %v", err)
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// =============================================================================
// LEARNED INTENT PATTERNS
// =============================================================================

// LearnedPattern is one phrase-to-intent mapping learned at runtime.
type LearnedPattern struct {
	ID         int64
	Phrase     string
	Intent     string
	Confidence float64
	Embedding  []float32
	CreatedAt  time.Time
}

// AddPattern stores a learned phrase with its embedding. Re-adding an
// existing phrase reinforces it: confidence rises by 0.1 capped at 1.0.
func (s *Store) AddPattern(ctx context.Context, phrase, intent string, vec []float32, confidence float64) error {
	timer := logging.StartTimer(logging.CategoryStore, "AddPattern")
	defer timer.Stop()

	if phrase == "" {
		return fmt.Errorf("phrase required")
	}
	if intent == "" {
		return fmt.Errorf("intent required")
	}
	if len(vec) == 0 {
		return fmt.Errorf("embedding required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blob := encodeFloat32Blob(vec)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO learned_patterns (phrase, intent, confidence, embedding, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(phrase) DO UPDATE SET
			intent = excluded.intent,
			confidence = MIN(1.0, confidence + 0.1),
			embedding = excluded.embedding,
			updated_at = CURRENT_TIMESTAMP
	`, phrase, intent, confidence, blob)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to insert learned pattern: %v", err)
		return fmt.Errorf("failed to insert pattern: %w", err)
	}

	logging.Store("Learned pattern stored: intent=%s phrase=%q", intent, phrase)
	return nil
}

// Patterns returns all learned patterns above the confidence floor with
// their embeddings decoded, strongest first.
func (s *Store) Patterns(ctx context.Context) ([]LearnedPattern, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Patterns")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, phrase, intent, confidence, embedding, created_at
		FROM learned_patterns
		WHERE confidence > 0.3
		ORDER BY confidence DESC, created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer rows.Close()

	var patterns []LearnedPattern
	for rows.Next() {
		var p LearnedPattern
		var blob []byte
		if err := rows.Scan(&p.ID, &p.Phrase, &p.Intent, &p.Confidence, &blob, &p.CreatedAt); err != nil {
			logging.Get(logging.CategoryStore).Warn("Failed to scan pattern row: %v", err)
			continue
		}
		p.Embedding = decodeFloat32Blob(blob)
		if p.Embedding == nil {
			continue
		}
		patterns = append(patterns, p)
	}

	logging.StoreDebug("Loaded %d learned patterns", len(patterns))
	return patterns, rows.Err()
}

// DecayConfidence reduces confidence on stale patterns and prunes those that
// have faded below 0.1. Returns the number of decayed patterns.
func (s *Store) DecayConfidence(ctx context.Context, factor float64, olderThanDays int) (int, error) {
	timer := logging.StartTimer(logging.CategoryStore, "DecayConfidence")
	defer timer.Stop()

	if factor <= 0 || factor >= 1 {
		factor = 0.9
	}
	if olderThanDays <= 0 {
		olderThanDays = 7
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE learned_patterns
		SET confidence = confidence * ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE datetime(updated_at) < datetime('now', '-' || ? || ' days')
	`, factor, olderThanDays)
	if err != nil {
		return 0, fmt.Errorf("failed to decay confidence: %w", err)
	}
	decayed, _ := result.RowsAffected()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM learned_patterns WHERE confidence < 0.1`); err != nil {
		logging.Get(logging.CategoryStore).Warn("Failed to prune low-confidence patterns: %v", err)
	}

	return int(decayed), nil
}

// DeletePattern removes a learned phrase.
func (s *Store) DeletePattern(ctx context.Context, phrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM learned_patterns WHERE phrase = ?", phrase); err != nil {
		return fmt.Errorf("failed to delete pattern: %w", err)
	}
	return nil
}

// =============================================================================
// EMBEDDING BLOB CODEC
// =============================================================================

// encodeFloat32Blob packs a vector as little-endian float32 bytes.
func encodeFloat32Blob(vec []float32) []byte {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		return nil
	}
	return buf.Bytes()
}

// decodeFloat32Blob unpacks a blob written by encodeFloat32Blob.
func decodeFloat32Blob(blob []byte) []float32 {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(blob)/4)
	if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, &vec); err != nil {
		return nil
	}
	return vec
}
