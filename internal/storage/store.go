package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// AnalysisCacheEntry represents a cached vision analysis result.
type AnalysisCacheEntry struct {
	Description string
	Tags        []string
	Confidence  float64
	Model       string
	CreatedAt   time.Time
}

// SQLiteStore keeps live-model analyses keyed by a hash of their inputs.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the cache database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Configure SQLite with WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		db:  db,
		now: time.Now,
	}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions once the file exists
	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("dbPath", dbPath).Msg("failed to restrict cache file permissions")
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS analysis_cache (
		input_hash TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		tags TEXT NOT NULL,
		confidence REAL NOT NULL,
		model TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create analysis_cache table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetAnalysis retrieves a cached analysis no older than maxAge.
// Returns nil, nil if no usable entry exists.
func (s *SQLiteStore) GetAnalysis(inputHash string, maxAge time.Duration) (*AnalysisCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entry AnalysisCacheEntry
	var tagsJSON string
	var createdAt int64
	err := s.db.QueryRow(
		"SELECT description, tags, confidence, model, created_at FROM analysis_cache WHERE input_hash = ?",
		inputHash,
	).Scan(&entry.Description, &tagsJSON, &entry.Confidence, &entry.Model, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis cache: %w", err)
	}

	entry.CreatedAt = time.Unix(createdAt, 0)
	if maxAge > 0 && s.now().Sub(entry.CreatedAt) > maxAge {
		return nil, nil
	}

	if err := json.Unmarshal([]byte(tagsJSON), &entry.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached tags: %w", err)
	}

	return &entry, nil
}

// SetAnalysis stores an analysis, replacing any previous entry for the hash.
func (s *SQLiteStore) SetAnalysis(inputHash string, entry *AnalysisCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tags := entry.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO analysis_cache (input_hash, description, tags, confidence, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(input_hash) DO UPDATE SET
			description = excluded.description,
			tags = excluded.tags,
			confidence = excluded.confidence,
			model = excluded.model,
			created_at = excluded.created_at
	`, inputHash, entry.Description, string(tagsJSON), entry.Confidence, entry.Model, s.now().Unix())

	if err != nil {
		return fmt.Errorf("failed to cache analysis: %w", err)
	}
	return nil
}

// PruneAnalyses deletes entries older than maxAge and returns how many were removed.
func (s *SQLiteStore) PruneAnalyses(maxAge time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge).Unix()
	res, err := s.db.Exec("DELETE FROM analysis_cache WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune analysis cache: %w", err)
	}
	return res.RowsAffected()
}
