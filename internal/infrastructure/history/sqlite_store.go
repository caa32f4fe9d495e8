// Package history stores the opt-in execution journal.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/askcmd/internal/domain"
	"github.com/doeshing/askcmd/internal/ports"
)

// SQLiteStore persists journal records in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open returns a SQLite-backed journal at path, falling back to a JSONL file
// next to it when the database cannot be opened.
func Open(path string, logger ports.Logger) ports.Journal {
	store, err := NewSQLiteStore(path)
	if err == nil {
		return store
	}
	fallback := strings.TrimSuffix(path, filepath.Ext(path)) + ".jsonl"
	if logger != nil {
		logger.Warn("journal database unavailable, using file store", map[string]interface{}{
			"path":     path,
			"fallback": fallback,
			"error":    err.Error(),
		})
	}
	return NewFileStore(fallback)
}

// NewSQLiteStore creates (or opens) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	store := &SQLiteStore{db: db, path: path}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init journal: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS executions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT,
		session_id TEXT,
		goal TEXT,
		command TEXT,
		outcome TEXT,
		exit_code INTEGER,
		sudo_required INTEGER,
		dangerous INTEGER,
		duration_ms INTEGER
	);`)
	return err
}

// Save inserts a new record.
func (s *SQLiteStore) Save(record domain.JournalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO executions
		(timestamp, session_id, goal, command, outcome, exit_code, sudo_required, dangerous, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Timestamp.UTC().Format(time.RFC3339Nano),
		record.SessionID,
		record.Goal,
		record.Command,
		record.Outcome,
		record.ExitCode,
		boolToInt(record.SudoRequired),
		boolToInt(record.Dangerous),
		record.DurationMS,
	)
	return err
}

// Records returns the newest records first. limit <= 0 returns all; search
// matches the goal or the command.
func (s *SQLiteStore) Records(limit int, search string) ([]domain.JournalRecord, error) {
	builder := strings.Builder{}
	builder.WriteString("SELECT timestamp, session_id, goal, command, outcome, exit_code, sudo_required, dangerous, duration_ms FROM executions")
	var args []interface{}
	if search != "" {
		builder.WriteString(" WHERE goal LIKE ? OR command LIKE ?")
		args = append(args, "%"+search+"%", "%"+search+"%")
	}
	builder.WriteString(" ORDER BY id DESC")
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.JournalRecord
	for rows.Next() {
		var rec domain.JournalRecord
		var ts string
		var sudo, dangerous int
		if err := rows.Scan(&ts, &rec.SessionID, &rec.Goal, &rec.Command, &rec.Outcome, &rec.ExitCode, &sudo, &dangerous, &rec.DurationMS); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.Timestamp = t
		}
		rec.SudoRequired = sudo == 1
		rec.Dangerous = dangerous == 1
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Clear deletes all records.
func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("DELETE FROM executions")
	return err
}

// ExportJSON writes every record to dest as JSON lines.
func (s *SQLiteStore) ExportJSON(dest string) error {
	records, err := s.Records(0, "")
	if err != nil {
		return err
	}
	return writeJSONL(dest, records)
}

// Path returns the database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func writeJSONL(dest string, records []domain.JournalRecord) error {
	file, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, domain.SecureFilePermissions)
	if err != nil {
		return err
	}
	defer file.Close()
	encoder := json.NewEncoder(file)
	for _, rec := range records {
		if err := encoder.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ ports.Journal = (*SQLiteStore)(nil)
