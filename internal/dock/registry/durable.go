package registry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// JobRecord is one row in the durable jobs table.
type JobRecord struct {
	JobID     string
	SessionID string
	PID       int
	Command   string
	Provider  string
	OwnerPID  int
	StartedAt time.Time
}

// DurableStore persists tracked jobs to SQLite so a later invocation can
// find processes that outlived their owner.
type DurableStore struct {
	db *sql.DB
}

const jobsSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	job_id     TEXT PRIMARY KEY,
	session_id TEXT NOT NULL DEFAULT '',
	pid        INTEGER NOT NULL,
	command    TEXT NOT NULL DEFAULT '',
	provider   TEXT NOT NULL DEFAULT '',
	owner_pid  INTEGER NOT NULL,
	started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_jobs_owner_pid ON jobs(owner_pid);
`

// OpenDurable opens (creating if needed) the jobs database at path. The
// parent directory is created when missing.
func OpenDurable(path string) (*DurableStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating registry dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening registry db: %w", err)
	}
	if _, err := db.Exec(jobsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating jobs schema: %w", err)
	}
	return &DurableStore{db: db}, nil
}

// OpenDurableInMemory opens an in-memory store, used in tests.
func OpenDurableInMemory() (*DurableStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening registry db: %w", err)
	}
	if _, err := db.Exec(jobsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating jobs schema: %w", err)
	}
	return &DurableStore{db: db}, nil
}

// Save inserts or replaces a job record.
func (s *DurableStore) Save(rec JobRecord) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO jobs (job_id, session_id, pid, command, provider, owner_pid, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		rec.JobID, rec.SessionID, rec.PID, rec.Command, rec.Provider, rec.OwnerPID,
	)
	if err != nil {
		return fmt.Errorf("saving job record: %w", err)
	}
	return nil
}

// Delete removes a job record. Unknown IDs are not an error.
func (s *DurableStore) Delete(jobID string) error {
	if _, err := s.db.Exec(`DELETE FROM jobs WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("deleting job record: %w", err)
	}
	return nil
}

// DeleteByOwner removes every record written by the given owner process.
func (s *DurableStore) DeleteByOwner(ownerPID int) error {
	if _, err := s.db.Exec(`DELETE FROM jobs WHERE owner_pid = ?`, ownerPID); err != nil {
		return fmt.Errorf("deleting job records by owner: %w", err)
	}
	return nil
}

// List returns all job records, oldest first.
func (s *DurableStore) List() ([]JobRecord, error) {
	rows, err := s.db.Query(
		`SELECT job_id, session_id, pid, command, provider, owner_pid, started_at
		 FROM jobs ORDER BY started_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing job records: %w", err)
	}
	defer rows.Close()

	var records []JobRecord
	for rows.Next() {
		var rec JobRecord
		if err := rows.Scan(&rec.JobID, &rec.SessionID, &rec.PID,
			&rec.Command, &rec.Provider, &rec.OwnerPID, &rec.StartedAt); err != nil {
			return nil, fmt.Errorf("scanning job record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating job records: %w", err)
	}
	return records, nil
}

// Close closes the underlying database.
func (s *DurableStore) Close() error {
	return s.db.Close()
}
