package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one recorded attempt.
type Entry struct {
	Chapter         int
	Attempt         int
	Status          string
	Reason          string
	EstimatedTokens int
	At              time.Time
}

// Log is an append-only attempt log backed by SQLite.
type Log struct {
	db *sql.DB
}

// Open creates or opens the attempt log at path.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chapter INTEGER NOT NULL,
		attempt INTEGER NOT NULL,
		status TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		estimated_tokens INTEGER NOT NULL DEFAULT 0,
		at TIMESTAMP NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &Log{db: db}, nil
}

// Record appends one attempt entry.
func (l *Log) Record(e Entry) error {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := l.db.Exec(
		`INSERT INTO attempts (chapter, attempt, status, reason, estimated_tokens, at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Chapter, e.Attempt, e.Status, e.Reason, e.EstimatedTokens, at,
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// ChapterFailures returns how often each chapter has failed validation or
// errored, most recent runs included.
func (l *Log) ChapterFailures() (map[int]int, error) {
	rows, err := l.db.Query(
		`SELECT chapter, COUNT(*) FROM attempts WHERE status != 'accepted' GROUP BY chapter`)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	failures := make(map[int]int)
	for rows.Next() {
		var chapter, count int
		if err := rows.Scan(&chapter, &count); err != nil {
			return nil, err
		}
		failures[chapter] = count
	}
	return failures, rows.Err()
}

// Close releases the database handle.
func (l *Log) Close() error {
	return l.db.Close()
}
