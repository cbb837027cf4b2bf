package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SqliteSaver is a SQLite-based checkpoint saver.
type SqliteSaver struct {
	db *sql.DB
	// SQLite serializes writers at the file level, but sequence assignment
	// spans a read and an insert, so same-process puts are serialized here.
	mu sync.Mutex
}

// NewSqliteSaver creates a new SQLite checkpoint saver. Use ":memory:" for
// an ephemeral database.
func NewSqliteSaver(dbPath string) (*SqliteSaver, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	saver := &SqliteSaver{db: db}
	if err := saver.setup(); err != nil {
		db.Close()
		return nil, err
	}

	return saver, nil
}

// setup creates the necessary tables.
func (s *SqliteSaver) setup() error {
	query := `
	CREATE TABLE IF NOT EXISTS checkpoints (
		id TEXT PRIMARY KEY,
		thread_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		state BLOB NOT NULL,
		next_node TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(thread_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_checkpoints_thread_id ON checkpoints(thread_id);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// GetLatest returns the highest-sequence checkpoint for a thread.
func (s *SqliteSaver) GetLatest(ctx context.Context, threadID string) (*Checkpoint, error) {
	query := `SELECT seq, state, next_node, created_at FROM checkpoints
		WHERE thread_id = ? ORDER BY seq DESC LIMIT 1`

	cp := &Checkpoint{ThreadID: threadID}
	var stateData []byte

	err := s.db.QueryRowContext(ctx, query, threadID).
		Scan(&cp.Seq, &stateData, &cp.NextNode, &cp.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	if err := json.Unmarshal(stateData, &cp.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint state: %w", err)
	}

	return cp, nil
}

// Put appends a new checkpoint for a thread and returns its sequence number.
func (s *SqliteSaver) Put(ctx context.Context, threadID string, state map[string]interface{}, nextNode string) (int64, error) {
	stateData, err := json.Marshal(state)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal checkpoint state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM checkpoints WHERE thread_id = ?`,
		threadID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to compute sequence: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO checkpoints (id, thread_id, seq, state, next_node) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), threadID, seq, stateData, nextNode)
	if err != nil {
		return 0, fmt.Errorf("failed to save checkpoint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit checkpoint: %w", err)
	}

	return seq, nil
}

// ListThreads enumerates thread identities whose id ends with the suffix.
func (s *SqliteSaver) ListThreads(ctx context.Context, suffix string) ([]string, error) {
	query := `SELECT DISTINCT thread_id FROM checkpoints
		WHERE thread_id LIKE ? ESCAPE '\' ORDER BY thread_id`

	rows, err := s.db.QueryContext(ctx, query, "%"+escapeLike(suffix))
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	result := make([]string, 0)
	for rows.Next() {
		var threadID string
		if err := rows.Scan(&threadID); err != nil {
			return nil, fmt.Errorf("failed to scan thread id: %w", err)
		}
		result = append(result, threadID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating threads: %w", err)
	}
	return result, nil
}

// Close closes the database connection.
func (s *SqliteSaver) Close() error {
	return s.db.Close()
}
