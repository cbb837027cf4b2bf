package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSaver is a PostgreSQL-based checkpoint saver backed by a bounded
// pgx connection pool. The pool is process-scoped: construct one saver at
// startup and share it. Connection is lazy, on first use, guarded by a
// mutex so concurrent first-use cannot create duplicate pools.
type PostgresSaver struct {
	connString string
	poolConfig *PoolConfig

	mu   sync.Mutex
	pool *pgxpool.Pool
}

// PoolConfig bounds the connection pool.
type PoolConfig struct {
	MinConns        int32
	MaxConns        int32
	MaxConnIdleTime time.Duration
	MaxConnLifetime time.Duration
}

// DefaultPoolConfig returns the default pool bounds.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MinConns:        1,
		MaxConns:        10,
		MaxConnIdleTime: 5 * time.Minute,
		MaxConnLifetime: time.Hour,
	}
}

// NewPostgresSaver creates a new PostgreSQL checkpoint saver. The database
// is not contacted until the first operation.
func NewPostgresSaver(connString string, poolConfig *PoolConfig) *PostgresSaver {
	if poolConfig == nil {
		poolConfig = DefaultPoolConfig()
	}
	return &PostgresSaver{
		connString: connString,
		poolConfig: poolConfig,
	}
}

// Connect establishes the pool and runs setup. Calling it is optional;
// every operation connects lazily through it.
func (s *PostgresSaver) Connect(ctx context.Context) error {
	_, err := s.getPool(ctx)
	return err
}

// getPool returns the pool, creating it on first use.
func (s *PostgresSaver) getPool(ctx context.Context) (*pgxpool.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		return s.pool, nil
	}

	config, err := pgxpool.ParseConfig(s.connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	config.MinConns = s.poolConfig.MinConns
	config.MaxConns = s.poolConfig.MaxConns
	config.MaxConnIdleTime = s.poolConfig.MaxConnIdleTime
	config.MaxConnLifetime = s.poolConfig.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := setupPostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	s.pool = pool
	return pool, nil
}

// setupPostgres creates the necessary tables.
func setupPostgres(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS checkpoints (
			id UUID PRIMARY KEY,
			thread_id TEXT NOT NULL,
			seq BIGINT NOT NULL,
			state JSONB NOT NULL,
			next_node TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (thread_id, seq)
		);

		CREATE INDEX IF NOT EXISTS idx_checkpoints_thread_id
			ON checkpoints(thread_id);
		CREATE INDEX IF NOT EXISTS idx_checkpoints_thread_seq
			ON checkpoints(thread_id, seq DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// GetLatest returns the highest-sequence checkpoint for a thread.
func (s *PostgresSaver) GetLatest(ctx context.Context, threadID string) (*Checkpoint, error) {
	pool, err := s.getPool(ctx)
	if err != nil {
		return nil, err
	}

	cp := &Checkpoint{ThreadID: threadID}
	err = pool.QueryRow(ctx,
		`SELECT seq, state, next_node, created_at FROM checkpoints
			WHERE thread_id = $1 ORDER BY seq DESC LIMIT 1`,
		threadID).Scan(&cp.Seq, &cp.State, &cp.NextNode, &cp.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	return cp, nil
}

// Put appends a new checkpoint for a thread and returns its sequence number.
// Concurrent puts for the same thread race on the UNIQUE(thread_id, seq)
// constraint; the loser recomputes and retries, so sequences are never lost
// or duplicated.
func (s *PostgresSaver) Put(ctx context.Context, threadID string, state map[string]interface{}, nextNode string) (int64, error) {
	pool, err := s.getPool(ctx)
	if err != nil {
		return 0, err
	}

	for {
		var seq int64
		err := pool.QueryRow(ctx,
			`INSERT INTO checkpoints (id, thread_id, seq, state, next_node)
				SELECT $1, $2, COALESCE(MAX(seq), 0) + 1, $3, $4
				FROM checkpoints WHERE thread_id = $2
				RETURNING seq`,
			uuid.New().String(), threadID, state, nextNode).Scan(&seq)
		if err == nil {
			return seq, nil
		}
		if isUniqueViolation(err) {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			default:
				continue
			}
		}
		return 0, fmt.Errorf("failed to save checkpoint: %w", err)
	}
}

// ListThreads enumerates thread identities whose id ends with the suffix.
func (s *PostgresSaver) ListThreads(ctx context.Context, suffix string) ([]string, error) {
	pool, err := s.getPool(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx,
		`SELECT DISTINCT thread_id FROM checkpoints
			WHERE thread_id LIKE $1 ESCAPE '\' ORDER BY thread_id`,
		"%"+escapeLike(suffix))
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

// Close closes the connection pool.
func (s *PostgresSaver) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}

// isUniqueViolation reports whether err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
