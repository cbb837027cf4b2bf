// Package archive replays completed conversation runs into a secondary
// index. A daily sweep enumerates yesterday's thread identities from the
// checkpoint store, loads each thread's final state and forwards its message
// log to an indexing collaborator for long-term retrieval.
package archive

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chatgraph-go/chatgraph/graph"
)

// MessageIndexer is the archival collaborator the sweep forwards messages
// to. Implementations must be idempotent at the message-identity level: a
// re-delivered message with an already-indexed ID is counted as indexed, not
// duplicated. IndexMessages returns how many messages were newly indexed.
type MessageIndexer interface {
	IndexMessages(ctx context.Context, userID, threadID string, messages []*graph.Message) (int, error)
}

// RedisIndexer archives messages into redis: one hash per message keyed by
// message ID, plus a per-user set of message IDs for scoped enumeration.
// Membership of the set is what makes re-archival a no-op, and it is only
// written after the payload hash, so an index attempt interrupted mid-message
// is retried by the next sweep instead of being skipped.
type RedisIndexer struct {
	client redis.UniversalClient
	prefix string

	mu    sync.Mutex
	ready bool
}

// NewRedisIndexer creates an indexer over an existing client. prefix scopes
// all keys; empty means "archive".
func NewRedisIndexer(client redis.UniversalClient, prefix string) *RedisIndexer {
	if prefix == "" {
		prefix = "archive"
	}
	return &RedisIndexer{client: client, prefix: prefix}
}

// ensure verifies connectivity once. Guarded so concurrent first use does
// not race the check.
func (r *RedisIndexer) ensure(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		return nil
	}
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("archive index unavailable: %w", err)
	}
	r.ready = true
	return nil
}

func (r *RedisIndexer) userSetKey(userID string) string {
	return r.prefix + ":user:" + userID + ":messages"
}

func (r *RedisIndexer) messageKey(id string) string {
	return r.prefix + ":msg:" + id
}

// IndexMessages implements MessageIndexer.
func (r *RedisIndexer) IndexMessages(ctx context.Context, userID, threadID string, messages []*graph.Message) (int, error) {
	if err := r.ensure(ctx); err != nil {
		return 0, err
	}

	indexed := 0
	now := time.Now().UTC().Format(time.RFC3339)

	for _, msg := range messages {
		if msg == nil || msg.ID == "" {
			continue
		}

		archived, err := r.client.SIsMember(ctx, r.userSetKey(userID), msg.ID).Result()
		if err != nil {
			return indexed, fmt.Errorf("index message %s: %w", msg.ID, err)
		}
		if archived {
			// Already committed by an earlier sweep run.
			continue
		}

		// Payload first, set membership last. The membership write is the
		// commit: a crash before it leaves at worst an orphan hash that the
		// next sweep overwrites and then commits.
		err = r.client.HSet(ctx, r.messageKey(msg.ID), map[string]interface{}{
			"user_id":     userID,
			"thread_id":   threadID,
			"role":        msg.Role,
			"content":     msg.Content,
			"archived_at": now,
		}).Err()
		if err != nil {
			return indexed, fmt.Errorf("index message %s: %w", msg.ID, err)
		}
		if err := r.client.SAdd(ctx, r.userSetKey(userID), msg.ID).Err(); err != nil {
			return indexed, fmt.Errorf("index message %s: %w", msg.ID, err)
		}
		indexed++
	}

	return indexed, nil
}

// IndexedMessageIDs returns the IDs archived for a user, for inspection and
// tests.
func (r *RedisIndexer) IndexedMessageIDs(ctx context.Context, userID string) ([]string, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	return r.client.SMembers(ctx, r.userSetKey(userID)).Result()
}
