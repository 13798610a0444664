package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// DefaultSessionTTL is applied when no TTL is configured.
const DefaultSessionTTL = 40 * time.Minute

// RedisStore persists sessions as JSON blobs under session:<id> with a TTL
// refreshed on every read.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return "session:" + id
}

// Get loads a session and refreshes its TTL.
func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	var sess Session
	if err := sonic.UnmarshalString(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}

	r.client.Expire(ctx, sessionKey(id), r.ttl)
	return &sess, nil
}

// Put applies a field-level patch with read-modify-write semantics, creating
// the session when absent. Concurrent writers to the same session are
// last-writer-wins.
func (r *RedisStore) Put(ctx context.Context, id string, patch SessionPatch) error {
	sess, err := r.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		sess = newSession(id)
	}

	sess.apply(patch)

	data, err := sonic.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", id, err)
	}
	if err := r.client.Set(ctx, sessionKey(id), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("put session %s: %w", id, err)
	}
	return nil
}

// Delete removes a session.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
