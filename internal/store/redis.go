// Package store – key-value backend.
//
// RedisStore keeps one hash per wish ("wish:{id}") plus a sorted set
// ("wishes") of ids scored by the creation timestamp in Unix milliseconds.
// The sorted set gives cheap newest-first listing and strict since-queries
// via exclusive score bounds; the hashes hold the records themselves.
package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mooky-live/wishes-backend/internal/domain"
)

const (
	wishesIndexKey = "wishes"
	wishKeyPrefix  = "wish:"
)

// RedisStore implements WishStore over Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis using a URL (redis://...) and verifies the
// connection before returning.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

func wishKey(id string) string { return wishKeyPrefix + id }

// wishToHash flattens a wish into hash fields. The timestamp is stored as
// Unix milliseconds to match the sorted-set score exactly.
func wishToHash(w *domain.Wish) map[string]interface{} {
	return map[string]interface{}{
		"id":         w.ID,
		"name":       w.Name,
		"message":    w.Message,
		"created_at": w.CreatedAt.UnixMilli(),
	}
}

func wishFromHash(fields map[string]string) (domain.Wish, bool) {
	id := fields["id"]
	if id == "" {
		return domain.Wish{}, false
	}
	ms, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return domain.Wish{}, false
	}
	return domain.Wish{
		ID:        id,
		Name:      fields["name"],
		Message:   fields["message"],
		CreatedAt: time.UnixMilli(ms).UTC(),
	}, true
}

// Create stores the wish hash and indexes its id by creation time.
func (s *RedisStore) Create(ctx context.Context, name, message string) (*domain.Wish, error) {
	w := &domain.Wish{
		ID:        uuid.NewString(),
		Name:      name,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, wishKey(w.ID), wishToHash(w))
	pipe.ZAdd(ctx, wishesIndexKey, redis.Z{
		Score:  float64(w.CreatedAt.UnixMilli()),
		Member: w.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// fetchByIDs resolves ids to records, silently skipping hashes that have
// vanished between the index read and the fetch.
func (s *RedisStore) fetchByIDs(ctx context.Context, ids []string) ([]domain.Wish, error) {
	if len(ids) == 0 {
		return []domain.Wish{}, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, wishKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.Wish, 0, len(ids))
	for _, cmd := range cmds {
		if w, ok := wishFromHash(cmd.Val()); ok {
			out = append(out, w)
		}
	}
	return out, nil
}

// List returns all wishes newest first.
func (s *RedisStore) List(ctx context.Context) ([]domain.Wish, error) {
	ids, err := s.client.ZRevRange(ctx, wishesIndexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return s.fetchByIDs(ctx, ids)
}

// ListSince returns wishes strictly newer than t, oldest first. The "("
// prefix makes the lower score bound exclusive.
func (s *RedisStore) ListSince(ctx context.Context, t time.Time) ([]domain.Wish, error) {
	ids, err := s.client.ZRangeByScore(ctx, wishesIndexKey, &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(t.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}
	return s.fetchByIDs(ctx, ids)
}

// Count is the cardinality of the time index.
func (s *RedisStore) Count(ctx context.Context) (int64, error) {
	return s.client.ZCard(ctx, wishesIndexKey).Result()
}

// Delete removes a wish by exact id or unambiguous hex prefix.
func (s *RedisStore) Delete(ctx context.Context, idOrPrefix string) (string, error) {
	// Exact match first: membership in the index is authoritative.
	err := s.client.ZScore(ctx, wishesIndexKey, idOrPrefix).Err()
	if err == nil {
		return idOrPrefix, s.removeByID(ctx, idOrPrefix)
	}
	if err != redis.Nil {
		return "", err
	}

	if !IsPrefixCandidate(idOrPrefix) {
		return "", ErrNotFound
	}

	ids, err := s.client.ZRange(ctx, wishesIndexKey, 0, -1).Result()
	if err != nil {
		return "", err
	}
	prefix := strings.ToLower(idOrPrefix)
	var matched []string
	for _, id := range ids {
		if strings.HasPrefix(strings.ToLower(id), prefix) {
			matched = append(matched, id)
		}
	}
	switch len(matched) {
	case 0:
		return "", ErrNotFound
	case 1:
		return matched[0], s.removeByID(ctx, matched[0])
	default:
		return "", ErrAmbiguousID
	}
}

func (s *RedisStore) removeByID(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, wishKey(id))
	pipe.ZRem(ctx, wishesIndexKey, id)
	_, err := pipe.Exec(ctx)
	return err
}

// Import inserts a batch, counting only ids that were new to the index.
func (s *RedisStore) Import(ctx context.Context, wishes []domain.Wish) (int, error) {
	inserted := 0
	for i := range wishes {
		w := &wishes[i]
		added, err := s.client.ZAddNX(ctx, wishesIndexKey, redis.Z{
			Score:  float64(w.CreatedAt.UnixMilli()),
			Member: w.ID,
		}).Result()
		if err != nil {
			return inserted, err
		}
		if added == 0 {
			continue // id already present
		}
		if err := s.client.HSet(ctx, wishKey(w.ID), wishToHash(w)).Err(); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
