package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/quantfabric/execdb/internal/domain"
)

// recordStore exposes the primitive operations the execution database needs
// from the backing store: ordered-log append/read, set membership, hash
// fields, namespace delete, and atomic multi-key transactions.
type recordStore struct {
	rdb *redis.Client
}

// storeErr wraps a driver error so callers can detect store unavailability
// with errors.Is. Given the transactional contract, a caller seeing this
// must treat the write as not applied.
func storeErr(op string, err error) error {
	return fmt.Errorf("redis: %s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

// tx executes fn inside a MULTI/EXEC block. Every command queued by fn is
// applied atomically or not at all.
func (s *recordStore) tx(ctx context.Context, op string, fn func(pipe redis.Pipeliner) error) error {
	if _, err := s.rdb.TxPipelined(ctx, fn); err != nil {
		return storeErr(op, err)
	}
	return nil
}

// readLog returns every entry of an ordered log in append order. A missing
// key yields an empty slice.
func (s *recordStore) readLog(ctx context.Context, op, key string) ([][]byte, error) {
	entries, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, storeErr(op, err)
	}
	out := make([][]byte, len(entries))
	for i, e := range entries {
		out[i] = []byte(e)
	}
	return out, nil
}

func (s *recordStore) setMembers(ctx context.Context, op, key string) ([]string, error) {
	members, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, storeErr(op, err)
	}
	return members, nil
}

func (s *recordStore) setContains(ctx context.Context, op, key, member string) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, key, member).Result()
	if err != nil {
		return false, storeErr(op, err)
	}
	return ok, nil
}

// hashGet returns a hash field's value and whether it exists.
func (s *recordStore) hashGet(ctx context.Context, op, key, field string) ([]byte, bool, error) {
	data, err := s.rdb.HGet(ctx, key, field).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, storeErr(op, err)
	}
	return data, true, nil
}

func (s *recordStore) hashContains(ctx context.Context, op, key, field string) (bool, error) {
	ok, err := s.rdb.HExists(ctx, key, field).Result()
	if err != nil {
		return false, storeErr(op, err)
	}
	return ok, nil
}

func (s *recordStore) hashGetAll(ctx context.Context, op, key string) (map[string]string, error) {
	fields, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, storeErr(op, err)
	}
	return fields, nil
}

// scanKeys returns every key matching pattern. SCAN is used instead of KEYS
// so a large namespace does not block the server.
func (s *recordStore) scanKeys(ctx context.Context, op, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.rdb.Scan(ctx, cursor, pattern, 512).Result()
		if err != nil {
			return nil, storeErr(op, err)
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

// deleteNamespace removes every key matching pattern in batches. Deleting an
// empty namespace is a no-op.
func (s *recordStore) deleteNamespace(ctx context.Context, op, pattern string) error {
	keys, err := s.scanKeys(ctx, op, pattern)
	if err != nil {
		return err
	}
	const batchSize = 256
	for start := 0; start < len(keys); start += batchSize {
		end := min(start+batchSize, len(keys))
		if err := s.rdb.Del(ctx, keys[start:end]...).Err(); err != nil {
			return storeErr(op, err)
		}
	}
	return nil
}
