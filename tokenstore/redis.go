package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAuthClient/session"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the three fields under separate keys:
//
//	<prefix>:<tenant>:access
//	<prefix>:<tenant>:refresh
//	<prefix>:<tenant>:user
//
// Reads use one MGET; writes and clears run in a MULTI/EXEC pipeline.
type RedisStore struct {
	redis    redis.UniversalClient
	prefix   string
	tenantID string
	ttl      time.Duration
}

// NewRedisStore returns a store scoped to tenantID. A zero ttl keeps keys
// until cleared.
func NewRedisStore(client redis.UniversalClient, prefix, tenantID string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "crm:auth"
	}
	return &RedisStore{
		redis:    client,
		prefix:   prefix,
		tenantID: normalizeTenantID(tenantID),
		ttl:      ttl,
	}
}

func normalizeTenantID(tenantID string) string {
	if tenantID == "" {
		return "0"
	}
	return tenantID
}

// Expires reports whether keys are written with a TTL.
func (s *RedisStore) Expires() bool {
	return s.ttl > 0
}

func (s *RedisStore) key(field string) string {
	return s.prefix + ":" + s.tenantID + ":" + field
}

func (s *RedisStore) keys() (access, refresh, user string) {
	return s.key("access"), s.key("refresh"), s.key("user")
}

func (s *RedisStore) Get(ctx context.Context) (Record, error) {
	accessKey, refreshKey, userKey := s.keys()

	vals, err := s.redis.MGet(ctx, accessKey, refreshKey, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, nil
		}
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var rec Record
	if len(vals) != 3 {
		return rec, nil
	}
	rec.AccessToken = stringValue(vals[0])
	rec.RefreshToken = stringValue(vals[1])
	if raw := stringValue(vals[2]); raw != "" {
		var u session.User
		if err := json.Unmarshal([]byte(raw), &u); err == nil {
			rec.User = &u
		}
	}
	return rec, nil
}

func stringValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return ""
	}
}

func (s *RedisStore) Set(ctx context.Context, rec Record) error {
	accessKey, refreshKey, userKey := s.keys()

	var userData []byte
	if rec.User != nil {
		data, err := json.Marshal(rec.User)
		if err != nil {
			return err
		}
		userData = data
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		setOrDel(ctx, pipe, accessKey, rec.AccessToken, s.ttl)
		setOrDel(ctx, pipe, refreshKey, rec.RefreshToken, s.ttl)
		setOrDel(ctx, pipe, userKey, string(userData), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func setOrDel(ctx context.Context, pipe redis.Pipeliner, key, value string, ttl time.Duration) {
	if value == "" {
		pipe.Del(ctx, key)
		return
	}
	pipe.Set(ctx, key, value, ttl)
}

func (s *RedisStore) Clear(ctx context.Context) error {
	accessKey, refreshKey, userKey := s.keys()

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, accessKey, refreshKey, userKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
