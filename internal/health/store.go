package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"opagate/internal/domain"
	"opagate/pkg/platform/sentinel"
)

// StatusStore keeps the last polled SystemStatus. Load returns
// sentinel.ErrNotFound before the first Save.
type StatusStore interface {
	Save(ctx context.Context, status domain.SystemStatus) error
	Load(ctx context.Context) (domain.SystemStatus, error)
}

// MemoryStore keeps the status in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	status domain.SystemStatus
	set    bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, status domain.SystemStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.set = true
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (domain.SystemStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return domain.SystemStatus{}, sentinel.ErrNotFound
	}
	return s.status, nil
}

// RedisStore shares the last status between gateway instances. Entries
// expire after ttl so a stopped fleet does not serve a stale status forever.
type RedisStore struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// NewRedisStore creates a store writing to key.
func NewRedisStore(client redis.Cmdable, key string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, key: key, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, status domain.SystemStatus) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode system status: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save system status: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (domain.SystemStatus, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SystemStatus{}, sentinel.ErrNotFound
	}
	if err != nil {
		return domain.SystemStatus{}, fmt.Errorf("load system status: %w: %w", sentinel.ErrUnavailable, err)
	}

	var status domain.SystemStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return domain.SystemStatus{}, fmt.Errorf("decode system status: %w", err)
	}
	return status, nil
}
