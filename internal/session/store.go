package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"sparked/internal/cache"
)

const keyPrefix = "session:"

// Store persists session values by id.
type Store interface {
	Load(ctx context.Context, id string) (map[string]string, error)
	Save(ctx context.Context, id string, values map[string]string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps sessions in Redis as JSON documents with a TTL.
type RedisStore struct {
	cache *cache.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a session store on top of the cache client.
func NewRedisStore(cache *cache.Client) *RedisStore {
	return &RedisStore{cache: cache}
}

// Load returns nil values for unknown ids.
func (s *RedisStore) Load(ctx context.Context, id string) (map[string]string, error) {
	data, err := s.cache.Get(ctx, keyPrefix+id)
	if err != nil || data == nil {
		return nil, err
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return values, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, values map[string]string, ttl time.Duration) error {
	payload, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.cache.Set(ctx, keyPrefix+id, payload, ttl)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, keyPrefix+id)
}

type memoryEntry struct {
	values    map[string]string
	expiresAt time.Time
}

// MemoryStore is a process-local store for development and tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, id string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, id)
		return nil, nil
	}
	out := make(map[string]string, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, id string, values map[string]string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	s.entries[id] = memoryEntry{values: copied, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	return nil
}

// Len reports how many live records the store holds.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
