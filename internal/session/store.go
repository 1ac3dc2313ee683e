// Package session keeps bills that are still being edited. A session holds
// one bill snapshot under a random id and expires after a period of
// inactivity.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/receiptsplit/internal/models"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// Store persists session snapshots. A ttl of zero means no expiry.
type Store interface {
	Get(ctx context.Context, id string) (*models.Snapshot, error)
	Put(ctx context.Context, id string, snap models.Snapshot, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)

type memoryEntry struct {
	data    []byte
	expires time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// memorySweepInterval is the least time between two passes of Put over
// all entries looking for expired sessions.
const memorySweepInterval = time.Minute

// MemoryStore keeps sessions in process, encoded the same way RedisStore
// encodes them. Expired sessions are dropped on Get and by a periodic
// sweep during Put.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	now       func() time.Time
	nextSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Snapshot, error) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if ok && entry.expired(s.now()) {
		delete(s.entries, id)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	return decodeSnapshot(entry.data)
}

func (s *MemoryStore) Put(_ context.Context, id string, snap models.Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expires = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.entries[id] = entry
	return nil
}

// sweep drops expired entries at most once per memorySweepInterval.
// s.mu must be held.
func (s *MemoryStore) sweep() {
	now := s.now()
	if now.Before(s.nextSweep) {
		return
	}
	s.nextSweep = now.Add(memorySweepInterval)
	for id, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, id)
		}
	}
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	delete(s.entries, id)
	return nil
}

// RedisStore keeps sessions as JSON strings under keyPrefix+id.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

const defaultKeyPrefix = "receiptsplit:session:"

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, keyPrefix: defaultKeyPrefix}
}

func (s *RedisStore) key(id string) string {
	return s.keyPrefix + id
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}
	return decodeSnapshot(data)
}

func (s *RedisStore) Put(ctx context.Context, id string, snap models.Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	return nil
}

func decodeSnapshot(data []byte) (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &snap, nil
}
