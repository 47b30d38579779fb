package share

import (
	"context"
	"slices"
	"sync"
	"time"
)

type memoryEntry struct {
	ids     []uint64
	expires time.Time // Zero never expires
}

// MemoryStore is a process-local Store, used when no redis is configured
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[string]memoryEntry
	keyLength int
	ttl       time.Duration
	now       func() time.Time
}

func NewMemoryStore(keyLength int, ttl time.Duration) *MemoryStore {
	if keyLength <= 0 {
		keyLength = DefaultKeyLength
	}
	return &MemoryStore{
		entries:   make(map[string]memoryEntry),
		keyLength: keyLength,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (store *MemoryStore) Save(ctx context.Context, ids []uint64) (string, error) {
	if len(ids) == 0 {
		return "", ErrEmpty
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	key, err := freshKey(ctx, store.keyLength, func(_ context.Context, key string) (bool, error) {
		_, ok := store.live(key)
		return ok, nil
	})
	if err != nil {
		return "", err
	}

	entry := memoryEntry{ids: slices.Clone(ids)}
	if store.ttl > 0 {
		entry.expires = store.now().Add(store.ttl)
	}
	store.entries[key] = entry
	return key, nil
}

func (store *MemoryStore) Load(_ context.Context, key string) ([]uint64, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	entry, ok := store.live(key)
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(entry.ids), nil
}

func (store *MemoryStore) Delete(_ context.Context, key string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	delete(store.entries, key)
	return nil
}

// Callers must hold the lock
func (store *MemoryStore) live(key string) (memoryEntry, bool) {
	entry, ok := store.entries[key]
	if !ok || (!entry.expires.IsZero() && !store.now().Before(entry.expires)) {
		return memoryEntry{}, false
	}
	return entry, true
}
