package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"quiz-forge/internal/cache"
	"quiz-forge/internal/domain"

	"go.uber.org/zap"
)

var (
	sourceIndexKey = cache.SourceIndexKey()
	sourceKey      = cache.SourceKey
)

// CacheSourceStore keeps sources in a domain.Cache: one JSON value per source
// plus a hash indexing the live IDs.
type CacheSourceStore struct {
	cache  domain.Cache
	ttl    time.Duration
	logger *zap.Logger
}

var _ domain.SourceStore = (*CacheSourceStore)(nil)

func NewCacheSourceStore(c domain.Cache, ttl time.Duration, logger *zap.Logger) *CacheSourceStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheSourceStore{cache: c, ttl: ttl, logger: logger}
}

func (s *CacheSourceStore) Save(ctx context.Context, source *domain.Source) error {
	data, err := json.Marshal(source)
	if err != nil {
		return domain.NewInternalError("failed to encode source", err)
	}
	if err := s.cache.Set(ctx, sourceKey(source.ID), string(data), s.ttl); err != nil {
		return domain.NewInternalError("failed to store source", err)
	}
	if err := s.cache.HSet(ctx, sourceIndexKey, source.ID, source.Title); err != nil {
		return domain.NewInternalError("failed to index source", err)
	}
	if s.ttl > 0 {
		if err := s.cache.Expire(ctx, sourceIndexKey, s.ttl); err != nil {
			s.logger.Warn("failed to refresh source index ttl", zap.Error(err))
		}
	}
	return nil
}

func (s *CacheSourceStore) Get(ctx context.Context, id string) (*domain.Source, error) {
	raw, err := s.cache.Get(ctx, sourceKey(id))
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return nil, domain.NewSourceNotFoundError(id)
		}
		return nil, domain.NewInternalError("failed to load source", err)
	}

	var source domain.Source
	if err := json.Unmarshal([]byte(raw), &source); err != nil {
		return nil, domain.NewInternalError(fmt.Sprintf("corrupt source %s", id), err)
	}
	return &source, nil
}

// List returns live sources oldest first. Index entries whose value expired are pruned.
func (s *CacheSourceStore) List(ctx context.Context) ([]*domain.Source, error) {
	index, err := s.cache.HGetAll(ctx, sourceIndexKey)
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return []*domain.Source{}, nil
		}
		return nil, domain.NewInternalError("failed to list sources", err)
	}

	ids := make([]string, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sources := make([]*domain.Source, 0, len(ids))
	var stale []string
	for _, id := range ids {
		source, err := s.Get(ctx, id)
		if err != nil {
			if domain.IsSourceNotFound(err) {
				stale = append(stale, id)
				continue
			}
			return nil, err
		}
		sources = append(sources, source)
	}

	if len(stale) > 0 {
		if err := s.cache.HDel(ctx, sourceIndexKey, stale...); err != nil {
			s.logger.Warn("failed to prune source index", zap.Strings("ids", stale), zap.Error(err))
		}
	}

	sortSources(sources)
	return sources, nil
}

func (s *CacheSourceStore) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, sourceKey(id)); err != nil {
		return domain.NewInternalError("failed to delete source", err)
	}
	if err := s.cache.HDel(ctx, sourceIndexKey, id); err != nil {
		return domain.NewInternalError("failed to unindex source", err)
	}
	return nil
}

// MemorySourceStore is the in-process store used when Redis is not configured.
type MemorySourceStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	source    domain.Source
	expiresAt time.Time
}

var _ domain.SourceStore = (*MemorySourceStore)(nil)

func NewMemorySourceStore(ttl time.Duration) *MemorySourceStore {
	return &MemorySourceStore{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

func (m *MemorySourceStore) Save(_ context.Context, source *domain.Source) error {
	entry := memoryEntry{source: *source}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.entries[source.ID] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemorySourceStore) Get(_ context.Context, id string) (*domain.Source, error) {
	m.mu.RLock()
	entry, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok || m.expired(entry) {
		return nil, domain.NewSourceNotFoundError(id)
	}
	source := entry.source
	return &source, nil
}

func (m *MemorySourceStore) List(_ context.Context) ([]*domain.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sources := make([]*domain.Source, 0, len(m.entries))
	for id, entry := range m.entries {
		if m.expired(entry) {
			delete(m.entries, id)
			continue
		}
		source := entry.source
		sources = append(sources, &source)
	}
	sortSources(sources)
	return sources, nil
}

func (m *MemorySourceStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok || m.expired(entry) {
		return domain.NewSourceNotFoundError(id)
	}
	delete(m.entries, id)
	return nil
}

func (m *MemorySourceStore) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt)
}

func sortSources(sources []*domain.Source) {
	sort.SliceStable(sources, func(i, j int) bool {
		if !sources[i].CreatedAt.Equal(sources[j].CreatedAt) {
			return sources[i].CreatedAt.Before(sources[j].CreatedAt)
		}
		return sources[i].ID < sources[j].ID
	})
}
