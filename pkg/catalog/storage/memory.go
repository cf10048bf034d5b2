package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage keeps records in a map. Records are copied on the way in
// and out so callers cannot mutate stored state.
type MemoryStorage struct {
	records map[string]*Record
	mu      sync.RWMutex
	now     func() time.Time
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

// Put stores a copy of r.
func (s *MemoryStorage) Put(ctx context.Context, r *Record) error {
	if err := validate(r); err != nil {
		return NewStorageError("memory", "put", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := r.Clone()
	now := s.now()
	if old, ok := s.records[r.Name]; ok {
		c.ID, c.CreatedAt = old.ID, old.CreatedAt
	} else {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.records[r.Name] = c
	return nil
}

// Get returns a copy of the record stored under name.
func (s *MemoryStorage) Get(ctx context.Context, name string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[name]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

// List returns copies of the records matching q.
func (s *MemoryStorage) List(ctx context.Context, q *Query) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		if q.Matches(r) {
			results = append(results, r.Clone())
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return paginate(results, q), nil
}

// Delete removes the record stored under name.
func (s *MemoryStorage) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[name]; !ok {
		return ErrNotFound
	}
	delete(s.records, name)
	return nil
}

// Count returns the number of stored records.
func (s *MemoryStorage) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close is a no-op.
func (s *MemoryStorage) Close() error {
	return nil
}
