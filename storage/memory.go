package storage

import (
	"context"
	"sync"
)

// MemoryStore is a concurrency-safe in-memory Interface implementation used by
// tests and single-shot CLI runs.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[DataType]map[string]Document
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[DataType]map[string]Document)}
}

func (s *MemoryStore) Search(_ context.Context, dt DataType, filter QueryFilter) ([]Document, error) {
	s.mu.RLock()
	out := make([]Document, 0, len(s.docs[dt]))
	for _, doc := range s.docs[dt] {
		if matchesFilter(doc, filter) {
			out = append(out, cloneDocument(doc))
		}
	}
	s.mu.RUnlock()
	return applySort(out, filter), nil
}

func (s *MemoryStore) GetByID(_ context.Context, dt DataType, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[dt][id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDocument(doc), nil
}

func (s *MemoryStore) IndexDocument(_ context.Context, dt DataType, id string, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[dt] == nil {
		s.docs[dt] = make(map[string]Document)
	}
	s.docs[dt][id] = cloneDocument(doc)
	return nil
}

func (s *MemoryStore) BulkIndex(ctx context.Context, dt DataType, docs []IdentifiedDocument) (BulkResult, error) {
	var result BulkResult
	for _, d := range docs {
		if err := s.IndexDocument(ctx, dt, d.ID, d.Doc); err != nil {
			result.FailedCount++
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.SuccessCount++
	}
	return result, nil
}

// Count reports how many documents of a type are stored.
func (s *MemoryStore) Count(dt DataType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[dt])
}

func cloneDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
