package exporter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jobharvest/internal/logging"
	"jobharvest/pkg/models"
)

// DocumentStore persists job documents keyed by an external unique key
type DocumentStore interface {
	// EnsureCollection creates the table or collection and its index if absent
	EnsureCollection(ctx context.Context) error
	// Upsert updates the document at key in place, keeping its createdAt, or
	// inserts it with createdAt and lastUpdated set to now
	Upsert(ctx context.Context, key string, rec models.JobRecord, now time.Time) (inserted bool, err error)
	Close() error
}

// DocumentSink upserts every record into a DocumentStore
type DocumentSink struct {
	name   string
	store  DocumentStore
	logger logging.Logger
	now    func() time.Time
}

// NewDocumentSink creates an upsert sink over store
func NewDocumentSink(name string, store DocumentStore, logger logging.Logger) *DocumentSink {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &DocumentSink{name: name, store: store, logger: logger, now: time.Now}
}

func (s *DocumentSink) Name() string { return s.name }

func (s *DocumentSink) Export(ctx context.Context, records []models.JobRecord) error {
	if err := s.store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrSinkConfig, err)
	}

	now := s.now().UTC()
	var inserted, updated int
	for i := range records {
		ok, err := s.store.Upsert(ctx, records[i].UpsertKey(), records[i], now)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUpsert, records[i].UpsertKey(), err)
		}
		if ok {
			inserted++
		} else {
			updated++
		}
	}

	s.logger.Info("Documents upserted", map[string]interface{}{
		"sink":     s.name,
		"inserted": inserted,
		"updated":  updated,
	})
	return nil
}

// MemoryStore is an in-process DocumentStore
type MemoryStore struct {
	docs  map[string]models.JobDocument
	order []string
	mu    sync.RWMutex
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]models.JobDocument)}
}

func (m *MemoryStore) EnsureCollection(context.Context) error { return nil }

func (m *MemoryStore) Upsert(_ context.Context, key string, rec models.JobRecord, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, exists := m.docs[key]
	if !exists {
		doc.CreatedAt = now
		m.order = append(m.order, key)
	}
	doc.JobRecord = rec
	doc.LastUpdated = now
	m.docs[key] = doc
	return !exists, nil
}

func (m *MemoryStore) Close() error { return nil }

// Get returns the document stored at key
func (m *MemoryStore) Get(key string) (models.JobDocument, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[key]
	return doc, ok
}

// Documents returns all documents in first-insert order
func (m *MemoryStore) Documents() []models.JobDocument {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]models.JobDocument, 0, len(m.order))
	for _, key := range m.order {
		docs = append(docs, m.docs[key])
	}
	return docs
}

// LastUpdated returns the newest lastUpdated across all documents
func (m *MemoryStore) LastUpdated() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest time.Time
	for _, d := range m.docs {
		if d.LastUpdated.After(latest) {
			latest = d.LastUpdated
		}
	}
	return latest
}
