package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"sync"

	"docsnap/internal/docsnap"
	"docsnap/internal/snapshot"
)

// MemoryStore is an in-memory implementation of the Store interface.
// Collections and records keep insertion order, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	collections []*memoryCollection
	nextID      int
}

type memoryCollection struct {
	id       string
	name     string
	metadata snapshot.Metadata
	records  docsnap.Records
	index    map[string]bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Heartbeat always succeeds for the in-memory store.
func (m *MemoryStore) Heartbeat(ctx context.Context) error {
	return ctx.Err()
}

// ListCollections returns collections in creation order.
func (m *MemoryStore) ListCollections(ctx context.Context) ([]docsnap.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]docsnap.Collection, 0, len(m.collections))
	for _, c := range m.collections {
		out = append(out, c.handle())
	}
	return out, nil
}

// GetCollection returns the named collection.
func (m *MemoryStore) GetCollection(ctx context.Context, name string) (*docsnap.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := m.find(name)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", docsnap.ErrCollectionNotFound, name)
	}
	h := c.handle()
	return &h, nil
}

// CreateCollection creates an empty collection. Names are unique.
func (m *MemoryStore) CreateCollection(ctx context.Context, name string, metadata snapshot.Metadata) (*docsnap.Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.find(name) != nil {
		return nil, fmt.Errorf("collection %s already exists", name)
	}

	m.nextID++
	c := &memoryCollection{
		id:       "mem-" + strconv.Itoa(m.nextID),
		name:     name,
		metadata: maps.Clone(metadata),
		index:    make(map[string]bool),
	}
	m.collections = append(m.collections, c)
	h := c.handle()
	return &h, nil
}

// DeleteCollection removes the named collection if present.
func (m *MemoryStore) DeleteCollection(ctx context.Context, name string) (docsnap.DeleteOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := slices.IndexFunc(m.collections, func(c *memoryCollection) bool { return c.name == name })
	if i < 0 {
		return docsnap.AlreadyAbsent, nil
	}
	m.collections = slices.Delete(m.collections, i, i+1)
	return docsnap.Deleted, nil
}

// GetRecords returns a copy of every record in the collection.
func (m *MemoryStore) GetRecords(ctx context.Context, h *docsnap.Collection) (*docsnap.Records, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, err := m.byHandle(h)
	if err != nil {
		return nil, err
	}

	out := &docsnap.Records{
		IDs:       slices.Clone(c.records.IDs),
		Documents: slices.Clone(c.records.Documents),
		Metadatas: slices.Clone(c.records.Metadatas),
	}
	if len(c.records.Embeddings) > 0 {
		out.Embeddings = slices.Clone(c.records.Embeddings)
	}
	if out.IDs == nil {
		out.IDs, out.Documents, out.Metadatas = []string{}, []*string{}, []snapshot.Metadata{}
	}
	return out, nil
}

// AddRecords appends records. Duplicate ids reject the whole call.
func (m *MemoryStore) AddRecords(ctx context.Context, h *docsnap.Collection, records *docsnap.Records) error {
	if err := records.Validate(h.Name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.byHandle(h)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, records.Len())
	for _, id := range records.IDs {
		if c.index[id] || seen[id] {
			return fmt.Errorf("duplicate id %q in collection %s", id, c.name)
		}
		seen[id] = true
	}

	hadEmbeddings := len(c.records.Embeddings) > 0 || c.records.Len() == 0
	c.records.IDs = append(c.records.IDs, records.IDs...)
	c.records.Documents = append(c.records.Documents, records.Documents...)
	c.records.Metadatas = append(c.records.Metadatas, records.Metadatas...)
	if len(records.Embeddings) > 0 && hadEmbeddings {
		c.records.Embeddings = append(c.records.Embeddings, records.Embeddings...)
	} else {
		c.records.Embeddings = nil
	}
	for id := range seen {
		c.index[id] = true
	}
	return nil
}

// Count returns the number of records in the collection.
func (m *MemoryStore) Count(ctx context.Context, h *docsnap.Collection) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, err := m.byHandle(h)
	if err != nil {
		return 0, err
	}
	return c.records.Len(), nil
}

func (m *MemoryStore) find(name string) *memoryCollection {
	for _, c := range m.collections {
		if c.name == name {
			return c
		}
	}
	return nil
}

// byHandle resolves a handle by ID so that a stale handle to a deleted and
// recreated collection is rejected.
func (m *MemoryStore) byHandle(h *docsnap.Collection) (*memoryCollection, error) {
	for _, c := range m.collections {
		if c.id == h.ID {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", docsnap.ErrCollectionNotFound, h.Name)
}

func (c *memoryCollection) handle() docsnap.Collection {
	return docsnap.Collection{ID: c.id, Name: c.name, Metadata: maps.Clone(c.metadata)}
}

// Compile-time check that MemoryStore implements docsnap.Store interface
var _ docsnap.Store = (*MemoryStore)(nil)
