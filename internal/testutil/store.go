package testutil

import (
	"context"
	"errors"
	"sync"

	"docsnap/internal/docsnap"
	"docsnap/internal/snapshot"
	"docsnap/internal/store"
)

// ErrInjected is the default error returned by injected faults.
var ErrInjected = errors.New("injected fault")

// FaultyStore wraps a Store, counts calls and injects failures.
// The zero fault configuration passes every call through.
type FaultyStore struct {
	docsnap.Store

	mu    sync.Mutex
	calls map[string]int
	adds  map[string]int

	HeartbeatErr  error
	ListErr       error
	CountErr      error
	GetRecordsErr map[string]error
	CreateErr     map[string]error
	DeleteErr     map[string]error
	// AddFault is consulted before every AddRecords call. n is the 0-based
	// index of the call for that collection.
	AddFault func(collection string, n int) error
	// Ragged makes GetRecords drop the last document of the named collections.
	Ragged map[string]bool
}

// NewFaultyStore wraps inner. A nil inner gets a fresh MemoryStore.
func NewFaultyStore(inner docsnap.Store) *FaultyStore {
	if inner == nil {
		inner = store.NewMemoryStore()
	}
	return &FaultyStore{
		Store: inner,
		calls: make(map[string]int),
		adds:  make(map[string]int),
	}
}

// Calls returns how many times the named method was called.
func (f *FaultyStore) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// TotalCalls returns the number of calls across all methods.
func (f *FaultyStore) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *FaultyStore) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
}

func (f *FaultyStore) Heartbeat(ctx context.Context) error {
	f.record("Heartbeat")
	if f.HeartbeatErr != nil {
		return f.HeartbeatErr
	}
	return f.Store.Heartbeat(ctx)
}

func (f *FaultyStore) ListCollections(ctx context.Context) ([]docsnap.Collection, error) {
	f.record("ListCollections")
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Store.ListCollections(ctx)
}

func (f *FaultyStore) GetCollection(ctx context.Context, name string) (*docsnap.Collection, error) {
	f.record("GetCollection")
	return f.Store.GetCollection(ctx, name)
}

func (f *FaultyStore) CreateCollection(ctx context.Context, name string, metadata snapshot.Metadata) (*docsnap.Collection, error) {
	f.record("CreateCollection")
	if err := f.CreateErr[name]; err != nil {
		return nil, err
	}
	return f.Store.CreateCollection(ctx, name, metadata)
}

func (f *FaultyStore) DeleteCollection(ctx context.Context, name string) (docsnap.DeleteOutcome, error) {
	f.record("DeleteCollection")
	if err := f.DeleteErr[name]; err != nil {
		return docsnap.Deleted, err
	}
	return f.Store.DeleteCollection(ctx, name)
}

func (f *FaultyStore) GetRecords(ctx context.Context, c *docsnap.Collection) (*docsnap.Records, error) {
	f.record("GetRecords")
	if err := f.GetRecordsErr[c.Name]; err != nil {
		return nil, err
	}
	records, err := f.Store.GetRecords(ctx, c)
	if err != nil {
		return nil, err
	}
	if f.Ragged[c.Name] && len(records.Documents) > 0 {
		records.Documents = records.Documents[:len(records.Documents)-1]
	}
	return records, nil
}

func (f *FaultyStore) AddRecords(ctx context.Context, c *docsnap.Collection, records *docsnap.Records) error {
	f.record("AddRecords")
	f.mu.Lock()
	n := f.adds[c.Name]
	f.adds[c.Name]++
	f.mu.Unlock()

	if f.AddFault != nil {
		if err := f.AddFault(c.Name, n); err != nil {
			return err
		}
	}
	return f.Store.AddRecords(ctx, c, records)
}

func (f *FaultyStore) Count(ctx context.Context, c *docsnap.Collection) (int, error) {
	f.record("Count")
	if f.CountErr != nil {
		return 0, f.CountErr
	}
	return f.Store.Count(ctx, c)
}

var _ docsnap.Store = (*FaultyStore)(nil)
