package docsnap

import (
	"context"

	"docsnap/internal/snapshot"
)

// Collection is a handle to a named collection in the document store.
// ID is assigned by the store and only meaningful to the adapter that returned it.
type Collection struct {
	ID       string
	Name     string
	Metadata snapshot.Metadata
}

// DeleteOutcome distinguishes a real deletion from a collection that was already gone.
// Both are successes.
type DeleteOutcome int

const (
	Deleted DeleteOutcome = iota
	AlreadyAbsent
)

func (o DeleteOutcome) String() string {
	if o == AlreadyAbsent {
		return "already-absent"
	}
	return "deleted"
}

// Store is the narrow interface over the document store. Calls against one
// collection handle are never made concurrently.
type Store interface {
	// Heartbeat verifies that the store is reachable.
	Heartbeat(ctx context.Context) error

	// ListCollections returns every collection in store order.
	ListCollections(ctx context.Context) ([]Collection, error)

	// GetCollection returns the named collection or ErrCollectionNotFound.
	GetCollection(ctx context.Context, name string) (*Collection, error)

	// CreateCollection creates a collection with the given metadata.
	CreateCollection(ctx context.Context, name string, metadata snapshot.Metadata) (*Collection, error)

	// DeleteCollection removes the named collection. A collection that does
	// not exist yields AlreadyAbsent and a nil error.
	DeleteCollection(ctx context.Context, name string) (DeleteOutcome, error)

	// GetRecords returns all records of the collection in insertion order.
	GetRecords(ctx context.Context, c *Collection) (*Records, error)

	// AddRecords appends records to the collection.
	AddRecords(ctx context.Context, c *Collection, records *Records) error

	// Count returns the number of records in the collection.
	Count(ctx context.Context, c *Collection) (int, error)
}

// Repository is the durable home of snapshots.
type Repository interface {
	// EnsureUpToDate brings the local working copy in line with the remote.
	// It returns false without doing anything when remote sync is disabled.
	EnsureUpToDate(ctx context.Context) (bool, error)

	// ReadSnapshot returns the snapshot file from the working copy.
	ReadSnapshot(ctx context.Context) ([]byte, error)

	// Publish writes, commits and pushes a snapshot.
	Publish(ctx context.Context, data []byte, message string) error
}

// Session is everything one top-level operation needs. It is built fresh
// for every operation from freshly resolved configuration and discarded
// when the operation ends.
type Session struct {
	Store         Store
	Repository    Repository
	RemoteEnabled bool
	ResetAllowed  bool
}

// SessionFactory opens a Session. Implementations resolve configuration on
// every call.
type SessionFactory interface {
	OpenSession(ctx context.Context) (*Session, error)
}

// SessionFactoryFunc adapts a function to SessionFactory.
type SessionFactoryFunc func(ctx context.Context) (*Session, error)

func (f SessionFactoryFunc) OpenSession(ctx context.Context) (*Session, error) { return f(ctx) }
