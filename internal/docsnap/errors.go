package docsnap

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteDisabled is returned by remote-touching operations when no
	// repository token is configured. Nothing was contacted.
	ErrRemoteDisabled = errors.New("remote sync disabled: no repository token configured")

	// ErrCollectionNotFound is returned by Store implementations for a missing collection.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrNothingRestored is returned by Restore when the snapshot held
	// collections to restore and every one of them failed.
	ErrNothingRestored = errors.New("no collection restored")
)

// StoreReadError wraps a failed read scoped to one collection (or to the
// collection listing when Collection is empty).
type StoreReadError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StoreReadError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("store %s %q: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreReadError) Unwrap() error {
	return e.Err
}

// StoreWriteError wraps a failed write scoped to one collection or one batch.
// Batch is -1 for collection-level writes.
type StoreWriteError struct {
	Op         string
	Collection string
	Batch      int
	Err        error
}

func (e *StoreWriteError) Error() string {
	if e.Batch >= 0 {
		return fmt.Sprintf("store %s %q batch %d: %v", e.Op, e.Collection, e.Batch, e.Err)
	}
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}

// CorruptRecordsError reports parallel record arrays of unequal length.
// It is never repaired.
type CorruptRecordsError struct {
	Collection string
	IDs        int
	Documents  int
	Metadatas  int
	Embeddings int
}

func (e *CorruptRecordsError) Error() string {
	return fmt.Sprintf("corrupt records in %q: %d ids, %d documents, %d metadatas, %d embeddings",
		e.Collection, e.IDs, e.Documents, e.Metadatas, e.Embeddings)
}
