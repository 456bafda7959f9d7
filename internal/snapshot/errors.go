package snapshot

import "fmt"

// CorruptSnapshotError means the snapshot cannot be restored from at all.
type CorruptSnapshotError struct {
	Collection string
	Reason     string
	Err        error
}

func (e *CorruptSnapshotError) Error() string {
	msg := "corrupt snapshot"
	if e.Collection != "" {
		msg += fmt.Sprintf(": collection %q", e.Collection)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptSnapshotError) Unwrap() error {
	return e.Err
}
