package app

import (
	"errors"

	"docsnap/internal/docsnap"
	"docsnap/internal/history"
)

// Operation tracks one top-level command while it runs. It is recorded in
// the history store only when one is configured (ID != 0).
type Operation struct {
	ID        int64
	Name      string
	Status    string
	Detail    string
	Documents int
}

// NewOperation creates an in-memory operation that has not started yet.
func NewOperation(name string) *Operation {
	return &Operation{Name: name, Status: history.StatusRunning}
}

// Persisted returns true if this operation has been saved to the history store.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Complete sets the terminal status from the outcome of the operation.
// A disabled remote is recorded as a failure with its own detail.
func (op *Operation) Complete(detail string, documents int, err error) {
	op.Documents = documents
	switch {
	case err == nil:
		op.Status = history.StatusSuccess
		op.Detail = detail
	case errors.Is(err, docsnap.ErrRemoteDisabled):
		op.Status = history.StatusFailure
		op.Detail = "remote disabled"
	default:
		op.Status = history.StatusFailure
		op.Detail = err.Error()
	}
}
