package testutil

import (
	"context"
	"sync"

	"docsnap/internal/docsnap"
	"docsnap/internal/gitrepo"
)

// FakeRepository is an in-memory Repository. Publish replaces the stored
// snapshot so a later ReadSnapshot returns what was last published.
type FakeRepository struct {
	mu sync.Mutex

	snapshot []byte
	present  bool

	Messages []string

	EnsureErr  error
	ReadErr    error
	PublishErr error

	EnsureCalls  int
	ReadCalls    int
	PublishCalls int
}

// NewFakeRepository returns a repository with no snapshot.
func NewFakeRepository() *FakeRepository {
	return &FakeRepository{}
}

// SetSnapshot stores data as the current snapshot.
func (r *FakeRepository) SetSnapshot(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = append([]byte(nil), data...)
	r.present = true
}

// Snapshot returns the current snapshot and whether one exists.
func (r *FakeRepository) Snapshot() ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.snapshot...), r.present
}

// TotalCalls returns the number of calls across all methods.
func (r *FakeRepository) TotalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.EnsureCalls + r.ReadCalls + r.PublishCalls
}

func (r *FakeRepository) EnsureUpToDate(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.EnsureCalls++
	if r.EnsureErr != nil {
		return false, r.EnsureErr
	}
	return true, nil
}

func (r *FakeRepository) ReadSnapshot(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ReadCalls++
	if r.ReadErr != nil {
		return nil, r.ReadErr
	}
	if !r.present {
		return nil, gitrepo.ErrSnapshotMissing
	}
	return append([]byte(nil), r.snapshot...), nil
}

func (r *FakeRepository) Publish(ctx context.Context, data []byte, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.PublishCalls++
	if r.PublishErr != nil {
		return r.PublishErr
	}
	r.snapshot = append([]byte(nil), data...)
	r.present = true
	r.Messages = append(r.Messages, message)
	return nil
}

var _ docsnap.Repository = (*FakeRepository)(nil)

// StaticSessions returns a SessionFactory that hands out the same
// collaborators on every call.
func StaticSessions(s docsnap.Store, r docsnap.Repository, remoteEnabled, resetAllowed bool) docsnap.SessionFactory {
	return docsnap.SessionFactoryFunc(func(ctx context.Context) (*docsnap.Session, error) {
		return &docsnap.Session{
			Store:         s,
			Repository:    r,
			RemoteEnabled: remoteEnabled,
			ResetAllowed:  resetAllowed,
		}, nil
	})
}
