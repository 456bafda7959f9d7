package docsnap

import (
	"context"
	"errors"
	"fmt"

	"docsnap/internal/snapshot"
)

// progressEvery controls how often restore progress is logged, in records.
const progressEvery = 100

// Restore rehydrates the store from the latest snapshot in the repository.
//
// The returned count is the number of records attempted across all restored
// collections, not the number confirmed written: a failing batch is logged
// and skipped and later batches still run. A corrupt or missing snapshot
// restores nothing and returns 0 with the cause, as does a snapshot whose
// collections all fail to be recreated (ErrNothingRestored).
func (s *Service) Restore(ctx context.Context) (int, error) {
	s.logger.Info("restore started")

	sess, err := s.sessions.OpenSession(ctx)
	if err != nil {
		return 0, fmt.Errorf("opening session: %w", err)
	}
	return s.restore(ctx, sess)
}

func (s *Service) restore(ctx context.Context, sess *Session) (int, error) {
	if !sess.RemoteEnabled {
		s.logger.Warn("restore skipped", "reason", ErrRemoteDisabled.Error())
		return 0, ErrRemoteDisabled
	}

	if _, err := sess.Repository.EnsureUpToDate(ctx); err != nil {
		return 0, fmt.Errorf("refreshing working copy: %w", err)
	}

	data, err := sess.Repository.ReadSnapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading snapshot: %w", err)
	}

	snap, err := snapshot.Decode(data)
	if err != nil {
		return 0, err
	}
	for _, issue := range snap.Inconsistencies() {
		s.logger.Warn("snapshot inconsistency", "detail", issue)
	}
	if snap.Version != snapshot.FormatVersion {
		s.logger.Info("snapshot format version differs", "found", snap.Version, "current", snapshot.FormatVersion)
	}
	s.logger.Info("snapshot loaded", "timestamp", snap.Timestamp, "collections", len(snap.Collections))

	var existing map[string]bool
	if !sess.ResetAllowed {
		existing, err = s.collectionNames(ctx, sess.Store)
		if err != nil {
			return 0, err
		}
	}

	total, restored := 0, 0
	var lastErr error
	for i := range snap.Collections {
		cb := &snap.Collections[i]
		if existing[cb.Name] {
			s.logger.Warn("collection kept, reset not allowed", "collection", cb.Name)
			continue
		}

		n, err := s.restoreCollection(ctx, sess.Store, cb)
		if err != nil {
			s.logger.Error("collection not restored", "collection", cb.Name, "error", err)
			lastErr = err
			continue
		}
		restored++
		total += n
	}

	if restored == 0 && lastErr != nil {
		return 0, fmt.Errorf("%w: %w", ErrNothingRestored, lastErr)
	}
	s.logger.Info("restore complete", "collections", restored, "documents", total)
	return total, nil
}

// restoreCollection replaces one collection and writes its records in
// batches. It returns the number of records attempted.
func (s *Service) restoreCollection(ctx context.Context, store Store, cb *snapshot.CollectionBackup) (int, error) {
	records := RecordsFromData(cb.Data)
	total := records.Len()
	s.logger.Info("restoring collection", "collection", cb.Name, "documents", total)

	outcome, err := store.DeleteCollection(ctx, cb.Name)
	if err != nil {
		return 0, &StoreWriteError{Op: "delete collection", Collection: cb.Name, Batch: -1, Err: err}
	}
	s.logger.Debug("previous collection removed", "collection", cb.Name, "outcome", outcome.String())

	c, err := store.CreateCollection(ctx, cb.Name, cb.Metadata)
	if err != nil {
		return 0, &StoreWriteError{Op: "create collection", Collection: cb.Name, Batch: -1, Err: err}
	}

	failed := 0
	done := 0
	for i, batch := range records.Partition(s.opts.BatchSize) {
		if batch.Len() > 0 {
			if err := store.AddRecords(ctx, c, batch); err != nil {
				failed++
				werr := &StoreWriteError{Op: "add records", Collection: cb.Name, Batch: i, Err: err}
				s.logger.Error("batch failed", "collection", cb.Name, "batch", i, "size", batch.Len(), "error", werr)
			}
		}

		done += batch.Len()
		if done%progressEvery == 0 || done == total {
			s.logger.Info("restore progress", "collection", cb.Name, "done", done, "total", total)
		}
	}

	if failed > 0 {
		s.logger.Warn("collection partially restored", "collection", cb.Name, "failed_batches", failed)
	} else {
		s.logger.Info("collection restored", "collection", cb.Name)
	}
	return total, nil
}

func (s *Service) collectionNames(ctx context.Context, store Store) (map[string]bool, error) {
	collections, err := store.ListCollections(ctx)
	if err != nil {
		return nil, &StoreReadError{Op: "list collections", Err: err}
	}
	names := make(map[string]bool, len(collections))
	for _, c := range collections {
		names[c.Name] = true
	}
	return names, nil
}

// IsCorruptSnapshot reports whether err means the snapshot itself is unusable.
func IsCorruptSnapshot(err error) bool {
	var corrupt *snapshot.CorruptSnapshotError
	return errors.As(err, &corrupt)
}
