package docsnap

import (
	"context"
	"fmt"

	"docsnap/internal/snapshot"
)

// BackupResult describes a published snapshot.
type BackupResult struct {
	Snapshot *snapshot.Snapshot
	// Skipped lists collections that could not be read and are absent from the snapshot.
	Skipped []string
	// Documents is the number of records captured across all collections.
	Documents int
}

// Backup serializes every collection in the store into one snapshot and
// publishes it to the repository.
//
// A collection that fails to read is logged and left out; the rest of the
// backup proceeds. Failures to list collections, refresh the working copy or
// publish abort the backup. Without a repository token nothing is contacted
// and ErrRemoteDisabled is returned.
func (s *Service) Backup(ctx context.Context) (*BackupResult, error) {
	s.logger.Info("backup started")

	sess, err := s.sessions.OpenSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}
	if !sess.RemoteEnabled {
		s.logger.Warn("backup skipped", "reason", ErrRemoteDisabled.Error())
		return nil, ErrRemoteDisabled
	}

	collections, err := sess.Store.ListCollections(ctx)
	if err != nil {
		return nil, &StoreReadError{Op: "list collections", Err: err}
	}
	s.logger.Info("collections found", "count", len(collections))

	result := &BackupResult{}
	backups := make([]snapshot.CollectionBackup, 0, len(collections))
	for i := range collections {
		c := &collections[i]
		cb, err := s.readCollection(ctx, sess.Store, c)
		if err != nil {
			s.logger.Error("collection skipped", "collection", c.Name, "error", err)
			result.Skipped = append(result.Skipped, c.Name)
			continue
		}
		backups = append(backups, *cb)
		result.Documents += cb.TotalDocuments
		s.logger.Info("collection captured", "collection", c.Name, "documents", cb.TotalDocuments)
	}

	snap := snapshot.New(s.clock.Now(), backups)
	data, err := snapshot.Encode(snap)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}

	if _, err := sess.Repository.EnsureUpToDate(ctx); err != nil {
		return nil, fmt.Errorf("refreshing working copy: %w", err)
	}
	if err := sess.Repository.Publish(ctx, data, s.commitMessage()); err != nil {
		return nil, fmt.Errorf("publishing snapshot: %w", err)
	}

	result.Snapshot = snap
	s.logger.Info("backup complete",
		"collections", snap.TotalCollections,
		"documents", result.Documents,
		"skipped", len(result.Skipped),
		"bytes", len(data))
	return result, nil
}

// readCollection captures one collection with a single GetRecords call.
func (s *Service) readCollection(ctx context.Context, store Store, c *Collection) (*snapshot.CollectionBackup, error) {
	records, err := store.GetRecords(ctx, c)
	if err != nil {
		return nil, &StoreReadError{Op: "get records", Collection: c.Name, Err: err}
	}
	if err := records.Validate(c.Name); err != nil {
		return nil, err
	}

	metadata := c.Metadata
	if metadata == nil {
		metadata = snapshot.Metadata{}
	}
	return &snapshot.CollectionBackup{
		Name:           c.Name,
		Metadata:       metadata,
		TotalDocuments: records.Len(),
		Data:           records.Data(),
	}, nil
}
