package docsnap

import (
	"context"
	"fmt"
)

// Health is the terminal outcome of VerifyAndHeal.
type Health int

const (
	Healthy Health = iota
	Unhealthy
)

func (h Health) String() string {
	if h == Healthy {
		return "healthy"
	}
	return "unhealthy"
}

// HealthReport explains a VerifyAndHeal outcome.
type HealthReport struct {
	Status Health
	// Documents is the primary collection's count when the store was found healthy.
	Documents int
	// Restored is the number of records a triggered restore attempted.
	Restored int
	// Reason says why a restore was needed or why the store is unhealthy.
	Reason string
}

// VerifyAndHeal inspects the store and restores it from the repository when
// it is empty, lacks the primary collection, has an empty primary collection,
// or cannot be probed. It never returns an error: every failure ends in an
// Unhealthy report. Calling it again without external changes yields the same
// outcome.
func (s *Service) VerifyAndHeal(ctx context.Context) HealthReport {
	s.logger.Info("verifying store", "primary", s.opts.PrimaryCollection)

	sess, err := s.sessions.OpenSession(ctx)
	if err != nil {
		s.logger.Error("cannot open session", "error", err)
		return HealthReport{Status: Unhealthy, Reason: fmt.Sprintf("opening session: %v", err)}
	}

	count, reason, err := s.probe(ctx, sess.Store)
	if err == nil && reason == "" {
		s.logger.Info("store healthy", "primary", s.opts.PrimaryCollection, "documents", count)
		return HealthReport{Status: Healthy, Documents: count}
	}
	if err != nil {
		reason = fmt.Sprintf("probe failed: %v", err)
		s.logger.Error("store probe failed", "error", err)
	} else {
		s.logger.Warn("store needs restore", "reason", reason)
	}

	if !sess.RemoteEnabled {
		s.logger.Warn("restore unavailable", "reason", ErrRemoteDisabled.Error())
		return HealthReport{Status: Unhealthy, Reason: reason + "; " + ErrRemoteDisabled.Error()}
	}

	restored, err := s.restore(ctx, sess)
	if err != nil {
		s.logger.Error("restore failed", "error", err)
		return HealthReport{Status: Unhealthy, Reason: fmt.Sprintf("%s; restore failed: %v", reason, err)}
	}
	if restored == 0 {
		s.logger.Warn("restore produced no documents, store stays empty")
		return HealthReport{Status: Unhealthy, Reason: reason + "; snapshot held no documents"}
	}

	s.logger.Info("store restored from repository", "documents", restored)
	return HealthReport{Status: Healthy, Restored: restored, Reason: reason}
}

// probe returns the primary collection's count when the store looks healthy.
// A non-empty reason means the store is reachable but needs a restore.
func (s *Service) probe(ctx context.Context, store Store) (int, string, error) {
	if err := store.Heartbeat(ctx); err != nil {
		return 0, "", fmt.Errorf("heartbeat: %w", err)
	}

	collections, err := store.ListCollections(ctx)
	if err != nil {
		return 0, "", &StoreReadError{Op: "list collections", Err: err}
	}
	if len(collections) == 0 {
		return 0, "store has no collections", nil
	}

	var c *Collection
	for i := range collections {
		if collections[i].Name == s.opts.PrimaryCollection {
			c = &collections[i]
			break
		}
	}
	if c == nil {
		return 0, fmt.Sprintf("primary collection %q is missing", s.opts.PrimaryCollection), nil
	}

	count, err := store.Count(ctx, c)
	if err != nil {
		return 0, "", &StoreReadError{Op: "count", Collection: c.Name, Err: err}
	}
	if count == 0 {
		return 0, fmt.Sprintf("primary collection %q is empty", s.opts.PrimaryCollection), nil
	}
	return count, "", nil
}
