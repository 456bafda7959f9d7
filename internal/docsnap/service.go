package docsnap

import "fmt"

// DefaultBatchSize is the number of records sent per AddRecords call during restore.
const DefaultBatchSize = 100

// DefaultPrimaryCollection is the collection whose presence signals a healthy store.
const DefaultPrimaryCollection = "regras_sistema"

// Options tunes the service.
type Options struct {
	BatchSize         int
	PrimaryCollection string
}

// Service is the orchestration layer that moves collections between the
// document store and the snapshot repository.
//
// It holds no locks. At most one Backup, Restore or VerifyAndHeal may run at
// a time against a given store and working copy; callers serialize them.
type Service struct {
	sessions SessionFactory
	opts     Options
	logger   Logger
	clock    Clock
}

// NewService creates a Service. Zero-valued options fall back to defaults.
func NewService(sessions SessionFactory, opts Options, logger Logger, clock Clock) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.PrimaryCollection == "" {
		opts.PrimaryCollection = DefaultPrimaryCollection
	}
	return &Service{
		sessions: sessions,
		opts:     opts,
		logger:   logger,
		clock:    clock,
	}
}

// commitMessage names a backup commit after the day it was taken.
func (s *Service) commitMessage() string {
	return fmt.Sprintf("Backup Chroma - %s", s.clock.Now().UTC().Format("2006-01-02"))
}
