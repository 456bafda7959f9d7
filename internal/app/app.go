package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"docsnap/internal/config"
	"docsnap/internal/docsnap"
	"docsnap/internal/gitrepo"
	"docsnap/internal/history"
	"docsnap/internal/store"
)

// ErrUnhealthy is returned when a health check ends with an unhealthy store.
var ErrUnhealthy = errors.New("store is unhealthy")

// App is the application layer between the CLI and docsnap.Service.
// It constructs all dependencies from config, records every operation in
// the history store and owns the log file and database until Close.
type App struct {
	cfg     *config.Config
	service *docsnap.Service
	history *history.Store
	logger  docsnap.Logger
	clock   docsnap.Clock
	runID   string
	logFile *os.File
	// memory is the process-wide store when the store type is "memory".
	memory *store.MemoryStore
}

// Options lets callers and tests replace collaborators NewApp would build.
type Options struct {
	Runner   gitrepo.Runner
	Environ  func() []string
	Logger   *slog.Logger
	Clock    docsnap.Clock
	IDs      docsnap.IDGenerator
	LogLevel string
}

// NewApp creates a fully wired App from the given config. The caller must
// call Close when done.
func NewApp(cfg *config.Config, opts Options) (*App, error) {
	if opts.Clock == nil {
		opts.Clock = docsnap.SystemClock
	}
	if opts.IDs == nil {
		opts.IDs = docsnap.RandomIDs{}
	}
	runID := opts.IDs.New()

	a := &App{cfg: cfg, clock: opts.Clock, runID: runID}

	l := opts.Logger
	if l == nil {
		var err error
		l, a.logFile, err = newLogger(cfg.LogDir, runID, parseLevel(opts.LogLevel))
		if err != nil {
			return nil, fmt.Errorf("creating logger: %w", err)
		}
	}
	a.logger = &slogAdapter{l: l}

	if cfg.History.Path != "" {
		h, err := history.Open(cfg.History.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("opening history: %w", err)
		}
		a.history = h
	}

	runner := opts.Runner
	if runner == nil {
		runner = gitrepo.NewExecRunner(a.logger)
	}

	sessions := &sessionFactory{
		cfg: cfg,
		resolver: &config.Resolver{
			SecretPath: cfg.SecretFile,
			Environ:    opts.Environ,
			Logf: func(format string, args ...any) {
				a.logger.Info(fmt.Sprintf(format, args...))
			},
		},
		runner: runner,
		logger: a.logger,
	}
	if cfg.Store.Type == "memory" {
		a.memory = store.NewMemoryStore()
		sessions.shared = a.memory
	}

	a.service = docsnap.NewService(sessions, docsnap.Options{
		BatchSize:         cfg.Transfer.BatchSize,
		PrimaryCollection: cfg.Transfer.PrimaryCollection,
	}, a.logger, opts.Clock)
	return a, nil
}

// RunID identifies this process in logs and history.
func (a *App) RunID() string {
	return a.runID
}

// track records op in history around fn. History failures are logged and
// never fail the operation itself.
func (a *App) track(ctx context.Context, name string, fn func(op *Operation) error) error {
	op := NewOperation(name)
	if a.history != nil {
		id, err := a.history.Start(ctx, a.runID, name, a.clock.Now())
		if err != nil {
			a.logger.Warn("history unavailable", "error", err)
		} else {
			op.ID = id
		}
	}

	err := fn(op)

	if op.Persisted() {
		// record the outcome even if ctx has expired
		if ferr := a.history.Finish(context.WithoutCancel(ctx), op.ID, op.Status, op.Detail, op.Documents, a.clock.Now()); ferr != nil {
			a.logger.Warn("history not updated", "error", ferr)
		}
	}
	return err
}

// Check verifies the store and restores it from the repository when needed.
// An unhealthy outcome is returned as ErrUnhealthy alongside the report.
func (a *App) Check(ctx context.Context) (docsnap.HealthReport, error) {
	var report docsnap.HealthReport
	err := a.track(ctx, "check", func(op *Operation) error {
		report = a.service.VerifyAndHeal(ctx)
		var err error
		if report.Status != docsnap.Healthy {
			err = fmt.Errorf("%w: %s", ErrUnhealthy, report.Reason)
		}
		op.Complete(report.Status.String(), report.Documents+report.Restored, err)
		return err
	})
	return report, err
}

// Backup publishes a snapshot of the store.
func (a *App) Backup(ctx context.Context) (*docsnap.BackupResult, error) {
	var result *docsnap.BackupResult
	err := a.track(ctx, "backup", func(op *Operation) error {
		var err error
		result, err = a.service.Backup(ctx)
		if err != nil {
			op.Complete("", 0, err)
			return err
		}
		detail := fmt.Sprintf("%d collections", result.Snapshot.TotalCollections)
		if len(result.Skipped) > 0 {
			detail += fmt.Sprintf(", %d skipped", len(result.Skipped))
		}
		op.Complete(detail, result.Documents, nil)
		return nil
	})
	return result, err
}

// Restore rehydrates the store from the latest snapshot.
func (a *App) Restore(ctx context.Context) (int, error) {
	var n int
	err := a.track(ctx, "restore", func(op *Operation) error {
		var err error
		n, err = a.service.Restore(ctx)
		op.Complete(fmt.Sprintf("%d documents", n), n, err)
		return err
	})
	return n, err
}

// Schedule runs the check-then-periodic-backup loop until ctx is done.
// A positive timeout bounds every check and backup separately.
func (a *App) Schedule(ctx context.Context, timeout time.Duration) error {
	s := &Scheduler{
		Interval:     a.cfg.Schedule.Interval,
		InitialDelay: a.cfg.Schedule.InitialDelay,
		Timeout:      timeout,
		Check: func(ctx context.Context) docsnap.HealthReport {
			report, _ := a.Check(ctx)
			return report
		},
		Backup: func(ctx context.Context) error {
			_, err := a.Backup(ctx)
			return err
		},
		Logger: a.logger,
	}
	return s.Run(ctx)
}

// History returns the most recent operations, newest first.
func (a *App) History(ctx context.Context, limit int) ([]history.Operation, error) {
	if a.history == nil {
		return nil, fmt.Errorf("history is disabled (history.path is empty)")
	}
	return a.history.List(ctx, limit)
}

// Close releases the history database and the log file.
func (a *App) Close() error {
	var firstErr error
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			firstErr = fmt.Errorf("closing history: %w", err)
		}
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}
