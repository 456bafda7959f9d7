package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"docsnap/internal/docsnap"
)

// State is the condition of the local working copy.
type State int

const (
	// Absent means no clone exists at the working directory.
	Absent State = iota
	// Present means a clone exists; it may be stale.
	Present
)

func (s State) String() string {
	if s == Present {
		return "present"
	}
	return "absent"
}

// Options configures a Synchronizer.
type Options struct {
	// Dir is the working copy location.
	Dir string
	// RemoteURL embeds the token. Empty disables every remote operation.
	RemoteURL    string
	Branch       string
	SnapshotFile string
	// LeaseForcePush allows one --force-with-lease retry after a rejected push.
	LeaseForcePush bool
	AuthorName     string
	AuthorEmail    string
}

// Synchronizer keeps a local clone in line with the remote and publishes
// snapshots to it. It is not safe for concurrent use.
type Synchronizer struct {
	runner Runner
	opts   Options
	logger docsnap.Logger

	// tip is the remote branch head seen by the last fetch; empty when the
	// remote branch did not exist.
	tip     string
	fetched bool
}

var errCheckout = errors.New("working copy checkout failed")

// NewSynchronizer creates a Synchronizer. No command runs until the first call.
func NewSynchronizer(runner Runner, opts Options, logger docsnap.Logger) *Synchronizer {
	if opts.Branch == "" {
		opts.Branch = "main"
	}
	if opts.SnapshotFile == "" {
		opts.SnapshotFile = "chroma_data.json"
	}
	if logger == nil {
		logger = docsnap.DiscardLogger
	}
	return &Synchronizer{runner: runner, opts: opts, logger: logger}
}

// Enabled reports whether a remote is configured.
func (s *Synchronizer) Enabled() bool {
	return s.opts.RemoteURL != ""
}

// State inspects the working directory.
func (s *Synchronizer) State() State {
	if info, err := os.Stat(filepath.Join(s.opts.Dir, ".git")); err == nil && info.IsDir() {
		return Present
	}
	return Absent
}

// EnsureUpToDate clones the remote or resets the existing clone to the
// remote branch. With no remote configured it does nothing and returns false.
func (s *Synchronizer) EnsureUpToDate(ctx context.Context) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}

	if s.State() == Absent {
		if err := s.clone(ctx); err != nil {
			return false, err
		}
		return s.result(s.sync(ctx))
	}

	err := s.sync(ctx)
	if !errors.Is(err, errCheckout) {
		return s.result(err)
	}

	s.logger.Warn("working copy unusable, cloning again", "dir", s.opts.Dir, "error", err)
	if err := os.RemoveAll(s.opts.Dir); err != nil {
		return false, fmt.Errorf("removing working copy: %w", err)
	}
	if err := s.clone(ctx); err != nil {
		return false, err
	}
	return s.result(s.sync(ctx))
}

func (s *Synchronizer) result(err error) (bool, error) {
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Synchronizer) clone(ctx context.Context) error {
	parent := filepath.Dir(s.opts.Dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("creating working copy parent: %w", err)
	}

	s.logger.Info("cloning repository", "url", Redact(s.opts.RemoteURL), "dir", s.opts.Dir)
	if _, err := s.git(ctx, parent, "clone", s.opts.RemoteURL, s.opts.Dir); err != nil {
		return err
	}
	return nil
}

// sync checks out the branch and hard-resets it to the remote head.
func (s *Synchronizer) sync(ctx context.Context) error {
	branch := s.opts.Branch

	if _, err := s.git(ctx, s.opts.Dir, "checkout", branch); err != nil {
		if _, err := s.git(ctx, s.opts.Dir, "checkout", "-b", branch); err != nil {
			return fmt.Errorf("%w: %w", errCheckout, err)
		}
	}
	if _, err := s.git(ctx, s.opts.Dir, "reset", "--hard"); err != nil {
		return err
	}
	if _, err := s.git(ctx, s.opts.Dir, "fetch", "origin"); err != nil {
		return err
	}

	out, err := s.git(ctx, s.opts.Dir, "rev-parse", "--verify", "--quiet", "refs/remotes/origin/"+branch)
	s.fetched = true
	if err != nil {
		s.tip = ""
		s.logger.Info("remote branch does not exist yet", "branch", branch)
		return nil
	}
	s.tip = strings.TrimSpace(out)

	if _, err := s.git(ctx, s.opts.Dir, "reset", "--hard", "origin/"+branch); err != nil {
		return err
	}
	s.logger.Debug("working copy up to date", "branch", branch, "tip", s.tip)
	return nil
}

// ReadSnapshot returns the snapshot file contents from the working copy.
func (s *Synchronizer) ReadSnapshot(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.snapshotPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotMissing, s.opts.SnapshotFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return data, nil
}

// Publish writes data as the snapshot file, commits it and pushes the
// branch. A commit is made even when the content did not change.
func (s *Synchronizer) Publish(ctx context.Context, data []byte, message string) error {
	if !s.Enabled() {
		return docsnap.ErrRemoteDisabled
	}

	if err := writeFileAtomic(s.snapshotPath(), data); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	dir := s.opts.Dir
	steps := [][]string{
		{"config", "user.name", s.opts.AuthorName},
		{"config", "user.email", s.opts.AuthorEmail},
		{"add", "-A"},
		{"commit", "--allow-empty", "-m", message},
	}
	for _, args := range steps {
		if _, err := s.git(ctx, dir, args...); err != nil {
			return err
		}
	}

	branch := s.opts.Branch
	_, err := s.git(ctx, dir, "push", "origin", branch)
	if err == nil {
		s.logger.Info("snapshot published", "branch", branch)
		return nil
	}
	if !s.opts.LeaseForcePush || !isRejected(err) {
		return &PublishError{Branch: branch, Err: err}
	}

	lease := "--force-with-lease=" + branch
	if s.fetched {
		lease += ":" + s.tip
	}
	s.logger.Warn("push rejected, retrying with lease", "branch", branch, "expected", s.tip)
	if _, err := s.git(ctx, dir, "push", lease, "origin", branch); err != nil {
		return &PublishError{Branch: branch, Forced: true, Err: err}
	}
	s.logger.Info("snapshot published with lease", "branch", branch)
	return nil
}

func (s *Synchronizer) snapshotPath() string {
	return filepath.Join(s.opts.Dir, s.opts.SnapshotFile)
}

func (s *Synchronizer) git(ctx context.Context, dir string, args ...string) (string, error) {
	out, err := s.runner.Run(ctx, dir, args...)
	if err != nil {
		var cmdErr *CommandError
		if !errors.As(err, &cmdErr) {
			err = &CommandError{Command: Redact("git " + strings.Join(args, " ")), ExitDetail: Redact(err.Error()), Err: err}
		}
		return "", err
	}
	return out, nil
}

// isRejected reports whether a push failed because the remote moved.
func isRejected(err error) bool {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	detail := strings.ToLower(cmdErr.ExitDetail)
	for _, marker := range []string{"[rejected]", "non-fast-forward", "fetch first", "stale info"} {
		if strings.Contains(detail, marker) {
			return true
		}
	}
	return false
}

var _ docsnap.Repository = (*Synchronizer)(nil)
