package gitrepo

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"docsnap/internal/docsnap"
)

// Runner executes git subcommands. Production code uses ExecRunner; tests
// substitute a recording fake.
type Runner interface {
	// Run executes git with args in dir and returns its standard output.
	// A failure is reported as a *CommandError.
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecRunner runs the git executable found on PATH.
type ExecRunner struct {
	// Binary overrides the executable name. Defaults to "git".
	Binary string
	Logger docsnap.Logger
}

// NewExecRunner creates an ExecRunner that logs stderr output at debug level.
func NewExecRunner(logger docsnap.Logger) *ExecRunner {
	if logger == nil {
		logger = docsnap.DiscardLogger
	}
	return &ExecRunner{Binary: "git", Logger: logger}
}

func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	bin := r.Binary
	if bin == "" {
		bin = "git"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	command := Redact(bin + " " + strings.Join(args, " "))
	err := cmd.Run()
	detail := strings.TrimSpace(stderr.String())
	if err != nil {
		if detail == "" {
			detail = err.Error()
		}
		return "", &CommandError{Command: command, ExitDetail: Redact(detail), Err: err}
	}

	// git reports progress and hints on stderr even on success
	if detail != "" && r.Logger != nil {
		r.Logger.Debug("git stderr", "command", command, "output", Redact(detail))
	}
	return stdout.String(), nil
}

var _ Runner = (*ExecRunner)(nil)
