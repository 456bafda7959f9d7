package testutil

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// RunnerResponse is one scripted reply of a RecordingRunner.
type RunnerResponse struct {
	Out string
	Err error
}

// RecordingRunner is a fake git Runner. It records every call and replies
// from a script keyed by the space-joined arguments; unscripted calls
// succeed with empty output. A successful clone creates <target>/.git so
// the working copy looks present afterwards.
type RecordingRunner struct {
	mu        sync.Mutex
	calls     []string
	responses map[string][]RunnerResponse
}

func NewRecordingRunner() *RecordingRunner {
	return &RecordingRunner{responses: make(map[string][]RunnerResponse)}
}

// On queues replies for the command formed by args. Each call consumes one
// reply; the last reply repeats.
func (r *RecordingRunner) On(args string, replies ...RunnerResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[args] = append(r.responses[args], replies...)
}

// Calls returns the commands run so far.
func (r *RecordingRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Ran reports whether the exact command was run.
func (r *RecordingRunner) Ran(args string) bool {
	for _, c := range r.Calls() {
		if c == args {
			return true
		}
	}
	return false
}

func (r *RecordingRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	key := strings.Join(args, " ")

	r.mu.Lock()
	r.calls = append(r.calls, key)
	var reply RunnerResponse
	if queue := r.responses[key]; len(queue) > 0 {
		reply = queue[0]
		if len(queue) > 1 {
			r.responses[key] = queue[1:]
		}
	}
	r.mu.Unlock()

	if reply.Err != nil {
		return "", reply.Err
	}
	if len(args) == 3 && args[0] == "clone" {
		if err := os.MkdirAll(filepath.Join(args[2], ".git"), 0o755); err != nil {
			return "", err
		}
	}
	return reply.Out, nil
}
