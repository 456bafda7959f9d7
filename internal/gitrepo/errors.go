package gitrepo

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrSnapshotMissing is returned by ReadSnapshot when the working copy has no snapshot file.
var ErrSnapshotMissing = errors.New("snapshot file not found in working copy")

// CommandError is a failed git invocation. Credentials embedded in remote
// URLs are redacted from both fields.
type CommandError struct {
	Command    string
	ExitDetail string
	Err        error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Command, e.ExitDetail)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// PublishError means the snapshot was committed locally but could not be pushed.
type PublishError struct {
	Branch string
	// Forced is true when the lease-protected retry also failed.
	Forced bool
	Err    error
}

func (e *PublishError) Error() string {
	if e.Forced {
		return fmt.Sprintf("publishing to %s failed after lease retry: %v", e.Branch, e.Err)
	}
	return fmt.Sprintf("publishing to %s failed: %v", e.Branch, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

var credentials = regexp.MustCompile(`(https?://)[^@/\s]+@`)

// Redact hides credentials in any URL found in s.
func Redact(s string) string {
	return credentials.ReplaceAllString(s, "${1}***@")
}
