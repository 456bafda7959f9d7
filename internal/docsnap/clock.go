package docsnap

import (
	"time"

	"github.com/google/uuid"
)

// Clock is the service's only source of time. Snapshot timestamps and commit
// messages derive from it.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reports wall-clock time in UTC.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })

// IDGenerator hands out the run ids that tie log lines to history rows.
type IDGenerator interface {
	New() string
}

// RandomIDs issues version 4 UUIDs.
type RandomIDs struct{}

func (RandomIDs) New() string { return uuid.NewString() }
