package tui

import (
	"time"

	"github.com/marcin-skalski/fixwatch/internal/dashboard"
)

// Snapshot is everything the TUI renders in one frame.
type Snapshot struct {
	Timestamp    time.Time
	State        string // idle|starting|polling|terminated|errored
	RunID        string
	Loading      bool
	Err          string
	SkippedPolls int
	LastPoll     time.Time
	View         *dashboard.View // nil until the first snapshot arrives
}
