package run

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrIntegrity marks a snapshot that breaks the run data contract.
	ErrIntegrity = errors.New("snapshot integrity violation")
	// ErrValidation marks a start request missing a required field.
	ErrValidation = errors.New("invalid start request")
)

// DefaultMaxIterations applies when the backend omits max_iterations.
const DefaultMaxIterations = 5

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ParseStatus maps a wire value to a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return st, nil
	default:
		return "", fmt.Errorf("unknown run status %q", s)
	}
}

// IsTerminal reports whether no further polling is meaningful.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusRunning:
		return 1
	default:
		return 2
	}
}

// Issue is one outstanding lint error or test failure.
type Issue struct {
	File     string
	Line     int
	Type     string // SYNTAX|INDENTATION|IMPORT|TYPE_ERROR|LOGIC|LINTING
	Message  string
	Symbol   string
	TestName string
}

type FixStatus string

const (
	FixStatusFixed  FixStatus = "Fixed"
	FixStatusFailed FixStatus = "Failed"

	// FixStatusLocalOnly is reported when the commit could not be pushed.
	FixStatusLocalOnly FixStatus = "Fixed (Local only - Push Failed)"
)

// IsFixed is true for every Fixed variant, including local-only commits.
func (s FixStatus) IsFixed() bool {
	return strings.HasPrefix(string(s), string(FixStatusFixed))
}

// Known reports whether s is one of the statuses the agent is known to emit.
func (s FixStatus) Known() bool {
	switch s {
	case FixStatusFixed, FixStatusFailed, FixStatusLocalOnly:
		return true
	}
	return false
}

// Fix is one entry of the append-only fix log.
type Fix struct {
	File          string
	BugType       string
	Line          int
	CommitMessage string
	Status        FixStatus
}

// Snapshot is one polled, point-in-time view of a run. It is never mutated
// after decoding; each poll produces a new value.
type Snapshot struct {
	RunID         string
	Status        Status
	RepoURL       string
	TeamName      string
	LeaderName    string
	StartTime     time.Time
	EndTime       *time.Time
	Iteration     int
	MaxIterations int
	LintErrors    []Issue
	TestFailures  []Issue
	FixedIssues   []Fix
	Error         string
}

// OutstandingFailures counts lint errors plus test failures still open.
func (s *Snapshot) OutstandingFailures() int {
	return len(s.LintErrors) + len(s.TestFailures)
}

// Verdict resolves the snapshot's current verdict.
func (s *Snapshot) Verdict() Verdict {
	return ResolveVerdict(s.Status, s.OutstandingFailures())
}

// Score computes the score against now when the run has no end time.
func (s *Snapshot) Score(now time.Time) Score {
	return CalculateScore(s.StartTime, s.EndTime, len(s.FixedIssues), now)
}

// Timeline reconstructs the snapshot's timeline events.
func (s *Snapshot) Timeline() []Event {
	return TimelineEvents(s.Iteration, s.Status, s.StartTime, s.EndTime, s.Verdict())
}

// Validate checks the single-snapshot invariants.
func (s *Snapshot) Validate() error {
	if _, err := ParseStatus(string(s.Status)); err != nil {
		return fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	if s.Status.IsTerminal() && s.EndTime == nil {
		return fmt.Errorf("%w: status %s without end_time", ErrIntegrity, s.Status)
	}
	if !s.Status.IsTerminal() && s.EndTime != nil {
		return fmt.Errorf("%w: status %s with end_time", ErrIntegrity, s.Status)
	}
	if s.Status != StatusPending && s.StartTime.IsZero() {
		return fmt.Errorf("%w: status %s without start_time", ErrIntegrity, s.Status)
	}
	if s.Iteration < 0 {
		return fmt.Errorf("%w: negative iteration %d", ErrIntegrity, s.Iteration)
	}
	if s.MaxIterations <= 0 {
		return fmt.Errorf("%w: max_iterations %d not positive", ErrIntegrity, s.MaxIterations)
	}
	return nil
}

// CheckProgress enforces the invariants between two polls of the same run:
// status only moves forward, iteration never decreases and the fix log of
// prev is a prefix of next's.
func CheckProgress(prev, next *Snapshot) error {
	if prev == nil {
		return nil
	}
	if prev.RunID != next.RunID {
		return fmt.Errorf("%w: run id changed from %q to %q", ErrIntegrity, prev.RunID, next.RunID)
	}
	if next.Status.rank() < prev.Status.rank() {
		return fmt.Errorf("%w: status went back from %s to %s", ErrIntegrity, prev.Status, next.Status)
	}
	if prev.Status.IsTerminal() && next.Status != prev.Status {
		return fmt.Errorf("%w: terminal status %s changed to %s", ErrIntegrity, prev.Status, next.Status)
	}
	if next.Iteration < prev.Iteration {
		return fmt.Errorf("%w: iteration went back from %d to %d", ErrIntegrity, prev.Iteration, next.Iteration)
	}
	if len(next.FixedIssues) < len(prev.FixedIssues) {
		return fmt.Errorf("%w: fixed_issues shrank from %d to %d", ErrIntegrity, len(prev.FixedIssues), len(next.FixedIssues))
	}
	for i, f := range prev.FixedIssues {
		if next.FixedIssues[i] != f {
			return fmt.Errorf("%w: fixed_issues[%d] rewritten", ErrIntegrity, i)
		}
	}
	return nil
}

// StartRequest carries the identity fields needed to start a run.
type StartRequest struct {
	RepoURL    string
	TeamName   string
	LeaderName string
}

// Validate refuses requests with any empty field.
func (r StartRequest) Validate() error {
	switch {
	case r.RepoURL == "":
		return fmt.Errorf("%w: repo url required", ErrValidation)
	case r.TeamName == "":
		return fmt.Errorf("%w: team name required", ErrValidation)
	case r.LeaderName == "":
		return fmt.Errorf("%w: leader name required", ErrValidation)
	}
	return nil
}
