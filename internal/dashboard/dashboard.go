// Package dashboard turns a polled run snapshot into the view state shown to
// the operator.
package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/marcin-skalski/fixwatch/internal/run"
)

const githubPrefix = "https://github.com/"

// View is the fully derived, render-ready state of one snapshot.
type View struct {
	RunID         string
	RepoURL       string
	RepoSlug      string
	TeamName      string
	LeaderName    string
	Branch        string
	Status        run.Status
	Verdict       run.Verdict
	Score         run.Score
	Timeline      []run.Event
	Fixes         []run.Fix
	LintErrors    []run.Issue
	TestFailures  []run.Issue
	Outstanding   int
	FixesApplied  int
	TotalFailures int
	Iteration     int
	MaxIterations int
	StartTime     time.Time
	EndTime       *time.Time
	Error         string
}

// Derive validates snap and runs every derivation against it. now only
// matters while the run has no end time.
func Derive(snap *run.Snapshot, now time.Time) (View, error) {
	if snap == nil {
		return View{}, fmt.Errorf("derive view: %w: nil snapshot", run.ErrIntegrity)
	}
	if err := snap.Validate(); err != nil {
		return View{}, fmt.Errorf("derive view: %w", err)
	}

	verdict := snap.Verdict()
	outstanding := snap.OutstandingFailures()
	fixes := len(snap.FixedIssues)

	return View{
		RunID:         snap.RunID,
		RepoURL:       snap.RepoURL,
		RepoSlug:      RepoSlug(snap.RepoURL),
		TeamName:      snap.TeamName,
		LeaderName:    snap.LeaderName,
		Branch:        run.BranchName(snap.TeamName, snap.LeaderName),
		Status:        snap.Status,
		Verdict:       verdict,
		Score:         snap.Score(now),
		Timeline:      run.TimelineEvents(snap.Iteration, snap.Status, snap.StartTime, snap.EndTime, verdict),
		Fixes:         snap.FixedIssues,
		LintErrors:    snap.LintErrors,
		TestFailures:  snap.TestFailures,
		Outstanding:   outstanding,
		FixesApplied:  fixes,
		TotalFailures: outstanding + fixes,
		Iteration:     snap.Iteration,
		MaxIterations: snap.MaxIterations,
		StartTime:     snap.StartTime,
		EndTime:       snap.EndTime,
		Error:         snap.Error,
	}, nil
}

// StatusLabel is the headline shown for the run. A pending run has no
// meaningful verdict yet, so it reads PENDING rather than its FAILED verdict.
func (v View) StatusLabel() string {
	if v.Status == run.StatusPending {
		return "PENDING"
	}
	return v.Verdict.String()
}

// RepoSlug shortens a GitHub URL to owner/name; other URLs pass through.
func RepoSlug(repoURL string) string {
	slug := strings.TrimPrefix(repoURL, githubPrefix)
	return strings.TrimSuffix(slug, ".git")
}
