package backend

import (
	"fmt"
	"time"

	"github.com/marcin-skalski/fixwatch/internal/run"
)

// wireSnapshot mirrors GET /results/{run_id}. While a run is pending the
// backend only returns {"status": "pending", "request": {...}}.
type wireSnapshot struct {
	Status        string          `json:"status"`
	TeamName      string          `json:"team_name"`
	LeaderName    string          `json:"leader_name"`
	RepoURL       string          `json:"repo_url"`
	StartTime     string          `json:"start_time"`
	EndTime       string          `json:"end_time"`
	Iteration     int             `json:"iteration"`
	MaxIterations int             `json:"max_iterations"`
	LintErrors    []wireIssue     `json:"lint_errors"`
	TestFailures  []wireIssue     `json:"test_failures"`
	FixedIssues   []wireFix       `json:"fixed_issues"`
	Error         string          `json:"error"`
	Request       *analyzeRequest `json:"request"`
}

type wireIssue struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Type     string `json:"type"`
	Message  string `json:"message"`
	Symbol   string `json:"symbol"`
	TestName string `json:"test_name"`
}

type wireFix struct {
	File          string `json:"file"`
	BugType       string `json:"bug_type"`
	Line          int    `json:"line"`
	CommitMessage string `json:"commit_message"`
	Status        string `json:"status"`
}

// Layouts accepted for start_time/end_time. The reference backend emits
// naive ISO-8601 timestamps, which are read as local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339Nano {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized timestamp %q", s)
}

func normalizeSnapshot(runID string, w wireSnapshot) (*run.Snapshot, error) {
	status, err := run.ParseStatus(w.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	start, err := parseTimestamp(w.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: start_time: %v", ErrMalformed, err)
	}
	end, err := parseTimestamp(w.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: end_time: %v", ErrMalformed, err)
	}

	snap := &run.Snapshot{
		RunID:         runID,
		Status:        status,
		RepoURL:       w.RepoURL,
		TeamName:      w.TeamName,
		LeaderName:    w.LeaderName,
		EndTime:       end,
		Iteration:     w.Iteration,
		MaxIterations: w.MaxIterations,
		LintErrors:    normalizeIssues(w.LintErrors),
		TestFailures:  normalizeIssues(w.TestFailures),
		FixedIssues:   normalizeFixes(w.FixedIssues),
		Error:         w.Error,
	}
	if start != nil {
		snap.StartTime = *start
	}
	if snap.MaxIterations == 0 {
		snap.MaxIterations = run.DefaultMaxIterations
	}
	if r := w.Request; r != nil {
		if snap.RepoURL == "" {
			snap.RepoURL = r.RepoURL
		}
		if snap.TeamName == "" {
			snap.TeamName = r.TeamName
		}
		if snap.LeaderName == "" {
			snap.LeaderName = r.LeaderName
		}
	}
	return snap, nil
}

func normalizeIssues(in []wireIssue) []run.Issue {
	if len(in) == 0 {
		return nil
	}
	out := make([]run.Issue, 0, len(in))
	for _, i := range in {
		out = append(out, run.Issue{
			File:     i.File,
			Line:     i.Line,
			Type:     i.Type,
			Message:  i.Message,
			Symbol:   i.Symbol,
			TestName: i.TestName,
		})
	}
	return out
}

func normalizeFixes(in []wireFix) []run.Fix {
	if len(in) == 0 {
		return nil
	}
	out := make([]run.Fix, 0, len(in))
	for _, f := range in {
		out = append(out, run.Fix{
			File:          f.File,
			BugType:       f.BugType,
			Line:          f.Line,
			CommitMessage: f.CommitMessage,
			Status:        run.FixStatus(f.Status),
		})
	}
	return out
}
