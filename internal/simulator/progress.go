package simulator

import (
	"fmt"
	"slices"
	"time"

	"github.com/marcin-skalski/fixwatch/internal/run"
)

// Lower fixes first; unknown types go last.
var fixPriority = map[string]int{
	"SYNTAX":      1,
	"INDENTATION": 2,
	"IMPORT":      3,
	"TYPE_ERROR":  4,
	"LOGIC":       5,
	"LINTING":     6,
}

func priority(bugType string) int {
	if p, ok := fixPriority[bugType]; ok {
		return p
	}
	return 100
}

type issue struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Type     string `json:"type"`
	Message  string `json:"message"`
	Symbol   string `json:"symbol,omitempty"`
	TestName string `json:"test_name,omitempty"`
}

var issueCatalog = []issue{
	{File: "src/utils.py", Line: 15, Type: "LINTING", Message: "'os' imported but unused", Symbol: "F401"},
	{File: "src/validator.py", Line: 8, Type: "SYNTAX", Message: "expected ':'", Symbol: "E999"},
	{File: "tests/test_app.py", Line: 42, Type: "LOGIC", Message: "assert 3 == 4", TestName: "test_total"},
	{File: "src/models.py", Line: 21, Type: "INDENTATION", Message: "unexpected indent", Symbol: "E113"},
	{File: "tests/test_api.py", Line: 3, Type: "IMPORT", Message: "No module named 'requets'", TestName: "test_api"},
	{File: "tests/test_calc.py", Line: 30, Type: "TYPE_ERROR", Message: "unsupported operand type(s) for +: 'int' and 'str'", TestName: "test_calc"},
}

// seedIssues returns n issues cycling through the catalog.
func seedIssues(n int) []issue {
	out := make([]issue, 0, max(n, 0))
	for i := range n {
		is := issueCatalog[i%len(issueCatalog)]
		is.Line += 10 * (i / len(issueCatalog))
		out = append(out, is)
	}
	return out
}

type fix struct {
	File          string `json:"file"`
	BugType       string `json:"bug_type"`
	Line          int    `json:"line"`
	CommitMessage string `json:"commit_message"`
	Status        string `json:"status"`
}

type pendingBody struct {
	Status  string         `json:"status"`
	Request analyzeRequest `json:"request"`
}

type resultBody struct {
	Status        string  `json:"status"`
	RepoURL       string  `json:"repo_url"`
	TeamName      string  `json:"team_name"`
	LeaderName    string  `json:"leader_name"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	Iteration     int     `json:"iteration"`
	MaxIterations int     `json:"max_iterations"`
	LintErrors    []issue `json:"lint_errors"`
	TestFailures  []issue `json:"test_failures"`
	FixedIssues   []fix   `json:"fixed_issues"`
	Error         string  `json:"error,omitempty"`
}

type simRun struct {
	req     analyzeRequest
	created time.Time
	issues  []issue
	fails   bool
}

// render computes the run's state at now. The result depends only on the
// elapsed time, so repeated polls never regress.
func (r *simRun) render(cfg Config, now time.Time) any {
	start := r.created.Add(cfg.PendingFor)
	if now.Before(start) {
		return pendingBody{Status: string(run.StatusPending), Request: r.req}
	}

	ordered := slices.Clone(r.issues)
	slices.SortStableFunc(ordered, func(a, b issue) int {
		return priority(a.Type) - priority(b.Type)
	})

	ticks := int(now.Sub(start) / cfg.IterationEvery)
	body := resultBody{
		Status:        string(run.StatusRunning),
		RepoURL:       r.req.RepoURL,
		TeamName:      r.req.TeamName,
		LeaderName:    r.req.LeaderName,
		StartTime:     formatTimestamp(start),
		MaxIterations: cfg.MaxIterations,
		LintErrors:    []issue{},
		TestFailures:  []issue{},
		FixedIssues:   []fix{},
	}

	if r.fails {
		if ticks >= 1 {
			body.Status = string(run.StatusFailed)
			body.Iteration = 1
			body.EndTime = formatTimestamp(start.Add(cfg.IterationEvery))
			body.Error = fmt.Sprintf("push to %s rejected: remote hung up unexpectedly",
				run.BranchName(r.req.TeamName, r.req.LeaderName))
		}
		body.splitIssues(ordered)
		return body
	}

	fixes := min(ticks, cfg.MaxIterations, len(ordered))
	body.Iteration = fixes
	for _, is := range ordered[:fixes] {
		body.FixedIssues = append(body.FixedIssues, fix{
			File:          is.File,
			BugType:       is.Type,
			Line:          is.Line,
			CommitMessage: fmt.Sprintf("[AI-AGENT] Fix %s: %s", is.Type, is.Message),
			Status:        string(run.FixStatusFixed),
		})
	}
	body.splitIssues(ordered[fixes:])

	if fixes == len(ordered) || fixes == cfg.MaxIterations {
		body.Status = string(run.StatusCompleted)
		body.EndTime = formatTimestamp(start.Add(time.Duration(fixes) * cfg.IterationEvery))
	}
	return body
}

func (b *resultBody) splitIssues(remaining []issue) {
	for _, is := range remaining {
		if is.TestName != "" {
			b.TestFailures = append(b.TestFailures, is)
		} else {
			b.LintErrors = append(b.LintErrors, is)
		}
	}
}

func formatTimestamp(t time.Time) string {
	return t.Local().Format(timestampLayout)
}
