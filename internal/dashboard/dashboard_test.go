package dashboard

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcin-skalski/fixwatch/internal/run"
)

var start = time.Date(2026, 2, 19, 10, 0, 0, 0, time.UTC)

func completedSnapshot() *run.Snapshot {
	end := start.Add(3*time.Minute + 20*time.Second)
	return &run.Snapshot{
		RunID:         "run-1",
		Status:        run.StatusCompleted,
		RepoURL:       "https://github.com/acme/app",
		TeamName:      "rift organisers",
		LeaderName:    "Saiyam Kumar",
		StartTime:     start,
		EndTime:       &end,
		Iteration:     2,
		MaxIterations: 5,
		FixedIssues: []run.Fix{
			{File: "app/main.py", BugType: "SYNTAX", Line: 10, CommitMessage: "[AI-AGENT] Fix SYNTAX error in app/main.py line 10", Status: run.FixStatusFixed},
			{File: "app/db.py", BugType: "LOGIC", Line: 44, CommitMessage: "[AI-AGENT] Fix LOGIC error", Status: run.FixStatusFailed},
		},
	}
}

func TestDerive_Completed(t *testing.T) {
	v, err := Derive(completedSnapshot(), start.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, "acme/app", v.RepoSlug)
	assert.Equal(t, "RIFT_ORGANISERS_SAIYAM_KUMAR_AI_FIX", v.Branch)
	assert.Equal(t, run.VerdictPassed, v.Verdict)
	assert.Equal(t, 110, v.Score.TotalScore)
	assert.Equal(t, "3m 20s", v.Score.DurationLabel)
	assert.Len(t, v.Timeline, 4)
	assert.Equal(t, "Pipeline Passed", v.Timeline[3].Title())
	assert.Equal(t, 2, v.FixesApplied)
	assert.Equal(t, 0, v.Outstanding)
	assert.Equal(t, 2, v.TotalFailures)
}

func TestDerive_RunningUsesClock(t *testing.T) {
	snap := completedSnapshot()
	snap.Status = run.StatusRunning
	snap.EndTime = nil
	snap.LintErrors = []run.Issue{{File: "a.py", Type: "LINTING"}}
	snap.TestFailures = []run.Issue{{File: "b.py", Type: "LOGIC"}}

	v1, err := Derive(snap, start.Add(time.Minute))
	require.NoError(t, err)
	v2, err := Derive(snap, start.Add(6*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, run.VerdictRunning, v1.Verdict)
	assert.Equal(t, 10, v1.Score.SpeedBonus)
	assert.Equal(t, 0, v2.Score.SpeedBonus)
	assert.Len(t, v1.Timeline, 3)
	assert.Equal(t, 2, v1.Outstanding)
	assert.Equal(t, 4, v1.TotalFailures)
}

func TestDerive_CompletedWithFreshFailures(t *testing.T) {
	snap := completedSnapshot()
	snap.TestFailures = []run.Issue{{File: "tests/test_x.py", Type: "LOGIC"}}

	v, err := Derive(snap, start)
	require.NoError(t, err)
	assert.Equal(t, run.VerdictFailed, v.Verdict)
	assert.Equal(t, "Pipeline Failed", v.Timeline[len(v.Timeline)-1].Title())
}

func TestDerive_PendingIsFailedButLabelledPending(t *testing.T) {
	snap := completedSnapshot()
	snap.Status = run.StatusPending
	snap.StartTime = time.Time{}
	snap.EndTime = nil
	snap.Iteration = 0
	snap.FixedIssues = nil

	v, err := Derive(snap, start)
	require.NoError(t, err)
	assert.Equal(t, run.VerdictFailed, v.Verdict)
	assert.Equal(t, "PENDING", v.StatusLabel())
	assert.Len(t, v.Timeline, 1)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, v, start))
	assert.Contains(t, buf.String(), "Run run-1: PENDING")

	done, err := Derive(completedSnapshot(), start)
	require.NoError(t, err)
	assert.Equal(t, "PASSED", done.StatusLabel())
}

func TestDerive_IntegrityError(t *testing.T) {
	snap := completedSnapshot()
	snap.EndTime = nil

	_, err := Derive(snap, start)
	assert.ErrorIs(t, err, run.ErrIntegrity)

	_, err = Derive(nil, start)
	assert.ErrorIs(t, err, run.ErrIntegrity)
}

func TestRepoSlug(t *testing.T) {
	assert.Equal(t, "acme/app", RepoSlug("https://github.com/acme/app.git"))
	assert.Equal(t, "https://gitlab.com/acme/app", RepoSlug("https://gitlab.com/acme/app"))
}

func TestWriteReport(t *testing.T) {
	v, err := Derive(completedSnapshot(), start)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, v, start.Add(10*time.Minute)))
	out := buf.String()

	assert.Contains(t, out, "Run run-1: PASSED")
	assert.Contains(t, out, "RIFT_ORGANISERS_SAIYAM_KUMAR_AI_FIX")
	assert.Contains(t, out, "Score 110")
	assert.Contains(t, out, "Iteration 2")
	assert.Contains(t, out, "10 minutes ago")
	assert.Contains(t, out, "app/db.py")
	assert.Contains(t, out, "(2 fixes)")
}

func TestWriteReport_NoFixes(t *testing.T) {
	snap := completedSnapshot()
	snap.FixedIssues = nil

	v, err := Derive(snap, start)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, v, start))
	assert.Contains(t, buf.String(), "(no fixes recorded)")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	got := Truncate("a very long commit message indeed", 10)
	assert.Equal(t, "a very ...", got)
}
