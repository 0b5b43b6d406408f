package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcin-skalski/fixwatch/internal/dashboard"
	"github.com/marcin-skalski/fixwatch/internal/run"
)

type fakeController struct {
	mu        sync.Mutex
	snap      Snapshot
	startErr  error
	started   []run.StartRequest
	refreshes int
}

func (c *fakeController) GetSnapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

func (c *fakeController) Start(_ context.Context, req run.StartRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = append(c.started, req)
	if c.startErr != nil {
		return c.startErr
	}
	c.snap = Snapshot{State: "polling", RunID: "run-1", Loading: true}
	return nil
}

func (c *fakeController) Refresh(context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshes++
	return true
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func finishedView(t *testing.T) *dashboard.View {
	t.Helper()
	start := time.Date(2026, 2, 19, 10, 0, 0, 0, time.UTC)
	end := start.Add(3*time.Minute + 20*time.Second)
	v, err := dashboard.Derive(&run.Snapshot{
		RunID:         "run-1",
		Status:        run.StatusCompleted,
		RepoURL:       "https://github.com/acme/widgets",
		TeamName:      "RIFT",
		LeaderName:    "Saiyam",
		StartTime:     start,
		EndTime:       &end,
		Iteration:     2,
		MaxIterations: 5,
		FixedIssues: []run.Fix{
			{File: "app.py", BugType: "SYNTAX", Line: 3, CommitMessage: "[AI-AGENT] Fix syntax", Status: run.FixStatusFixed},
		},
	}, end)
	require.NoError(t, err)
	return &v
}

func TestNewModel_FormWhenIdle(t *testing.T) {
	ctrl := &fakeController{snap: Snapshot{State: "idle"}}
	m := NewModel(context.Background(), ctrl, ModelConfig{RefreshInterval: time.Second})

	assert.Equal(t, viewModeForm, m.mode)
	assert.Equal(t, fieldRepo, m.focus)
	assert.False(t, m.autoStart)
	assert.Contains(t, m.View(), "Team Leader Name")
}

func TestNewModel_DashboardWhenAttached(t *testing.T) {
	ctrl := &fakeController{snap: Snapshot{State: "polling", RunID: "abc", Loading: true}}
	m := NewModel(context.Background(), ctrl, ModelConfig{RefreshInterval: time.Second})

	assert.Equal(t, viewModeDashboard, m.mode)
	assert.Contains(t, m.View(), "waiting for the first snapshot")
}

func TestNewModel_AutoStartNeedsCompleteRequest(t *testing.T) {
	ctrl := &fakeController{}
	partial := NewModel(context.Background(), ctrl, ModelConfig{
		Request:   run.StartRequest{RepoURL: "https://github.com/acme/widgets"},
		AutoStart: true,
	})
	assert.False(t, partial.autoStart)
	assert.Equal(t, "https://github.com/acme/widgets", partial.inputs[fieldRepo].Value())

	full := NewModel(context.Background(), ctrl, ModelConfig{
		Request:   run.StartRequest{RepoURL: "u", TeamName: "t", LeaderName: "l"},
		AutoStart: true,
	})
	assert.True(t, full.autoStart)
}

func TestModel_FocusCycles(t *testing.T) {
	m := NewModel(context.Background(), &fakeController{}, ModelConfig{})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, fieldTeam, m.focus)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, fieldLeader, m.focus)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, fieldRepo, m.focus)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, fieldLeader, m.focus)
	assert.True(t, m.inputs[fieldLeader].Focused())
	assert.False(t, m.inputs[fieldRepo].Focused())
}

func TestModel_TypingGoesToFocusedInput(t *testing.T) {
	m := NewModel(context.Background(), &fakeController{}, ModelConfig{})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})

	// q is text in the form, not quit
	m, _ = update(t, m, key("q"))
	m, _ = update(t, m, key("a"))

	assert.Equal(t, "qa", m.inputs[fieldTeam].Value())
	assert.Empty(t, m.inputs[fieldRepo].Value())
}

func TestModel_SubmitIncompleteForm(t *testing.T) {
	ctrl := &fakeController{}
	m := NewModel(context.Background(), ctrl, ModelConfig{
		Request: run.StartRequest{RepoURL: "https://github.com/acme/widgets"},
	})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Contains(t, m.formErr, "team name required")
	assert.Equal(t, fieldTeam, m.focus)
	assert.False(t, m.starting)
	assert.Empty(t, ctrl.started)
}

func TestModel_SubmitStartsRun(t *testing.T) {
	ctrl := &fakeController{}
	m := NewModel(context.Background(), ctrl, ModelConfig{
		Request: run.StartRequest{RepoURL: "https://github.com/acme/widgets", TeamName: "RIFT", LeaderName: "Saiyam"},
	})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.starting)
	assert.Contains(t, m.View(), "Initializing Agent")

	// Keys are ignored while the start request is outstanding.
	m, _ = update(t, m, key("x"))
	assert.Equal(t, "https://github.com/acme/widgets", m.inputs[fieldRepo].Value())

	msg := cmd()
	started, ok := msg.(startedMsg)
	require.True(t, ok)
	require.NoError(t, started.err)
	require.Len(t, ctrl.started, 1)
	assert.Equal(t, "RIFT", ctrl.started[0].TeamName)

	m, _ = update(t, m, msg)
	assert.False(t, m.starting)
	assert.Equal(t, viewModeDashboard, m.mode)
	assert.Equal(t, "run-1", m.snapshot.RunID)
}

func TestModel_StartFailureStaysOnForm(t *testing.T) {
	ctrl := &fakeController{startErr: errors.New("failed to start agent: connection refused")}
	m := NewModel(context.Background(), ctrl, ModelConfig{
		Request: run.StartRequest{RepoURL: "u", TeamName: "t", LeaderName: "l"},
	})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	assert.Equal(t, viewModeForm, m.mode)
	assert.False(t, m.starting)
	assert.Contains(t, m.View(), "connection refused")
}

func TestModel_DashboardKeys(t *testing.T) {
	ctrl := &fakeController{snap: Snapshot{State: "polling", RunID: "run-1", Loading: true}}
	m := NewModel(context.Background(), ctrl, ModelConfig{})

	m, cmd := update(t, m, key("r"))
	require.NotNil(t, cmd)
	_, ok := cmd().(refreshedMsg)
	assert.True(t, ok)
	assert.Equal(t, 1, ctrl.refreshes)

	// No new run while the current one is still polled.
	m, _ = update(t, m, key("n"))
	assert.Equal(t, viewModeDashboard, m.mode)

	_, cmd = update(t, m, key("q"))
	require.NotNil(t, cmd)
	_, ok = cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestModel_NewRunAfterFinish(t *testing.T) {
	ctrl := &fakeController{snap: Snapshot{State: "terminated", RunID: "run-1"}}
	m := NewModel(context.Background(), ctrl, ModelConfig{})

	m, _ = update(t, m, key("n"))
	assert.Equal(t, viewModeForm, m.mode)
	assert.Equal(t, fieldRepo, m.focus)
}

func TestModel_TickPullsSnapshot(t *testing.T) {
	ctrl := &fakeController{snap: Snapshot{State: "polling", RunID: "run-1", Loading: true}}
	m := NewModel(context.Background(), ctrl, ModelConfig{RefreshInterval: time.Second})

	ctrl.mu.Lock()
	ctrl.snap = Snapshot{State: "terminated", RunID: "run-1", View: finishedView(t)}
	ctrl.mu.Unlock()

	m, cmd := update(t, m, tickMsg(time.Now()))
	assert.NotNil(t, cmd)
	assert.Equal(t, "terminated", m.snapshot.State)
}

func TestModel_ViewRendersRun(t *testing.T) {
	ctrl := &fakeController{snap: Snapshot{
		State:        "terminated",
		RunID:        "0f0e0d0c-aaaa",
		SkippedPolls: 2,
		View:         finishedView(t),
	}}
	m := NewModel(context.Background(), ctrl, ModelConfig{})

	out := m.View()
	assert.Contains(t, out, "0f0e0d0c")
	assert.Contains(t, out, "acme/widgets")
	assert.Contains(t, out, "RIFT_SAIYAM_AI_FIX")
	assert.Contains(t, out, "PASSED")
	assert.Contains(t, out, "3m 20s")
	assert.Contains(t, out, "110")
	assert.Contains(t, out, "app.py")
	assert.Contains(t, out, "Pipeline Passed")
	assert.Contains(t, out, "2 polls skipped")
}

func TestModel_ViewPendingRun(t *testing.T) {
	v, err := dashboard.Derive(&run.Snapshot{
		RunID:         "run-2",
		Status:        run.StatusPending,
		RepoURL:       "https://github.com/acme/widgets",
		TeamName:      "RIFT",
		LeaderName:    "Saiyam",
		MaxIterations: 5,
	}, time.Now())
	require.NoError(t, err)
	require.Equal(t, run.VerdictFailed, v.Verdict)

	ctrl := &fakeController{snap: Snapshot{State: "polling", RunID: "run-2", Loading: true, View: &v}}
	m := NewModel(context.Background(), ctrl, ModelConfig{})

	out := m.View()
	assert.Contains(t, out, "PENDING")
	assert.NotContains(t, out, "FAILED")
	assert.NotContains(t, out, "Pipeline Failed")
}

func TestFixStatusIcon(t *testing.T) {
	assert.Equal(t, "✅", fixStatusIcon(run.FixStatusFixed))
	assert.Equal(t, "✅", fixStatusIcon(run.FixStatusLocalOnly))
	assert.Equal(t, "❌", fixStatusIcon(run.FixStatusFailed))
	assert.Equal(t, "❓", fixStatusIcon("Skipped"))
}

func TestLastCells(t *testing.T) {
	assert.Equal(t, "abc", lastCells("abc", 5))
	assert.Equal(t, "cde", lastCells("abcde", 3))
}
