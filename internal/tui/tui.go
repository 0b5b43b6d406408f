package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcin-skalski/fixwatch/internal/run"
)

// Controller drives the monitored run. The poller implements it.
type Controller interface {
	GetSnapshot() Snapshot
	Start(ctx context.Context, req run.StartRequest) error
	Refresh(ctx context.Context) bool
}

type viewMode int

const (
	viewModeForm viewMode = iota
	viewModeDashboard
)

const (
	fieldRepo = iota
	fieldTeam
	fieldLeader
)

type ModelConfig struct {
	RefreshInterval time.Duration
	// Request pre-fills the start form.
	Request run.StartRequest
	// AutoStart submits Request on launch when it is complete.
	AutoStart bool
}

type Model struct {
	ctx             context.Context
	ctrl            Controller
	snapshot        Snapshot
	refreshInterval time.Duration
	autoStart       bool

	mode     viewMode
	inputs   []textinput.Model
	focus    int
	starting bool
	formErr  string
	spinner  spinner.Model
	width    int
}

type tickMsg time.Time

type startedMsg struct {
	err error
}

type refreshedMsg struct{}

func NewModel(ctx context.Context, ctrl Controller, cfg ModelConfig) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = sectionStyle.MarginTop(0)

	m := Model{
		ctx:             ctx,
		ctrl:            ctrl,
		snapshot:        ctrl.GetSnapshot(),
		refreshInterval: cfg.RefreshInterval,
		autoStart:       cfg.AutoStart && cfg.Request.Validate() == nil,
		inputs:          newInputs(cfg.Request),
		spinner:         sp,
	}
	if m.snapshot.RunID != "" {
		m.mode = viewModeDashboard
	}
	m.inputs[fieldRepo].Focus()
	return m
}

func newInputs(req run.StartRequest) []textinput.Model {
	placeholders := []string{
		"https://github.com/user/repo",
		"e.g. RIFT ORGANISERS",
		"e.g. Saiyam Kumar",
	}
	values := []string{req.RepoURL, req.TeamName, req.LeaderName}

	inputs := make([]textinput.Model, len(placeholders))
	for i := range inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.Prompt = "› "
		ti.CharLimit = 256
		ti.Width = 60
		ti.SetValue(values[i])
		inputs[i] = ti
	}
	return inputs
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.refreshInterval), m.spinner.Tick, textinput.Blink}
	if m.autoStart && m.mode == viewModeForm {
		cmds = append(cmds, m.startCmd(m.request()))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case viewModeForm:
			return m.updateForm(msg)
		case viewModeDashboard:
			return m.updateDashboard(msg)
		}

	case startedMsg:
		m.starting = false
		m.snapshot = m.ctrl.GetSnapshot()
		if msg.err != nil {
			m.formErr = msg.err.Error()
			return m, nil
		}
		m.formErr = ""
		m.mode = viewModeDashboard
		return m, nil

	case refreshedMsg:
		m.snapshot = m.ctrl.GetSnapshot()
		return m, nil

	case tickMsg:
		m.snapshot = m.ctrl.GetSnapshot()
		return m, tickCmd(m.refreshInterval)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.starting {
		return m, nil
	}

	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab", "down":
		cmd := m.focusField((m.focus + 1) % len(m.inputs))
		return m, cmd
	case "shift+tab", "up":
		cmd := m.focusField((m.focus + len(m.inputs) - 1) % len(m.inputs))
		return m, cmd
	case "enter":
		req := m.request()
		if err := req.Validate(); err != nil {
			m.formErr = err.Error()
			for i, in := range m.inputs {
				if in.Value() == "" {
					cmd := m.focusField(i)
					return m, cmd
				}
			}
			return m, nil
		}
		m.formErr = ""
		m.starting = true
		return m, m.startCmd(req)
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "r":
		return m, m.refreshCmd()
	case "n":
		// New run once the current one is over.
		if !m.snapshot.Loading {
			m.mode = viewModeForm
			cmd := m.focusField(fieldRepo)
			return m, cmd
		}
	}
	return m, nil
}

func (m *Model) focusField(i int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = i
	return m.inputs[i].Focus()
}

func (m Model) request() run.StartRequest {
	return run.StartRequest{
		RepoURL:    m.inputs[fieldRepo].Value(),
		TeamName:   m.inputs[fieldTeam].Value(),
		LeaderName: m.inputs[fieldLeader].Value(),
	}
}

func (m Model) startCmd(req run.StartRequest) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return startedMsg{err: ctrl.Start(ctx, req)}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		ctrl.Refresh(ctx)
		return refreshedMsg{}
	}
}

func (m Model) View() string {
	switch m.mode {
	case viewModeDashboard:
		return renderDashboard(m.snapshot, m.spinner.View(), m.width)
	default:
		return renderForm(m.inputs, m.focus, m.starting, m.formErr, m.spinner.View())
	}
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
