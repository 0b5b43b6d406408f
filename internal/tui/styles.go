package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/marcin-skalski/fixwatch/internal/dashboard"
	"github.com/marcin-skalski/fixwatch/internal/run"
)

var (
	// Verdict colors
	colorRunning = lipgloss.Color("33")  // blue
	colorPassed  = lipgloss.Color("46")  // green
	colorFailed  = lipgloss.Color("196") // red

	// Bug type colors
	colorSyntax  = lipgloss.Color("203") // light red
	colorLinting = lipgloss.Color("220") // yellow
	colorOther   = lipgloss.Color("75")  // light blue

	colorMuted  = lipgloss.Color("240")
	colorBranch = lipgloss.Color("135") // purple
	colorScore  = lipgloss.Color("214") // amber

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			PaddingLeft(1).
			PaddingRight(1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	branchStyle = lipgloss.NewStyle().
			Foreground(colorBranch)

	scoreStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorScore)

	bonusStyle = lipgloss.NewStyle().
			Foreground(colorPassed)

	penaltyStyle = lipgloss.NewStyle().
			Foreground(colorFailed)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorFailed).
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)

	emptyStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	focusedLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39"))
)

func verdictColor(v run.Verdict) lipgloss.Color {
	switch v {
	case run.VerdictRunning:
		return colorRunning
	case run.VerdictPassed:
		return colorPassed
	default:
		return colorFailed
	}
}

func statusBadge(v *dashboard.View) string {
	bg := verdictColor(v.Verdict)
	if v.Status == run.StatusPending {
		bg = colorRunning
	}
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("0")).
		Background(bg).
		Padding(0, 1).
		Render(v.StatusLabel())
}

func bugTypeColor(bugType string) lipgloss.Color {
	switch bugType {
	case "SYNTAX":
		return colorSyntax
	case "LINTING":
		return colorLinting
	default:
		return colorOther
	}
}

func fixStatusIcon(s run.FixStatus) string {
	switch {
	case !s.Known():
		return "❓"
	case s.IsFixed():
		return "✅"
	default:
		return "❌"
	}
}

func eventIcon(kind run.EventKind) string {
	switch kind {
	case run.EventStarted:
		return "🚀"
	case run.EventIteration:
		return "🔧"
	case run.EventPassed:
		return "✅"
	case run.EventFailed:
		return "❌"
	default:
		return "❓"
	}
}
