package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/marcin-skalski/fixwatch/internal/dashboard"
	"github.com/marcin-skalski/fixwatch/internal/run"
)

var fieldLabels = []string{"GitHub Repository URL", "Team Name", "Team Leader Name"}

func renderForm(inputs []textinput.Model, focus int, starting bool, formErr, spin string) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("fixwatch │ Autonomous CI/CD Healing Agent"))
	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("🚀 Start a run"))
	b.WriteString("\n")

	for i, in := range inputs {
		label := labelStyle.Render(fieldLabels[i])
		if i == focus {
			label = focusedLabelStyle.Render(fieldLabels[i])
		}
		b.WriteString("  " + label + "\n")
		b.WriteString("  " + in.View() + "\n")
	}

	if starting {
		b.WriteString("\n  " + spin + " Initializing Agent...\n")
	}
	if formErr != "" {
		b.WriteString("\n  " + errorStyle.Render(formErr) + "\n")
	}

	b.WriteString(footerStyle.Render("tab/shift+tab:move │ enter:run agent │ esc:quit"))
	return b.String()
}

func renderDashboard(snap Snapshot, spin string, width int) string {
	var b strings.Builder

	header := fmt.Sprintf("fixwatch │ run %s │ %s", shortID(snap.RunID), snap.State)
	if snap.Loading {
		header = spin + " " + header
	}
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	if snap.Err != "" {
		b.WriteString(errorStyle.Render("  ⚠ " + snap.Err))
		b.WriteString("\n")
	}

	if snap.View == nil {
		b.WriteString(emptyStyle.Render("  (waiting for the first snapshot)"))
		b.WriteString("\n")
	} else {
		v := snap.View
		b.WriteString(sectionStyle.Render("📋 Run Summary"))
		b.WriteString("\n")
		b.WriteString(renderSummary(v))

		b.WriteString(sectionStyle.Render("🏆 Score Breakdown"))
		b.WriteString("\n")
		b.WriteString(renderScore(v.Score))

		b.WriteString(sectionStyle.Render(fmt.Sprintf("🔧 Fixes Applied (%d)", len(v.Fixes))))
		b.WriteString("\n")
		b.WriteString(renderFixes(v.Fixes, width))

		b.WriteString(sectionStyle.Render("🕒 CI/CD Timeline"))
		b.WriteString("\n")
		b.WriteString(renderTimeline(snap, v.Timeline))
	}

	footer := fmt.Sprintf("Last updated: %s", snap.Timestamp.Format("15:04:05"))
	if !snap.LastPoll.IsZero() {
		footer += fmt.Sprintf(" │ last poll %s", snap.LastPoll.Format("15:04:05"))
	}
	if snap.SkippedPolls > 0 {
		footer += fmt.Sprintf(" │ %d polls skipped", snap.SkippedPolls)
	}
	footer += " │ q:quit r:refresh"
	if !snap.Loading {
		footer += " n:new run"
	}
	b.WriteString(footerStyle.Render(footer))

	return b.String()
}

func renderSummary(v *dashboard.View) string {
	var b strings.Builder

	row := func(label, value string) {
		b.WriteString("  " + labelStyle.Render(fmt.Sprintf("%-16s", label)) + value + "\n")
	}

	row("Repository", valueStyle.Render(v.RepoSlug))
	row("Team", valueStyle.Render(v.TeamName))
	row("Leader", valueStyle.Render(v.LeaderName))
	row("Target branch", branchStyle.Render(v.Branch))
	row("Status", statusBadge(v))
	row("Failures", valueStyle.Render(fmt.Sprintf("%d detected │ %d fixed │ %d outstanding",
		v.TotalFailures, v.FixesApplied, v.Outstanding)))
	row("Iterations", valueStyle.Render(fmt.Sprintf("%d/%d", v.Iteration, v.MaxIterations)))
	row("Time taken", valueStyle.Render(v.Score.DurationLabel))
	if v.Error != "" {
		row("Error", errorStyle.Render(v.Error))
	}

	return b.String()
}

func renderScore(s run.Score) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("  Base score           %d\n", s.BaseScore))
	b.WriteString("  Speed bonus (<5m)    " + bonusStyle.Render(fmt.Sprintf("+%d", s.SpeedBonus)) + "\n")
	b.WriteString("  Efficiency penalty   " + penaltyStyle.Render(fmt.Sprintf("-%d", s.EfficiencyPenalty)) + "\n")
	b.WriteString("  Total                " + scoreStyle.Render(fmt.Sprintf("%d", s.TotalScore)) + "\n")
	return b.String()
}

func renderFixes(fixes []run.Fix, width int) string {
	if len(fixes) == 0 {
		return emptyStyle.Render("  (no fixes applied yet)") + "\n"
	}

	msgWidth := 50
	if width > 0 {
		// file, type, line and status columns take roughly 60 cells
		msgWidth = max(20, width-60)
	}

	var b strings.Builder
	for _, f := range fixes {
		file := f.File
		if runewidth.StringWidth(file) > 28 {
			file = "..." + lastCells(file, 25)
		}
		bugType := lipgloss.NewStyle().Foreground(bugTypeColor(f.BugType)).Render(fmt.Sprintf("%-11s", f.BugType))
		line := fmt.Sprintf("  %s %-28s %s L%-5d %s",
			fixStatusIcon(f.Status), file, bugType, f.Line, dashboard.Truncate(f.CommitMessage, msgWidth))
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func renderTimeline(snap Snapshot, events []run.Event) string {
	var b strings.Builder
	for i, e := range events {
		prefix := "├─"
		if i == len(events)-1 {
			prefix = "└─"
		}
		line := fmt.Sprintf("  %s %s %s", prefix, eventIcon(e.Kind), dashboard.TimelineLine(e, snap.Timestamp))
		if e.Kind == run.EventPassed || e.Kind == run.EventFailed {
			line = lipgloss.NewStyle().Foreground(verdictColor(snap.View.Verdict)).Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "-"
	}
	return id
}

// lastCells keeps the trailing n display cells of s.
func lastCells(s string, n int) string {
	runes := []rune(s)
	w := 0
	for i := len(runes) - 1; i >= 0; i-- {
		w += runewidth.RuneWidth(runes[i])
		if w > n {
			return string(runes[i+1:])
		}
	}
	return s
}
