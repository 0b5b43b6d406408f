package dashboard

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"

	"github.com/marcin-skalski/fixwatch/internal/run"
)

const maxCommitWidth = 60

// WriteReport prints a plain-text rendition of v for headless mode.
func WriteReport(w io.Writer, v View, now time.Time) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s: %s\n", v.RunID, v.StatusLabel())
	fmt.Fprintf(&b, "  Repository:     %s\n", v.RepoSlug)
	fmt.Fprintf(&b, "  Target branch:  %s\n", v.Branch)
	fmt.Fprintf(&b, "  Team / leader:  %s / %s\n", v.TeamName, v.LeaderName)
	fmt.Fprintf(&b, "  Failures:       %d total, %d fixed, %d outstanding\n", v.TotalFailures, v.FixesApplied, v.Outstanding)
	fmt.Fprintf(&b, "  Iterations:     %d/%d\n", v.Iteration, v.MaxIterations)
	if v.Error != "" {
		fmt.Fprintf(&b, "  Error:          %s\n", v.Error)
	}

	s := v.Score
	fmt.Fprintf(&b, "\nScore %d (base %d, speed bonus +%d, efficiency penalty -%d) in %s\n",
		s.TotalScore, s.BaseScore, s.SpeedBonus, s.EfficiencyPenalty, s.DurationLabel)

	b.WriteString("\nTimeline\n")
	for _, e := range v.Timeline {
		b.WriteString("  " + TimelineLine(e, now) + "\n")
	}
	b.WriteString("\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if len(v.Fixes) == 0 {
		_, err := fmt.Fprintln(w, "(no fixes recorded)")
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"File", "Bug Type", "Line", "Commit Message", "Status"})
	for _, f := range v.Fixes {
		t.AppendRow(table.Row{f.File, f.BugType, f.Line, Truncate(f.CommitMessage, maxCommitWidth), f.Status})
	}
	t.Render()
	_, err := fmt.Fprintf(w, "(%d fixes)\n", len(v.Fixes))
	return err
}

// TimelineLine formats one event with its clock time and age, if known.
func TimelineLine(e run.Event, now time.Time) string {
	if e.At == nil {
		return e.Title()
	}
	return fmt.Sprintf("%s  %s (%s)", e.Title(), e.At.Format(time.TimeOnly), humanize.RelTime(*e.At, now, "ago", "from now"))
}

// Truncate shortens s to width display cells.
func Truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
