package run

import (
	"fmt"
	"time"
)

const (
	BaseScore = 100

	speedBonusPoints    = 10
	speedBonusThreshold = 5 * time.Minute
	commitAllowance     = 20
	penaltyPerCommit    = 2
)

// Score is the breakdown shown next to a run.
type Score struct {
	BaseScore         int
	SpeedBonus        int
	EfficiencyPenalty int
	TotalScore        int
	Duration          time.Duration
	DurationMs        int64
	DurationLabel     string
}

// CalculateScore derives the score for a run. end is nil while the run is
// active, in which case now stands in for it; callers re-invoke this as the
// clock moves.
func CalculateScore(start time.Time, end *time.Time, commits int, now time.Time) Score {
	effectiveEnd := now
	if end != nil {
		effectiveEnd = *end
	}

	var d time.Duration
	if !start.IsZero() {
		d = max(0, effectiveEnd.Sub(start))
	}
	ms := d.Milliseconds()

	s := Score{
		BaseScore:         BaseScore,
		EfficiencyPenalty: max(0, (commits-commitAllowance)*penaltyPerCommit),
		Duration:          d,
		DurationMs:        ms,
		DurationLabel:     durationLabel(ms),
	}
	if d < speedBonusThreshold {
		s.SpeedBonus = speedBonusPoints
	}
	s.TotalScore = max(0, s.BaseScore+s.SpeedBonus-s.EfficiencyPenalty)
	return s
}

func durationLabel(ms int64) string {
	return fmt.Sprintf("%dm %ds", ms/60000, (ms%60000)/1000)
}
