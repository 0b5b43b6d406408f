package run

type Verdict int

const (
	VerdictRunning Verdict = iota
	VerdictPassed
	VerdictFailed
)

// ResolveVerdict classifies a run from its status and the number of lint
// errors and test failures still outstanding. Only running is RUNNING; a
// completed run with fresh failures and a pending run are both FAILED.
func ResolveVerdict(status Status, outstanding int) Verdict {
	switch status {
	case StatusRunning:
		return VerdictRunning
	case StatusCompleted:
		if outstanding == 0 {
			return VerdictPassed
		}
	}
	return VerdictFailed
}

func (v Verdict) String() string {
	switch v {
	case VerdictRunning:
		return "RUNNING"
	case VerdictPassed:
		return "PASSED"
	case VerdictFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}
