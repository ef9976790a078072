package report

import "github.com/varalys/trello-watchman/internal/types"

// ShouldFail reports whether any finding is at or above failOn
// (low|medium|high|critical, default medium).
func ShouldFail(findings []types.Finding, failOn string) bool {
	th := rankOf(failOn)
	if th == 0 {
		th = rank(types.SevMed)
	}
	for _, f := range findings {
		if rank(f.Severity) >= th {
			return true
		}
	}
	return false
}

func rankOf(s string) int {
	sev, ok := types.ParseSeverity(s)
	if !ok {
		return 0
	}
	return rank(sev)
}
