package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/varalys/trello-watchman/internal/engine"
	"github.com/varalys/trello-watchman/internal/types"
)

type PrintOptions struct {
	NoColor bool
	// Now anchors relative timestamps; time.Now when zero.
	Now time.Time
}

var (
	criticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	highStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	mediumStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	lowStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// PrintSummary renders one row per rule-scope invocation followed by totals.
func PrintSummary(w io.Writer, sum engine.Summary, opts PrintOptions) error {
	if len(sum.Results) == 0 {
		fmt.Fprintln(w, "No rules were run")
	} else {
		table := tablewriter.NewWriter(w)
		table.Header("Rule", "Scope", "Severity", "Matches", "Status")
		for _, r := range sum.Results {
			status := "ok"
			if r.Err != nil {
				status = "failed"
				if !opts.NoColor {
					status = errorStyle.Render(status)
				}
			}
			if err := table.Append([]string{
				r.Rule,
				string(r.Scope),
				severity(r.Severity, opts.NoColor),
				humanize.Comma(int64(r.Matches)),
				status,
			}); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	counts := map[types.Severity]int{}
	for _, f := range sum.Findings {
		counts[f.Severity]++
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Findings: %s (critical: %d, high: %d, medium: %d, low: %d)\n",
		humanize.Comma(int64(len(sum.Findings))),
		counts[types.SevCritical], counts[types.SevHigh], counts[types.SevMed], counts[types.SevLow])
	if errs := sum.Errors(); len(errs) > 0 {
		fmt.Fprintf(w, "Failed invocations: %d\n", len(errs))
	}
	if d := sum.Duration(); d > 0 {
		fmt.Fprintf(w, "Scan duration: %s\n", d.Round(time.Millisecond))
	}
	return nil
}

// PrintFindings renders findings ordered by severity, then rule and card.
func PrintFindings(w io.Writer, findings []types.Finding, opts PrintOptions) error {
	if len(findings) == 0 {
		fmt.Fprintln(w, "No secrets found ✅")
		return nil
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	sorted := append([]types.Finding(nil), findings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if rank(a.Severity) != rank(b.Severity) {
			return rank(a.Severity) > rank(b.Severity)
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.CardID < b.CardID
	})

	table := tablewriter.NewWriter(w)
	table.Header("Severity", "Rule", "Card", "Board", "Match", "Last activity")
	for _, f := range sorted {
		if err := table.Append([]string{
			severity(f.Severity, opts.NoColor),
			f.Rule,
			f.CardURL,
			f.Board,
			displayMatch(f),
			lastActivity(f.LastActivity, now),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func lastActivity(ts string, now time.Time) string {
	epoch, err := engine.ConvertTime(ts)
	if err != nil {
		return ts
	}
	return humanize.RelTime(time.Unix(epoch, 0), now, "ago", "from now")
}

func rank(s types.Severity) int {
	switch s {
	case types.SevCritical:
		return 4
	case types.SevHigh:
		return 3
	case types.SevMed:
		return 2
	case types.SevLow:
		return 1
	default:
		return 0
	}
}

// displayMatch masks secrets found in text. Attachment matches are file
// names and shown as-is.
func displayMatch(f types.Finding) string {
	if f.Scope == types.ScopeAttachments {
		return f.Match
	}
	return maskValue(f.Match)
}

func maskValue(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "…" + s[len(s)-4:]
}

func severity(s types.Severity, noColor bool) string {
	if noColor {
		return string(s)
	}
	switch s {
	case types.SevCritical:
		return criticalStyle.Render(string(s))
	case types.SevHigh:
		return highStyle.Render(string(s))
	case types.SevMed:
		return mediumStyle.Render(string(s))
	default:
		return lowStyle.Render(string(s))
	}
}
