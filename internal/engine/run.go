package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/varalys/trello-watchman/internal/rules"
	"github.com/varalys/trello-watchman/internal/types"
)

// RuleResult is the outcome of one rule-scope invocation.
type RuleResult struct {
	Rule     string
	Scope    types.Scope
	Severity types.Severity
	Matches  int
	Err      error
}

// Summary aggregates a Run.
type Summary struct {
	Results  []RuleResult
	Findings []types.Finding
	Started  time.Time
	Finished time.Time
}

// Duration is the wall time of the run.
func (s Summary) Duration() time.Duration { return s.Finished.Sub(s.Started) }

// Errors returns the failures of individual invocations.
func (s Summary) Errors() []error {
	var out []error
	for _, r := range s.Results {
		if r.Err != nil {
			out = append(out, r.Err)
		}
	}
	return out
}

// Run scans every enabled rule for each requested scope, forwarding results
// to the sink as they are produced. An API failure ends only the current
// invocation: it is reported through Critical and the run moves on. Run
// returns an error only when ctx is cancelled.
func (e *Engine) Run(ctx context.Context, rs []*rules.Rule, tf Timeframe, scopes []types.Scope) (Summary, error) {
	sum := Summary{Started: e.now()}

	for _, scope := range scopes {
		for _, r := range rules.Select(rs, scope) {
			if err := ctx.Err(); err != nil {
				sum.Finished = e.now()
				return sum, err
			}
			res := RuleResult{Rule: r.Meta.Name, Scope: scope, Severity: r.Severity()}

			var records []any
			switch scope {
			case types.ScopeAttachments:
				e.sink.Info(fmt.Sprintf("Searching for attachments containing %s", r.Meta.Name))
				found, err := e.FindAttachments(ctx, r, tf)
				res.Err = err
				for _, f := range found {
					records = append(records, f)
					sum.Findings = append(sum.Findings, attachmentFinding(r, f))
				}
			case types.ScopeText:
				e.sink.Info(fmt.Sprintf("Searching for cards %s", r.Meta.Name))
				found, err := e.FindText(ctx, r, tf)
				res.Err = err
				for _, f := range found {
					records = append(records, f)
					sum.Findings = append(sum.Findings, textFinding(r, f))
				}
			}

			if res.Err != nil {
				res.Err = fmt.Errorf("%s (%s): %w", r.Meta.Name, scope, res.Err)
				e.sink.Critical(res.Err.Error())
			}
			for _, rec := range records {
				e.sink.Notify(rec, scope, r.Meta.Name, r.Meta.Severity)
			}
			res.Matches = len(records)
			sum.Results = append(sum.Results, res)
		}
	}
	sum.Finished = e.now()
	return sum, nil
}

func attachmentFinding(r *rules.Rule, f types.AttachmentResult) types.Finding {
	var names []string
	for _, a := range f.Attachments {
		names = append(names, a.Filename)
	}
	match := ""
	if len(names) > 0 {
		match = names[0]
		if len(names) > 1 {
			match = fmt.Sprintf("%s (+%d more)", names[0], len(names)-1)
		}
	}
	return types.Finding{
		Rule:         r.Meta.Name,
		Scope:        types.ScopeAttachments,
		Severity:     r.Severity(),
		CardID:       f.CardID,
		CardURL:      f.URL,
		Title:        f.Title,
		Board:        f.Board.Name,
		Match:        match,
		LastActivity: f.LastActivity,
	}
}

func textFinding(r *rules.Rule, f types.TextResult) types.Finding {
	return types.Finding{
		Rule:         r.Meta.Name,
		Scope:        types.ScopeText,
		Severity:     r.Severity(),
		CardID:       f.CardID,
		CardURL:      f.URL,
		Title:        f.Title,
		Board:        f.Board.Name,
		Match:        f.MatchString,
		LastActivity: f.LastActivity,
	}
}
