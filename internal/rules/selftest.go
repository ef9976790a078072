package rules

import (
	"fmt"

	semver "github.com/blang/semver/v4"
	"github.com/varalys/trello-watchman/internal/types"
)

// SelfTestFailure describes one test case that disagreed with the pattern.
type SelfTestFailure struct {
	Rule string
	Case string
	// WantMatch is true for a match case that did not match and false for a
	// fail case that did.
	WantMatch bool
}

func (f SelfTestFailure) String() string {
	if f.WantMatch {
		return fmt.Sprintf("%s: pattern does not detect match case %q", f.Rule, f.Case)
	}
	return fmt.Sprintf("%s: pattern detects fail case %q", f.Rule, f.Case)
}

// SelfTest runs the rule's match and fail cases against its pattern.
// Cases equal to Blank are skipped.
func (r *Rule) SelfTest() []SelfTestFailure {
	var out []SelfTestFailure
	for _, c := range r.TestCases.MatchCases {
		if c == Blank {
			continue
		}
		if !r.Pattern.MatchString(c) {
			out = append(out, SelfTestFailure{Rule: r.Meta.Name, Case: c, WantMatch: true})
		}
	}
	for _, c := range r.TestCases.FailCases {
		if c == Blank {
			continue
		}
		if r.Pattern.MatchString(c) {
			out = append(out, SelfTestFailure{Rule: r.Meta.Name, Case: c, WantMatch: false})
		}
	}
	return out
}

// Validate checks the metadata fields that loading tolerates: the severity
// must be a known level or score and the version must be semver-like.
func (r *Rule) Validate() error {
	if _, ok := types.ParseSeverity(r.Meta.Severity); !ok {
		return &MalformedRuleError{Path: r.Filename, Reason: fmt.Sprintf("unknown severity %q", r.Meta.Severity)}
	}
	if r.Meta.Version != "" {
		if _, err := semver.ParseTolerant(r.Meta.Version); err != nil {
			return &MalformedRuleError{Path: r.Filename, Reason: "invalid meta.version", Err: err}
		}
	}
	return nil
}
