package rules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/varalys/trello-watchman/internal/types"
	"gopkg.in/yaml.v3"
)

// Blank is the test case sentinel meaning "no case supplied".
const Blank = "blank"

// Meta is the descriptive header of a rule.
type Meta struct {
	Name        string `yaml:"name" json:"name"`
	Author      string `yaml:"author" json:"author"`
	Date        string `yaml:"date" json:"date"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description" json:"description"`
	Severity    string `yaml:"severity" json:"severity"`
}

// TestCases are the literal strings a rule's pattern must (and must not) match.
type TestCases struct {
	MatchCases []string
	FailCases  []string
}

// Rule is a loaded detection rule. It is not modified after loading.
type Rule struct {
	Filename  string
	Enabled   bool
	Meta      Meta
	Scope     []types.Scope
	Strings   []string
	Pattern   *regexp.Regexp
	TestCases TestCases
}

// HasScope reports whether the rule targets the given scope.
func (r *Rule) HasScope(s types.Scope) bool {
	return slices.Contains(r.Scope, s)
}

// Severity returns the rule severity bucket, defaulting to medium when the
// rule carries an unrecognised value.
func (r *Rule) Severity() types.Severity {
	if sev, ok := types.ParseSeverity(r.Meta.Severity); ok {
		return sev
	}
	return types.SevMed
}

func (r *Rule) String() string {
	return fmt.Sprintf("%s (%s)", r.Meta.Name, r.Filename)
}

// MalformedRuleError reports a rule definition that cannot be used.
type MalformedRuleError struct {
	Path   string
	Reason string
	Err    error
}

func (e *MalformedRuleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed rule %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed rule %s: %s", e.Path, e.Reason)
}

func (e *MalformedRuleError) Unwrap() error { return e.Err }

// caseList accepts either a YAML sequence of strings or a single scalar such
// as the "blank" sentinel.
type caseList []string

func (c *caseList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*c = caseList{value.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*c = items
		return nil
	}
	return fmt.Errorf("line %d: test cases must be a list or a string", value.Line)
}

type rawTestCases struct {
	MatchCases caseList `yaml:"match_cases"`
	FailCases  caseList `yaml:"fail_cases"`
}

type rawRule struct {
	Filename  string        `yaml:"filename"`
	Enabled   bool          `yaml:"enabled"`
	Meta      *Meta         `yaml:"meta"`
	Scope     *[]string     `yaml:"scope"`
	TestCases *rawTestCases `yaml:"test_cases"`
	Strings   *[]string     `yaml:"strings"`
	Pattern   *string       `yaml:"pattern"`
}

// Load reads and parses the rule definition at path.
func Load(path string) (*Rule, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule: %w", err)
	}
	return Parse(b, path)
}

// Parse builds a Rule from a YAML definition. name identifies the source in
// errors and is used as the filename when the definition omits one.
func Parse(data []byte, name string) (*Rule, error) {
	var raw rawRule
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &MalformedRuleError{Path: name, Reason: "invalid YAML", Err: err}
	}

	var missing []string
	if raw.Meta == nil {
		missing = append(missing, "meta")
	}
	if raw.Scope == nil {
		missing = append(missing, "scope")
	}
	if raw.Pattern == nil {
		missing = append(missing, "pattern")
	}
	if raw.Strings == nil {
		missing = append(missing, "strings")
	}
	if raw.TestCases == nil {
		missing = append(missing, "test_cases")
	}
	if len(missing) > 0 {
		return nil, &MalformedRuleError{Path: name, Reason: "missing required fields: " + strings.Join(missing, ", ")}
	}

	re, err := regexp.Compile(*raw.Pattern)
	if err != nil {
		return nil, &MalformedRuleError{Path: name, Reason: "pattern does not compile", Err: err}
	}

	scopes := make([]types.Scope, 0, len(*raw.Scope))
	for _, s := range *raw.Scope {
		sc := types.Scope(strings.ToLower(strings.TrimSpace(s)))
		if !sc.Valid() {
			return nil, &MalformedRuleError{Path: name, Reason: fmt.Sprintf("unknown scope %q", s)}
		}
		if !slices.Contains(scopes, sc) {
			scopes = append(scopes, sc)
		}
	}

	if raw.Enabled && len(*raw.Strings) == 0 {
		return nil, &MalformedRuleError{Path: name, Reason: "enabled rule has no search strings"}
	}
	if raw.Meta.Name == "" {
		return nil, &MalformedRuleError{Path: name, Reason: "meta.name is empty"}
	}

	filename := raw.Filename
	if filename == "" {
		filename = filepath.Base(name)
	}

	return &Rule{
		Filename: filename,
		Enabled:  raw.Enabled,
		Meta:     *raw.Meta,
		Scope:    scopes,
		Strings:  slices.Clone(*raw.Strings),
		Pattern:  re,
		TestCases: TestCases{
			MatchCases: slices.Clone([]string(raw.TestCases.MatchCases)),
			FailCases:  slices.Clone([]string(raw.TestCases.FailCases)),
		},
	}, nil
}

// Select returns the enabled rules that target scope, preserving order.
func Select(rules []*Rule, scope types.Scope) []*Rule {
	var out []*Rule
	for _, r := range rules {
		if r.Enabled && r.HasScope(scope) {
			out = append(out, r)
		}
	}
	return out
}

// IsMalformed reports whether err is (or wraps) a MalformedRuleError.
func IsMalformed(err error) bool {
	var me *MalformedRuleError
	return errors.As(err, &me)
}
