package watchman

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/varalys/trello-watchman/internal/rules"
)

var (
	rulesDir     string
	rulesInclude string
	rulesExclude string
	rulesBuiltin bool
	rulesAll     bool
)

func init() {
	cmd := &cobra.Command{Use: "rules", Short: "Inspect and test detection rules"}
	rootCmd.AddCommand(cmd)

	list := &cobra.Command{
		Use:   "list",
		Short: "List loaded rules",
		RunE: func(_ *cobra.Command, _ []string) error {
			rs, err := loadRuleSet(os.Stderr)
			if err != nil {
				return err
			}
			return printRules(os.Stdout, rs, rulesAll)
		},
	}

	test := &cobra.Command{
		Use:   "test",
		Short: "Run every rule's match and fail cases against its pattern",
		Long:  "Exits 1 when any rule fails its own test cases.",
		RunE: func(_ *cobra.Command, _ []string) error {
			rs, err := loadRuleSet(os.Stderr)
			if err != nil {
				return err
			}
			if failed := selfTest(os.Stdout, rs); failed > 0 {
				fmt.Fprintf(os.Stderr, "%d rule test case(s) failed\n", failed)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stdout, "%d rules passed\n", len(rs))
			return nil
		},
	}

	validate := &cobra.Command{
		Use:   "validate [file...]",
		Short: "Check rule files for structural and metadata errors",
		RunE: func(_ *cobra.Command, args []string) error {
			bad := validateRules(os.Stdout, args)
			if bad > 0 {
				return fmt.Errorf("%d invalid rule(s)", bad)
			}
			return nil
		},
	}

	for _, c := range []*cobra.Command{list, test, validate} {
		c.Flags().StringVar(&rulesDir, "rules", "", "directory of YAML rules (default: built-in pack)")
		c.Flags().StringVar(&rulesInclude, "include", "", "comma-separated globs of rule files to load")
		c.Flags().StringVar(&rulesExclude, "exclude", "", "comma-separated globs of rule files to skip")
		c.Flags().BoolVar(&rulesBuiltin, "builtin", false, "load the built-in rules alongside --rules")
		cmd.AddCommand(c)
	}
	list.Flags().BoolVar(&rulesAll, "all", false, "include disabled rules")
}

// loadRuleSet loads rules per the rules subcommand flags, reporting
// malformed files to warn.
func loadRuleSet(warn io.Writer) ([]*rules.Rule, error) {
	rs, warnings, err := loadRules(rulesDir, rulesInclude, rulesExclude, rulesBuiltin)
	for _, w := range warnings {
		fmt.Fprintln(warn, "warning:", w)
	}
	return rs, err
}

func printRules(w io.Writer, rs []*rules.Rule, all bool) error {
	table := tablewriter.NewWriter(w)
	table.Header("Name", "Scope", "Severity", "Strings", "Enabled", "File")
	for _, r := range rs {
		if !r.Enabled && !all {
			continue
		}
		scopes := make([]string, len(r.Scope))
		for i, s := range r.Scope {
			scopes[i] = string(s)
		}
		enabled := "yes"
		if !r.Enabled {
			enabled = "no"
		}
		if err := table.Append([]string{
			r.Meta.Name,
			strings.Join(scopes, ","),
			string(r.Severity()),
			fmt.Sprint(len(r.Strings)),
			enabled,
			r.Filename,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// selfTest prints every failing case and returns how many failed.
func selfTest(w io.Writer, rs []*rules.Rule) int {
	failed := 0
	for _, r := range rs {
		for _, f := range r.SelfTest() {
			fmt.Fprintln(w, "FAIL", f.String())
			failed++
		}
	}
	return failed
}

// validateRules checks the given files, or the selected rule set when none
// are given, and returns the number of invalid rules.
func validateRules(w io.Writer, files []string) int {
	bad := 0
	check := func(r *rules.Rule) {
		if err := r.Validate(); err != nil {
			fmt.Fprintln(w, "INVALID", err)
			bad++
			return
		}
		fmt.Fprintln(w, "ok", r.Filename)
	}
	if len(files) == 0 {
		rs, warnings, err := loadRules(rulesDir, rulesInclude, rulesExclude, rulesBuiltin)
		for _, e := range warnings {
			fmt.Fprintln(w, "INVALID", e)
			bad++
		}
		if err != nil {
			fmt.Fprintln(w, "INVALID", err)
			return bad + 1
		}
		for _, r := range rs {
			check(r)
		}
		return bad
	}
	for _, f := range files {
		r, err := rules.Load(f)
		if err != nil {
			fmt.Fprintln(w, "INVALID", err)
			bad++
			continue
		}
		check(r)
	}
	return bad
}
