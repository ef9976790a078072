package core_test

import (
	"context"
	"fmt"
	"os"

	"github.com/varalys/trello-watchman/pkg/core"
)

// ExampleScan runs the built-in rules against the last week of activity and
// prints the findings as JSON.
func ExampleScan() {
	sum, err := core.Scan(context.Background(), core.Options{
		Key:       os.Getenv("TRELLO_WATCHMAN_KEY"),
		Token:     os.Getenv("TRELLO_WATCHMAN_SECRET"),
		Timeframe: core.Week,
		Scopes:    []core.Scope{core.ScopeText},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Scan failed: %v\n", err)
		return
	}
	for _, e := range sum.Errors() {
		fmt.Fprintln(os.Stderr, e)
	}
	_ = core.MarshalFindings(os.Stdout, sum.Findings)
}
