// Package core provides a small, stable facade over trello-watchman's internal
// engine for external integrations. It re-exports a narrow API surface so
// other tools can depend on a stable import path without reaching into
// internal packages.
//
// Example:
//
//	sum, err := core.Scan(ctx, core.Options{Key: key, Token: token, Timeframe: core.Week})
//	if err != nil { /* handle */ }
//	_ = core.MarshalFindings(os.Stdout, sum.Findings)
package core
