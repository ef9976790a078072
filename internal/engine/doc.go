// Package engine contains the core scanning logic for trello-watchman. For
// each rule and scope it searches the API, drops cards outside the timeframe,
// enriches the survivors with board context, confirms text matches against
// the rule pattern and deduplicates the results. This package is internal;
// external consumers should use the stable facade in pkg/core.
package engine
