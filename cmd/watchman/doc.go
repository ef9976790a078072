// Package watchman provides the command-line interface for trello-watchman.
// It configures subcommands (scan, rules, auth, config, etc.), parses flags,
// and executes the selected command.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/varalys/trello-watchman/cmd/watchman"
//	func main() { watchman.Execute() }
package watchman
