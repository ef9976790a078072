// Package config loads trello-watchman configuration from watchman.conf and
// the TRELLO_WATCHMAN_* environment variables. Environment values take
// precedence over the file; CLI code applies flags on top.
package config
