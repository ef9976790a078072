package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Template is written by `config init`.
const Template = `# trello-watchman configuration
trello_watchman:
  key: ""
  secret: ""

logging:
  file_logging:
    path: ""
  json_tcp:
    host: ""
    port: 0
  webhook:
    url: ""
    token: ""

rules:
  # directory of additional YAML rules; the built-in pack is used when empty
  path: ""
  include: "**/*.{yaml,yml}"
  exclude: ""
  builtin: true

scan:
  workers: 4
  cooldown: 90s
  timeframe: d
  # cron expression for scheduled scans, e.g. "0 */6 * * *"
  schedule: ""
`

// WriteTemplate writes Template to path, creating parent directories. An
// existing file is only replaced when force is set.
func WriteTemplate(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	// credentials live here
	return os.WriteFile(path, []byte(Template), 0o600)
}
