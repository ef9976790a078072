package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file.
const FileName = "watchman.conf"

// AppDir is the directory below the XDG config home holding FileName.
const AppDir = "trello-watchman"

// Environment variables overriding file values.
const (
	EnvKey     = "TRELLO_WATCHMAN_KEY"
	EnvSecret  = "TRELLO_WATCHMAN_SECRET"
	EnvLogPath = "TRELLO_WATCHMAN_LOG_PATH"
	EnvHost    = "TRELLO_WATCHMAN_HOST"
	EnvPort    = "TRELLO_WATCHMAN_PORT"
)

// FileConfig is the on-disk YAML configuration shape for trello-watchman.
type FileConfig struct {
	Trello  *TrelloConfig  `yaml:"trello_watchman"`
	Logging *LoggingConfig `yaml:"logging"`
	Rules   *RulesConfig   `yaml:"rules"`
	Scan    *ScanConfig    `yaml:"scan"`
}

// TrelloConfig holds the API key and token.
type TrelloConfig struct {
	Key    *string `yaml:"key"`
	Secret *string `yaml:"secret"`
}

type LoggingConfig struct {
	FileLogging *struct {
		Path *string `yaml:"path"`
	} `yaml:"file_logging"`
	JSONTCP *struct {
		Host *string `yaml:"host"`
		Port *int    `yaml:"port"`
	} `yaml:"json_tcp"`
	Webhook *struct {
		URL   *string `yaml:"url"`
		Token *string `yaml:"token"`
	} `yaml:"webhook"`
}

type RulesConfig struct {
	Path    *string `yaml:"path"`
	Include *string `yaml:"include"`
	Exclude *string `yaml:"exclude"`
	Builtin *bool   `yaml:"builtin"`
}

type ScanConfig struct {
	Workers   *int    `yaml:"workers"`
	Cooldown  *string `yaml:"cooldown"`
	Timeframe *string `yaml:"timeframe"`
	Schedule  *string `yaml:"schedule"`
}

// ConfigurationError reports missing or invalid settings. It is fatal at
// startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// GlobalPaths lists the locations searched by LoadGlobal, in order.
func GlobalPaths() []string {
	paths := []string{filepath.Join(xdg.ConfigHome, AppDir, FileName)}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, FileName))
	}
	return paths
}

// LoadGlobal loads the first config file found in GlobalPaths and returns
// the path it was read from.
func LoadGlobal() (FileConfig, string, error) {
	for _, p := range GlobalPaths() {
		if _, err := os.Stat(p); err == nil {
			cfg, err := LoadFile(p)
			return cfg, p, err
		}
	}
	return FileConfig{}, "", errors.New("no global config")
}

// Settings is the resolved configuration after environment overrides.
type Settings struct {
	Key, Secret string

	LogPath      string
	StreamHost   string
	StreamPort   int
	WebhookURL   string
	WebhookToken string

	RulesPath    string
	RulesInclude string
	RulesExclude string
	Builtin      bool

	Workers   int
	Cooldown  time.Duration
	Timeframe string
	Schedule  string
}

// Resolve merges fc with environment overrides read through getenv
// (os.Getenv when nil). Environment values win over the file.
func Resolve(fc FileConfig, getenv func(string) string) (Settings, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	var s Settings
	if t := fc.Trello; t != nil {
		s.Key = deref(t.Key)
		s.Secret = deref(t.Secret)
	}
	if l := fc.Logging; l != nil {
		if l.FileLogging != nil {
			s.LogPath = deref(l.FileLogging.Path)
		}
		if l.JSONTCP != nil {
			s.StreamHost = deref(l.JSONTCP.Host)
			if l.JSONTCP.Port != nil {
				s.StreamPort = *l.JSONTCP.Port
			}
		}
		if l.Webhook != nil {
			s.WebhookURL = deref(l.Webhook.URL)
			s.WebhookToken = deref(l.Webhook.Token)
		}
	}
	if r := fc.Rules; r != nil {
		s.RulesPath = deref(r.Path)
		s.RulesInclude = deref(r.Include)
		s.RulesExclude = deref(r.Exclude)
		if r.Builtin != nil {
			s.Builtin = *r.Builtin
		}
	}
	if sc := fc.Scan; sc != nil {
		if sc.Workers != nil {
			s.Workers = *sc.Workers
		}
		if sc.Cooldown != nil && *sc.Cooldown != "" {
			d, err := time.ParseDuration(*sc.Cooldown)
			if err != nil || d < 0 {
				return s, &ConfigurationError{Field: "scan.cooldown", Reason: fmt.Sprintf("invalid duration %q", *sc.Cooldown)}
			}
			s.Cooldown = d
		}
		s.Timeframe = deref(sc.Timeframe)
		s.Schedule = deref(sc.Schedule)
	}

	pick(&s.Key, getenv(EnvKey))
	pick(&s.Secret, getenv(EnvSecret))
	pick(&s.LogPath, getenv(EnvLogPath))
	pick(&s.StreamHost, getenv(EnvHost))
	if v := strings.TrimSpace(getenv(EnvPort)); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return s, &ConfigurationError{Field: EnvPort, Reason: fmt.Sprintf("invalid port %q", v)}
		}
		s.StreamPort = p
	}
	return s, nil
}

// Credentials returns the API key and token, or a ConfigurationError naming
// what is missing.
func (s Settings) Credentials() (key, token string, err error) {
	var missing []string
	if s.Key == "" {
		missing = append(missing, EnvKey)
	}
	if s.Secret == "" {
		missing = append(missing, EnvSecret)
	}
	if len(missing) > 0 {
		return "", "", &ConfigurationError{
			Field:  "trello_watchman",
			Reason: fmt.Sprintf("%s not set in the environment or %s", strings.Join(missing, " and "), FileName),
		}
	}
	return s.Key, s.Secret, nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func pick(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
