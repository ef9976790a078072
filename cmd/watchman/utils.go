package watchman

import (
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/varalys/trello-watchman/internal/config"
	"github.com/varalys/trello-watchman/internal/rules"
	"github.com/varalys/trello-watchman/internal/sink"
	"golang.org/x/term"
)

// loadSettings reads the config file named by --config, or the first global
// one, and applies environment overrides. A missing global file is not an
// error.
func loadSettings() (config.Settings, error) {
	var fc config.FileConfig
	if flagConfig != "" {
		var err error
		if fc, err = config.LoadFile(flagConfig); err != nil {
			return config.Settings{}, err
		}
	} else if gc, path, err := config.LoadGlobal(); err == nil {
		fc = gc
	} else if path != "" {
		return config.Settings{}, err
	}
	return config.Resolve(fc, os.Getenv)
}

// colorDisabled reports whether output to f should be plain text.
func colorDisabled(f *os.File) bool {
	if flagNoColor || os.Getenv("NO_COLOR") != "" {
		return true
	}
	return !isTerminal(f)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// diagLogger is the stderr logger for gateway diagnostics. Only warnings are
// shown unless --verbose is set.
func diagLogger(w io.Writer) zerolog.Logger {
	level := zerolog.WarnLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: w, NoColor: flagNoColor, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// loadRules returns the rule set selected by flags and settings. Rules from
// dir are loaded alongside the built-in pack when builtin is set; malformed
// rules are returned as warnings and skipped.
func loadRules(dir, include, exclude string, builtin bool) ([]*rules.Rule, []error, error) {
	var out []*rules.Rule
	var warnings []error
	if dir == "" || builtin {
		b, err := rules.Builtin()
		if err != nil {
			return nil, nil, err
		}
		out = append(out, b...)
	}
	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, nil, err
		}
		loaded, errs := rules.LoadDir(dir, include, exclude)
		out = append(out, loaded...)
		warnings = append(warnings, errs...)
	}
	if len(out) == 0 {
		return nil, warnings, errors.New("no rules loaded")
	}
	return out, warnings, nil
}

// splitList parses a comma-separated flag value.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// closeSink closes s and reports a failure on stderr; closing never fails a
// run that already produced output.
func closeSink(s sink.Sink, log zerolog.Logger) {
	if err := s.Close(); err != nil {
		log.Warn().Err(err).Msg("closing output")
	}
}

func pickString(cli string, values ...string) string {
	if cli != "" {
		return cli
	}
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func pickInt(cli int, values ...int) int {
	if cli != 0 {
		return cli
	}
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func pickDuration(cli time.Duration, values ...time.Duration) time.Duration {
	if cli != 0 {
		return cli
	}
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
