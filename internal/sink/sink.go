// Package sink routes scan output to its destination. Every sink speaks the
// same three capabilities: informational messages, detection notifications
// and critical errors.
package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/varalys/trello-watchman/internal/types"
)

const (
	// Source is stamped on every record.
	Source = "Trello Watchman"

	LevelNotify   = "NOTIFY"
	LevelInfo     = "INFO"
	LevelCritical = "CRITICAL"

	// LocalTimeFormat renders the localtime field, e.g. 2024-01-02 15:04:05,123456.
	LocalTimeFormat = "2006-01-02 15:04:05,000000"
)

// Sink receives scan output.
type Sink interface {
	Info(msg string)
	Notify(record any, scope types.Scope, ruleName, severity string)
	Critical(msg string)
	Close() error
}

// Option configures a Logger.
type Option func(*Logger)

// WithClock overrides the localtime source.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// WithCloser sets a resource released by Close.
func WithCloser(c io.Closer) Option {
	return func(l *Logger) { l.closer = c }
}

// Logger is a Sink writing one JSON object per line through zerolog.
type Logger struct {
	zl     zerolog.Logger
	now    func() time.Time
	closer io.Closer
}

// New returns a JSON-lines sink writing to w.
func New(w io.Writer, opts ...Option) *Logger {
	l := &Logger{zl: zerolog.New(w), now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// NewStdout writes to standard output. With pretty set, records are rendered
// by zerolog's console writer instead of raw JSON.
func NewStdout(pretty, noColor bool, opts ...Option) *Logger {
	if !pretty {
		return New(os.Stdout, opts...)
	}
	return New(ConsoleWriter(os.Stdout, noColor), opts...)
}

// ConsoleWriter renders records for humans.
func ConsoleWriter(w io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    noColor,
		PartsOrder: []string{"localtime", zerolog.LevelFieldName, zerolog.MessageFieldName},
		FieldsExclude: []string{
			"localtime", "source",
		},
		FormatLevel: func(i any) string {
			return fmt.Sprintf("%-8s", i)
		},
	}
}

func (l *Logger) base(level string) *zerolog.Event {
	return l.zl.Log().
		Str("localtime", l.now().Format(LocalTimeFormat)).
		Str("level", level).
		Str("source", Source)
}

func (l *Logger) Info(msg string) {
	l.base(LevelInfo).Msg(msg)
}

func (l *Logger) Critical(msg string) {
	l.base(LevelCritical).Msg(msg)
}

// Notify writes a detection. record is embedded as detection_data.
func (l *Logger) Notify(record any, scope types.Scope, ruleName, severity string) {
	l.base(LevelNotify).
		Str("scope", string(scope)).
		Str("severity", severity).
		Str("detection_type", ruleName).
		Interface("detection_data", record).
		Send()
}

func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Discard returns a sink that drops everything.
func Discard() Sink { return New(io.Discard) }

type multi []Sink

// Multi fans every call out to each of sinks in order.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

func (m multi) Info(msg string) {
	for _, s := range m {
		s.Info(msg)
	}
}

func (m multi) Notify(record any, scope types.Scope, ruleName, severity string) {
	for _, s := range m {
		s.Notify(record, scope, ruleName, severity)
	}
}

func (m multi) Critical(msg string) {
	for _, s := range m {
		s.Critical(msg)
	}
}

func (m multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
