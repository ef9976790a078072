package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/varalys/trello-watchman/internal/engine"
	"github.com/varalys/trello-watchman/internal/rules"
	"github.com/varalys/trello-watchman/internal/sink"
	"github.com/varalys/trello-watchman/internal/trello"
	"github.com/varalys/trello-watchman/internal/types"
)

// Re-export selected internal types as a stable public API surface.
// These are type aliases so external consumers can depend on a stable path.
type (
	Rule             = rules.Rule
	Timeframe        = engine.Timeframe
	Summary          = engine.Summary
	RuleResult       = engine.RuleResult
	Finding          = types.Finding
	Scope            = types.Scope
	AttachmentResult = types.AttachmentResult
	TextResult       = types.TextResult
	Sink             = sink.Sink
)

var (
	Day     = engine.Day
	Week    = engine.Week
	Month   = engine.Month
	AllTime = engine.AllTime
)

const (
	ScopeAttachments = types.ScopeAttachments
	ScopeText        = types.ScopeText
)

// ParseTimeframe accepts d, w, m or a.
func ParseTimeframe(s string) (Timeframe, error) { return engine.ParseTimeframe(s) }

// BuiltinRules returns the embedded default rule pack.
func BuiltinRules() ([]*Rule, error) { return rules.Builtin() }

// LoadRules loads every rule file below dir. Malformed rules are returned as
// errors and skipped.
func LoadRules(dir string) ([]*Rule, []error) { return rules.LoadDir(dir, "", "") }

// Options configures Scan.
type Options struct {
	Key, Token string

	// Rules defaults to the built-in pack.
	Rules     []*Rule
	Timeframe Timeframe
	// Scopes defaults to every scope.
	Scopes []Scope
	// Sink receives progress and detections; discarded when nil.
	Sink Sink

	Workers  int
	Cooldown time.Duration
	BaseURL  string
	HTTP     trello.Doer
	Logger   *zerolog.Logger
}

// Scan runs every enabled rule once and returns the summary. Failures of
// individual rules are reported through the sink and the summary; the
// returned error is reserved for invalid options and cancellation.
func Scan(ctx context.Context, opts Options) (Summary, error) {
	if opts.Key == "" || opts.Token == "" {
		return Summary{}, errors.New("core: key and token are required")
	}
	rs := opts.Rules
	if rs == nil {
		var err error
		if rs, err = rules.Builtin(); err != nil {
			return Summary{}, err
		}
	}
	tf := opts.Timeframe
	if tf == (Timeframe{}) {
		tf = engine.Day
	}
	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = types.Scopes()
	}

	var copts []trello.Option
	if opts.BaseURL != "" {
		copts = append(copts, trello.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTP != nil {
		copts = append(copts, trello.WithHTTPClient(opts.HTTP))
	}
	if opts.Cooldown > 0 {
		copts = append(copts, trello.WithCooldown(opts.Cooldown))
	}
	if opts.Logger != nil {
		copts = append(copts, trello.WithLogger(*opts.Logger))
	}
	client := trello.New(opts.Key, opts.Token, copts...)

	eng := engine.New(client, opts.Sink, engine.WithWorkers(opts.Workers))
	return eng.Run(ctx, rs, tf, scopes)
}
