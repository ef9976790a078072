package watchman

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/varalys/trello-watchman/internal/config"
	"github.com/varalys/trello-watchman/internal/report"
	"github.com/varalys/trello-watchman/internal/scheduler"
	"github.com/varalys/trello-watchman/internal/sink"
	"github.com/varalys/trello-watchman/internal/types"
	"github.com/varalys/trello-watchman/pkg/core"
)

var (
	scanTimeframe   string
	scanOutput      string
	scanAll         bool
	scanAttachments bool
	scanText        bool
	scanRulesDir    string
	scanInclude     string
	scanExclude     string
	scanBuiltin     bool
	scanWorkers     int
	scanCooldown    time.Duration
	scanPretty      bool
	scanSummary     bool
	scanSARIF       string
	scanJSON        string
	scanFailOn      string
	scanSchedule    string
	scanAPIURL      string
)

func init() {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Search recent Trello cards for secrets",
		Example: `
# text rules against the last week, JSON lines on stdout
trello-watchman scan --timeframe w --text

# everything, appended to trello_watchman.log and summarised
trello-watchman scan --all --output file --summary

# every six hours, streamed to a log collector
trello-watchman scan --all --output stream --schedule "0 */6 * * *"
`,
		RunE: runScan,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVarP(&scanTimeframe, "timeframe", "t", "", "how far back to look: d (day), w (week), m (month), a (all time)")
	cmd.Flags().StringVarP(&scanOutput, "output", "o", "stdout", "where to send detections: stdout, file, stream, webhook (comma-separated)")
	cmd.Flags().BoolVar(&scanAll, "all", false, "run rules for every scope")
	cmd.Flags().BoolVar(&scanAttachments, "attachments", false, "run rules for the attachments scope")
	cmd.Flags().BoolVar(&scanText, "text", false, "run rules for the text scope")
	cmd.Flags().StringVar(&scanRulesDir, "rules", "", "directory of YAML rules (replaces the built-in pack unless --builtin)")
	cmd.Flags().StringVar(&scanInclude, "include", "", "comma-separated globs of rule files to load")
	cmd.Flags().StringVar(&scanExclude, "exclude", "", "comma-separated globs of rule files to skip")
	cmd.Flags().BoolVar(&scanBuiltin, "builtin", false, "load the built-in rules alongside --rules")
	cmd.Flags().IntVar(&scanWorkers, "workers", 0, "concurrent card lookups per search (default 4)")
	cmd.Flags().DurationVar(&scanCooldown, "cooldown", 0, "wait after a 429 response before retrying (default 90s)")
	cmd.Flags().BoolVar(&scanPretty, "pretty", false, "render stdout records for humans instead of JSON")
	cmd.Flags().BoolVar(&scanSummary, "summary", false, "print a summary and findings table to stderr after each scan")
	cmd.Flags().StringVar(&scanSARIF, "sarif", "", "write findings as SARIF 2.1.0 to this file")
	cmd.Flags().StringVar(&scanJSON, "json", "", "write findings as a JSON array to this file ('-' for stdout)")
	cmd.Flags().StringVar(&scanFailOn, "fail-on", "", "exit 1 when a finding is at or above low|medium|high|critical")
	cmd.Flags().StringVar(&scanSchedule, "schedule", "", "re-run on a cron schedule (e.g. \"0 */6 * * *\" or \"@every 6h\") until interrupted")
	cmd.Flags().StringVar(&scanAPIURL, "api-url", "", "Trello API base URL")
	_ = cmd.Flags().MarkHidden("api-url")
}

// scanPlan is everything a single scan needs, resolved once from flags,
// environment and config file.
type scanPlan struct {
	settings config.Settings
	key      string
	token    string
	rules    []*core.Rule
	tf       core.Timeframe
	scopes   []types.Scope
	outputs  []string
	workers  int
	cooldown time.Duration
	apiURL   string
	schedule string
	failOn   string
	log      zerolog.Logger
}

func runScan(cmd *cobra.Command, _ []string) error {
	log := diagLogger(os.Stderr)
	plan, err := buildPlan(log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if plan.schedule != "" {
		s, err := scheduler.New(plan.schedule, time.Local, func(ctx context.Context) error {
			_, err := scanOnce(ctx, plan)
			return err
		}, log)
		if err != nil {
			return err
		}
		log.Info().Str("schedule", plan.schedule).Time("next", s.Next(time.Now())).Msg("waiting for first scheduled scan")
		return s.Run(ctx)
	}

	findings, err := scanOnce(ctx, plan)
	if err != nil {
		return err
	}
	if plan.failOn != "" && report.ShouldFail(findings, plan.failOn) {
		os.Exit(1)
	}
	return nil
}

func buildPlan(log zerolog.Logger) (scanPlan, error) {
	s, err := loadSettings()
	if err != nil {
		return scanPlan{}, err
	}
	key, token, err := s.Credentials()
	if err != nil {
		return scanPlan{}, err
	}
	tf, err := core.ParseTimeframe(pickString(scanTimeframe, s.Timeframe, "d"))
	if err != nil {
		return scanPlan{}, err
	}

	if scanFailOn != "" {
		if _, ok := types.ParseSeverity(scanFailOn); !ok {
			return scanPlan{}, fmt.Errorf("invalid --fail-on %q (want low, medium, high or critical)", scanFailOn)
		}
	}

	dir := pickString(scanRulesDir, s.RulesPath)
	rs, warnings, err := loadRules(dir, pickString(scanInclude, s.RulesInclude), pickString(scanExclude, s.RulesExclude), scanBuiltin || s.Builtin)
	if err != nil {
		return scanPlan{}, fmt.Errorf("load rules: %w", err)
	}
	for _, w := range warnings {
		log.Warn().Err(w).Msg("skipping rule")
	}

	outputs := splitList(scanOutput)
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}
	for _, o := range outputs {
		switch o {
		case "stdout", "file", "stream", "webhook":
		default:
			return scanPlan{}, fmt.Errorf("unknown output %q (want stdout, file, stream or webhook)", o)
		}
	}

	return scanPlan{
		settings: s,
		key:      key,
		token:    token,
		rules:    rs,
		tf:       tf,
		scopes:   selectedScopes(),
		outputs:  outputs,
		workers:  pickInt(scanWorkers, s.Workers),
		cooldown: pickDuration(scanCooldown, s.Cooldown),
		apiURL:   scanAPIURL,
		schedule: pickString(scanSchedule, s.Schedule),
		failOn:   scanFailOn,
		log:      log,
	}, nil
}

// selectedScopes maps the scope flags to scan order. No flag means every
// scope.
func selectedScopes() []types.Scope {
	if scanAll || (!scanAttachments && !scanText) {
		return types.Scopes()
	}
	var out []types.Scope
	if scanAttachments {
		out = append(out, types.ScopeAttachments)
	}
	if scanText {
		out = append(out, types.ScopeText)
	}
	return out
}

// scanOnce runs one full scan with freshly opened outputs and writes the
// requested reports.
func scanOnce(ctx context.Context, p scanPlan) ([]types.Finding, error) {
	out, err := openSink(ctx, p)
	if err != nil {
		return nil, err
	}
	defer closeSink(out, p.log)

	status := statusPrinter(out, p.outputs)
	status(fmt.Sprintf("Trello Watchman started execution - Version: %s", version))
	status(fmt.Sprintf("%d rules loaded", len(p.rules)))

	sum, err := core.Scan(ctx, core.Options{
		Key:       p.key,
		Token:     p.token,
		Rules:     p.rules,
		Timeframe: p.tf,
		Scopes:    p.scopes,
		Sink:      out,
		Workers:   p.workers,
		Cooldown:  p.cooldown,
		BaseURL:   p.apiURL,
		Logger:    &p.log,
	})
	if err != nil {
		return nil, err
	}
	status("++++++Audit completed++++++")

	if err := writeReports(sum); err != nil {
		return nil, err
	}
	return sum.Findings, nil
}

// statusPrinter sends progress lines through the sink when detections go to
// stdout, and prints them plainly otherwise.
func statusPrinter(out sink.Sink, outputs []string) func(string) {
	for _, o := range outputs {
		if o == "stdout" {
			return out.Info
		}
	}
	return func(msg string) { fmt.Fprintln(os.Stdout, msg) }
}

func openSink(ctx context.Context, p scanPlan) (sink.Sink, error) {
	var sinks []sink.Sink
	fail := func(err error) (sink.Sink, error) {
		for _, s := range sinks {
			_ = s.Close()
		}
		return nil, err
	}
	for _, o := range p.outputs {
		switch o {
		case "stdout":
			sinks = append(sinks, sink.NewStdout(scanPretty, colorDisabled(os.Stdout)))
		case "file":
			dir := p.settings.LogPath
			if dir == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fail(err)
				}
				dir = home
				p.log.Info().Str("path", filepath.Join(dir, sink.LogFileName)).Msg("no log path configured, writing to home directory")
			}
			f, err := sink.NewFile(dir)
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, f)
		case "stream":
			if p.settings.StreamHost == "" || p.settings.StreamPort == 0 {
				return fail(&config.ConfigurationError{Field: "logging.json_tcp", Reason: "JSON TCP stream selected with no host and port"})
			}
			st, err := sink.NewStream(ctx, p.settings.StreamHost, p.settings.StreamPort)
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, st)
		case "webhook":
			if p.settings.WebhookURL == "" {
				return fail(&config.ConfigurationError{Field: "logging.webhook.url", Reason: "webhook output selected with no URL"})
			}
			sinks = append(sinks, sink.NewWebhook(p.settings.WebhookURL, p.settings.WebhookToken, version))
		}
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return sink.Multi(sinks...), nil
}

func writeReports(sum core.Summary) error {
	findings := sum.Findings
	if scanSummary {
		opts := report.PrintOptions{NoColor: colorDisabled(os.Stderr)}
		fmt.Fprintln(os.Stderr)
		if err := report.PrintSummary(os.Stderr, sum, opts); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr)
		if err := report.PrintFindings(os.Stderr, findings, opts); err != nil {
			return err
		}
	}
	if scanSARIF != "" {
		if err := writeFile(scanSARIF, func(w io.Writer) error {
			return report.WriteSARIF(w, findings, version)
		}); err != nil {
			return fmt.Errorf("sarif error: %w", err)
		}
	}
	if scanJSON != "" {
		if err := writeFile(scanJSON, func(w io.Writer) error {
			return core.MarshalFindings(w, findings)
		}); err != nil {
			return fmt.Errorf("json error: %w", err)
		}
	}
	return nil
}

// writeFile writes through fn to path, or to stdout when path is "-".
func writeFile(path string, fn func(io.Writer) error) error {
	if path == "-" {
		return fn(os.Stdout)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
