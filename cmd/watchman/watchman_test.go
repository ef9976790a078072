package watchman

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varalys/trello-watchman/internal/config"
	"github.com/varalys/trello-watchman/internal/rules"
	"github.com/varalys/trello-watchman/internal/sink"
	"github.com/varalys/trello-watchman/internal/types"
)

const awsRule = `filename: aws.yaml
enabled: true
meta:
  name: AWS Keys
  author: test
  date: '2024-01-01'
  version: 1.0.0
  description: aws keys
  severity: high
scope:
  - text
test_cases:
  match_cases:
    - 'AKIA1234567890ABCDEF'
  fail_cases:
    - 'AKIA1234'
strings:
  - '"AKIA"'
pattern: 'AKIA[0-9A-Z]{16}'
`

const brokenRule = `filename: broken.yaml
enabled: true
meta:
  name: Broken
  severity: high
scope:
  - text
test_cases:
  match_cases:
    - 'xyz'
  fail_cases: blank
strings:
  - '"abc"'
pattern: 'abc'
`

func writeTestFile(t *testing.T, path, body string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// fakeTrello answers every search with one recently active card carrying an
// AWS key in its description.
func fakeTrello(t *testing.T) *httptest.Server {
	t.Helper()
	now := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/search":
			_ = json.NewEncoder(w).Encode(map[string]any{"cards": []map[string]any{{
				"id": "c1", "name": "deploy", "desc": "AKIA1234567890ABCDEF",
				"url": "https://trello.com/c/c1", "idBoard": "b1", "dateLastActivity": now,
			}}})
		case strings.HasSuffix(r.URL.Path, "/members"):
			_, _ = w.Write([]byte(`[{"id":"m1","username":"alice"}]`))
		case strings.HasPrefix(r.URL.Path, "/boards/"):
			_, _ = w.Write([]byte(`{"id":"b1","name":"Ops"}`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScanCommand_FileOutputAndJSON(t *testing.T) {
	t.Setenv(config.EnvKey, "")
	t.Setenv(config.EnvSecret, "")
	t.Setenv(config.EnvLogPath, "")

	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	rulesDir := filepath.Join(dir, "rules")
	writeTestFile(t, filepath.Join(rulesDir, "aws.yaml"), awsRule)
	cfg := writeTestFile(t, filepath.Join(dir, "watchman.conf"), `trello_watchman:
  key: k
  secret: t
logging:
  file_logging:
    path: `+logDir+`
`)
	out := filepath.Join(dir, "findings.json")
	srv := fakeTrello(t)

	rootCmd.SetArgs([]string{"scan", "--config", cfg, "--rules", rulesDir, "--text",
		"--output", "file", "--json", out, "--api-url", srv.URL})
	require.NoError(t, rootCmd.Execute())

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	var findings []types.Finding
	require.NoError(t, json.Unmarshal(b, &findings))
	require.Len(t, findings, 1)
	assert.Equal(t, "AWS Keys", findings[0].Rule)
	assert.Equal(t, "Ops", findings[0].Board)

	logged, err := os.ReadFile(filepath.Join(logDir, sink.LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(logged), `"level":"NOTIFY"`)
	assert.Contains(t, string(logged), "AKIA1234567890ABCDEF")
}

func TestSelectedScopes(t *testing.T) {
	scanAll, scanAttachments, scanText = false, false, false
	defer func() { scanAll, scanAttachments, scanText = false, false, false }()

	assert.Equal(t, types.Scopes(), selectedScopes())

	scanText = true
	assert.Equal(t, []types.Scope{types.ScopeText}, selectedScopes())

	scanAll = true
	assert.Equal(t, types.Scopes(), selectedScopes())
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "aws.yaml"), awsRule)
	writeTestFile(t, filepath.Join(dir, "bad.yaml"), "meta: {}\n")

	rs, warnings, err := loadRules(dir, "", "", false)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Len(t, warnings, 1)

	withBuiltin, _, err := loadRules(dir, "", "", true)
	require.NoError(t, err)
	assert.Greater(t, len(withBuiltin), 1)

	builtin, _, err := loadRules("", "", "", false)
	require.NoError(t, err)
	assert.Len(t, builtin, len(withBuiltin)-1)

	_, _, err = loadRules(filepath.Join(dir, "missing"), "", "", false)
	assert.Error(t, err)
}

func TestSelfTestAndValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeTestFile(t, filepath.Join(dir, "aws.yaml"), awsRule)
	broken := writeTestFile(t, filepath.Join(dir, "broken.yaml"), brokenRule)

	r, err := rules.Load(broken)
	require.NoError(t, err)
	var buf bytes.Buffer
	assert.Equal(t, 1, selfTest(&buf, []*rules.Rule{r}))
	assert.Contains(t, buf.String(), "FAIL Broken")

	buf.Reset()
	assert.Equal(t, 0, validateRules(&buf, []string{good}))
	assert.Equal(t, 1, validateRules(&buf, []string{filepath.Join(dir, "nope.yaml")}))
}

func TestPrintRules(t *testing.T) {
	rs, err := rules.Builtin()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, printRules(&buf, rs, false))
	assert.Contains(t, buf.String(), "AWS Access Keys")
}

func TestOpenSink_RequiresStreamConfig(t *testing.T) {
	_, err := openSink(t.Context(), scanPlan{outputs: []string{"stream"}})
	var ce *config.ConfigurationError
	assert.ErrorAs(t, err, &ce)

	_, err = openSink(t.Context(), scanPlan{outputs: []string{"webhook"}})
	assert.ErrorAs(t, err, &ce)
}

func TestPickHelpers(t *testing.T) {
	assert.Equal(t, "cli", pickString("cli", "env", "d"))
	assert.Equal(t, "d", pickString("", "", "d"))
	assert.Equal(t, 4, pickInt(0, 0, 4))
	assert.Equal(t, 2*time.Second, pickDuration(0, 2*time.Second))
	assert.Equal(t, []string{"stdout", "file"}, splitList(" stdout, ,file"))
}

func TestConfigInit(t *testing.T) {
	out := filepath.Join(t.TempDir(), "watchman.conf")
	rootCmd.SetArgs([]string{"config", "init", "--output", out})
	require.NoError(t, rootCmd.Execute())

	fc, err := config.LoadFile(out)
	require.NoError(t, err)
	assert.NotNil(t, fc.Trello)

	rootCmd.SetArgs([]string{"config", "init", "--output", out})
	assert.Error(t, rootCmd.Execute())
	cfgOutput, cfgForce = "", false
}

func planFixture(t *testing.T, conf string) {
	t.Helper()
	t.Setenv(config.EnvKey, "")
	t.Setenv(config.EnvSecret, "")
	dir := t.TempDir()
	rulesDir := filepath.Join(dir, "rules")
	writeTestFile(t, filepath.Join(rulesDir, "aws.yaml"), awsRule)
	flagConfig = writeTestFile(t, filepath.Join(dir, "watchman.conf"), conf)
	scanRulesDir, scanSchedule, scanFailOn, scanTimeframe = rulesDir, "", "", ""
	t.Cleanup(func() {
		flagConfig, scanRulesDir, scanSchedule, scanFailOn = "", "", "", ""
	})
}

func TestBuildPlan_ScheduleFromConfig(t *testing.T) {
	planFixture(t, `trello_watchman:
  key: k
  secret: t
scan:
  schedule: "@every 6h"
`)
	plan, err := buildPlan(zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "@every 6h", plan.schedule)

	scanSchedule = "0 */2 * * *"
	plan, err = buildPlan(zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "0 */2 * * *", plan.schedule)
}

func TestBuildPlan_FailOn(t *testing.T) {
	planFixture(t, "trello_watchman:\n  key: k\n  secret: t\n")

	scanFailOn = "hgih"
	_, err := buildPlan(zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--fail-on")

	scanFailOn = "High"
	plan, err := buildPlan(zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "High", plan.failOn)
}

func TestCompletion_DocumentsEveryShell(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"completion"})
	require.NoError(t, err)
	for _, sh := range []string{"bash", "zsh", "fish", "powershell"} {
		assert.Contains(t, cmd.Example, "completion "+sh)
		assert.Contains(t, cmd.Use, sh)
	}
	assert.Error(t, cmd.RunE(cmd, []string{"tcsh"}))
}
