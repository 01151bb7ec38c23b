package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/overlaysurvey/internal/config"
	"github.com/nao1215/overlaysurvey/internal/database"
	"github.com/nao1215/overlaysurvey/internal/mocknet"
	"github.com/nao1215/overlaysurvey/internal/node"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// outputArgs returns the three required output flags for files in dir.
func outputArgs(dir string) []string {
	return []string{
		"-s", filepath.Join(dir, "stats.json"),
		"-r", filepath.Join(dir, "survey_result.json"),
		"-w", filepath.Join(dir, "topology.graphml"),
	}
}

// emptyConfigFile keeps tests independent of a .overlaysurvey in the
// developer's home directory.
func emptyConfigFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestNewSurveyCmd tests the survey command creation.
func TestNewSurveyCmd(t *testing.T) {
	t.Parallel()

	cmd := NewSurveyCmd()

	if cmd.Use != "survey" {
		t.Errorf("expected use 'survey', got %q", cmd.Use)
	}
	if cmd.Long == "" {
		t.Error("expected non-empty long description")
	}

	flags := []struct {
		name      string
		shorthand string
	}{
		{"node", "n"},
		{"duration", "d"},
		{"graph-stats", "s"},
		{"survey-result", "r"},
		{"graphml-write", "w"},
		{"node-list", "l"},
		{"markdown", "m"},
		{"json-summary", "j"},
		{"config", "c"},
		{"settle-delay", ""},
		{"timeout", ""},
		{"proxy", ""},
		{"no-history", ""},
		{"db-dir", ""},
	}
	for _, f := range flags {
		t.Run("has "+f.name+" flag", func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(f.name)
			if flag == nil {
				t.Fatalf("expected %s flag", f.name)
			}
			if flag.Shorthand != f.shorthand {
				t.Errorf("expected shorthand %q, got %q", f.shorthand, flag.Shorthand)
			}
		})
	}

	t.Run("settle delay default", func(t *testing.T) {
		t.Parallel()
		if got := cmd.Flags().Lookup("settle-delay").DefValue; got != "1s" {
			t.Errorf("expected default 1s, got %q", got)
		}
	})
}

// TestSurveyValidation tests that configuration errors are reported before
// any request is sent.
func TestSurveyValidation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgFile := emptyConfigFile(t)

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "missing node",
			args:    append([]string{"survey", "-c", cfgFile, "-d", "50"}, outputArgs(dir)...),
			wantErr: config.ErrNoNode,
		},
		{
			name:    "missing duration",
			args:    append([]string{"survey", "-c", cfgFile, "-n", "http://127.0.0.1:1"}, outputArgs(dir)...),
			wantErr: config.ErrInvalidDuration,
		},
		{
			name:    "missing graph stats",
			args:    []string{"survey", "-c", cfgFile, "-n", "http://127.0.0.1:1", "-d", "50", "-r", "r.json", "-w", "g.graphml"},
			wantErr: config.ErrNoGraphStatsOutput,
		},
		{
			name:    "missing survey result",
			args:    []string{"survey", "-c", cfgFile, "-n", "http://127.0.0.1:1", "-d", "50", "-s", "s.json", "-w", "g.graphml"},
			wantErr: config.ErrNoSurveyResultOutput,
		},
		{
			name:    "missing graphml",
			args:    []string{"survey", "-c", cfgFile, "-n", "http://127.0.0.1:1", "-d", "50", "-s", "s.json", "-r", "r.json"},
			wantErr: config.ErrNoGraphMLOutput,
		},
		{
			name:    "negative settle delay",
			args:    append([]string{"survey", "-c", cfgFile, "-n", "http://127.0.0.1:1", "-d", "50", "--settle-delay=-1s"}, outputArgs(dir)...),
			wantErr: config.ErrInvalidSettleDelay,
		},
		{
			name:    "bad node url",
			args:    append([]string{"survey", "-c", cfgFile, "-n", "ftp://node", "-d", "50"}, outputArgs(dir)...),
			wantErr: node.ErrInvalidBaseURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := execute(t, tt.args...)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !strings.Contains(err.Error(), "configuration error") {
				t.Errorf("expected a configuration error, got %v", err)
			}
		})
	}

	t.Run("explicit config file missing", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "survey", "-c", filepath.Join(dir, "missing.yaml"))
		if err == nil || !strings.Contains(err.Error(), "configuration file not found") {
			t.Errorf("expected config not found error, got %v", err)
		}
	})
}

// TestBuildConfigWithFile tests that the config file fills unset flags.
func TestBuildConfigWithFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "overlaysurvey.yaml")
	content := `duration: 40
settleDelay: 2s
outputs:
  graphStats: stats.json
  surveyResult: state.json
  graphml: topology.graphml
nodes:
  validator-1:
    url: http://10.0.0.5:11626
    duration: 60
`
	if err := os.WriteFile(cfgFile, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Run("profile", func(t *testing.T) {
		t.Parallel()

		cmd := NewSurveyCmd()
		if err := cmd.ParseFlags([]string{"-c", cfgFile, "-n", "validator-1"}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("buildConfig failed: %v", err)
		}
		if cfg.NodeURL != "http://10.0.0.5:11626" || cfg.Duration != 60 {
			t.Errorf("profile not applied: %+v", cfg)
		}
		if cfg.GraphStatsPath != "stats.json" || cfg.SettleDelay.String() != "2s" {
			t.Errorf("file values not applied: %+v", cfg)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected a valid config, got %v", err)
		}
	})

	t.Run("flags win", func(t *testing.T) {
		t.Parallel()

		cmd := NewSurveyCmd()
		args := []string{"-c", cfgFile, "-n", "http://127.0.0.1:11626", "-d", "5", "-s", "mine.json", "--no-history"}
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("buildConfig failed: %v", err)
		}
		if cfg.NodeURL != "http://127.0.0.1:11626" || cfg.Duration != 5 || cfg.GraphStatsPath != "mine.json" {
			t.Errorf("flags overridden by file: %+v", cfg)
		}
		if cfg.SaveHistory {
			t.Error("expected --no-history to disable history")
		}
	})

	t.Run("explicit default value wins", func(t *testing.T) {
		t.Parallel()

		cmd := NewSurveyCmd()
		if err := cmd.ParseFlags([]string{"-c", cfgFile, "-n", "validator-1", "--settle-delay", "1s", "-d", "60"}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("buildConfig failed: %v", err)
		}
		if cfg.SettleDelay != config.DefaultSettleDelay {
			t.Errorf("explicit --settle-delay 1s replaced by the file: %v", cfg.SettleDelay)
		}
		if cfg.Duration != 60 || cfg.NodeURL != "http://10.0.0.5:11626" {
			t.Errorf("unexpected node settings %+v", cfg)
		}
	})
}

// TestMockSurveyCmd tests a complete crawl of the built-in network.
func TestMockSurveyCmd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dbDir := filepath.Join(dir, "db")
	args := append([]string{"mocksurvey", "--settle-delay", "0s", "--db-dir", dbDir,
		"-m", filepath.Join(dir, "summary.md"), "-j", filepath.Join(dir, "summary.json")}, outputArgs(dir)...)

	stdout, _, err := execute(t, args...)
	if err != nil {
		t.Fatalf("mocksurvey failed: %v", err)
	}

	for _, want := range []string{"OVERLAY SURVEY SUMMARY", mocknet.SelfID, "Saved run"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected output to contain %q:\n%s", want, stdout)
		}
	}

	for _, name := range []string{"stats.json", "survey_result.json", "topology.graphml", "summary.md", "summary.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to be written: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "stats.json"))
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid statistics: %v", err)
	}
	for _, key := range []string{"average_shortest_path_length", "average_clustering", "clustering", "degree"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("statistics lack %q", key)
		}
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	runs, err := db.ListRuns(t.Context(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].NodeURL != mockNodeURL || runs[0].NodeCount != 3 {
		t.Fatalf("unexpected history %+v", runs)
	}

	summary, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(summary), runs[0].ID) {
		t.Errorf("JSON summary does not name the saved run %s:\n%s", runs[0].ID, summary)
	}
}

// TestMockSurveyWithoutHistory tests --no-history and the required outputs.
func TestMockSurveyWithoutHistory(t *testing.T) {
	t.Parallel()

	t.Run("no history", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		args := append([]string{"mocksurvey", "--settle-delay", "0s", "--no-history"}, outputArgs(dir)...)
		stdout, _, err := execute(t, args...)
		if err != nil {
			t.Fatalf("mocksurvey failed: %v", err)
		}
		if strings.Contains(stdout, "Saved run") {
			t.Error("run should not have been saved")
		}
	})

	t.Run("missing outputs", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "mocksurvey", "--no-history")
		if !errors.Is(err, config.ErrNoGraphStatsOutput) {
			t.Errorf("expected ErrNoGraphStatsOutput, got %v", err)
		}
	})
}

// serveNetwork exposes a mock network over HTTP.
func serveNetwork(t *testing.T, n *mocknet.Network) (*httptest.Server, *userAgents) {
	t.Helper()

	seen := &userAgents{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.add(r.UserAgent())
		body, err := n.Get(r.Context(), r.URL.Path, r.URL.Query())
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

type userAgents struct {
	mu  sync.Mutex
	all []string
}

func (u *userAgents) add(ua string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.all = append(u.all, ua)
}

func (u *userAgents) list() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.all...)
}

// TestSurveyOverHTTP tests the survey command against an HTTP node.
func TestSurveyOverHTTP(t *testing.T) {
	t.Parallel()

	n := mocknet.ThreeNode()
	srv, seen := serveNetwork(t, n)

	dir := t.TempDir()
	args := append([]string{"survey", "-c", emptyConfigFile(t),
		"-n", srv.URL, "-d", "25", "--settle-delay", "0s", "--no-history",
		"--user-agent", "survey-test"}, outputArgs(dir)...)

	stdout, _, err := execute(t, args...)
	if err != nil {
		t.Fatalf("survey failed: %v", err)
	}
	if !strings.Contains(stdout, "Nodes:          3") {
		t.Errorf("expected three nodes in summary:\n%s", stdout)
	}

	if surveyed := n.SurveyedIDs(); len(surveyed) != 3 {
		t.Errorf("expected every node to be surveyed once, got %v", surveyed)
	}
	for _, r := range n.RequestsTo(node.PathSurveyTopology) {
		if r.Query.Get("duration") != "25" {
			t.Errorf("expected duration 25, got %q", r.Query.Get("duration"))
		}
	}
	for _, ua := range seen.list() {
		if ua != "survey-test" {
			t.Errorf("unexpected User-Agent %q", ua)
		}
	}
}

// TestSurveyNodeUnreachable tests that a transport failure aborts the run
// without artifacts.
func TestSurveyNodeUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	dir := t.TempDir()
	args := append([]string{"survey", "-c", emptyConfigFile(t),
		"-n", url, "-d", "25", "--settle-delay", "0s", "--no-history"}, outputArgs(dir)...)

	_, _, err := execute(t, args...)
	if err == nil || !strings.Contains(err.Error(), "survey failed") {
		t.Fatalf("expected survey failure, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "stats.json")); !os.IsNotExist(err) {
		t.Error("no artifact should be written after a failed crawl")
	}
}

// TestLogFormat tests the global --log-format flag.
func TestLogFormat(t *testing.T) {
	t.Parallel()

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		args := append([]string{"--log-format", "json", "-v", "mocksurvey", "--settle-delay", "0s", "--no-history"}, outputArgs(dir)...)
		_, stderr, err := execute(t, args...)
		if err != nil {
			t.Fatalf("mocksurvey failed: %v", err)
		}
		line, _, _ := strings.Cut(stderr, "\n")
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("expected JSON log lines, got %q: %v", line, err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		args := append([]string{"--log-format", "xml", "mocksurvey", "--no-history"}, outputArgs(dir)...)
		if _, _, err := execute(t, args...); err == nil {
			t.Error("expected error for unknown log format")
		}
	})
}
