package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/overlaysurvey/internal/database"
	"github.com/nao1215/overlaysurvey/internal/mocknet"
	"github.com/nao1215/overlaysurvey/internal/node"
	"github.com/nao1215/overlaysurvey/internal/stats"
	"github.com/nao1215/overlaysurvey/internal/survey"
	"github.com/nao1215/overlaysurvey/internal/topology"
)

// crawlThreeNode runs a crawl against the canned three-node network.
func crawlThreeNode(t *testing.T) *Artifacts {
	t.Helper()

	c := survey.New(node.NewClient(mocknet.ThreeNode()), mocknet.ThreeNodeDuration,
		survey.WithSettleDelay(time.Millisecond))
	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	return NewArtifacts("mock://three-node", res)
}

// TestNewArtifacts tests wrapping a finished crawl.
func TestNewArtifacts(t *testing.T) {
	t.Parallel()

	a := crawlThreeNode(t)
	if len(a.RunID) != 36 {
		t.Errorf("expected a UUID run id, got %q", a.RunID)
	}
	if a.Self.ID != mocknet.SelfID || a.Rounds != 2 {
		t.Errorf("unexpected artifacts %+v", a)
	}

	s := a.Summary()
	if s.RunID != a.RunID || s.NodeURL != "mock://three-node" || s.NodeCount != 3 {
		t.Errorf("unexpected summary %+v", s)
	}
}

// TestSurveyPipeline tests the full post-crawl pipeline.
func TestSurveyPipeline(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := SurveyOutputs{
		StatsPath:    filepath.Join(dir, "stats.json"),
		GraphMLPath:  filepath.Join(dir, "graph.graphml"),
		StatePath:    filepath.Join(dir, "state.json"),
		MarkdownPath: filepath.Join(dir, "summary.md"),

		JSONSummaryPath: filepath.Join(dir, "summary.json"),
	}

	db, err := database.Open(filepath.Join(dir, "db"), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	p := NewSurveyPipeline(out, db, nil)
	want := []string{"compute_stats", "write_artifacts", "save_history"}
	if names := p.StepNames(); strings.Join(names, " ") != strings.Join(want, " ") {
		t.Fatalf("unexpected steps %v", names)
	}

	a := crawlThreeNode(t)
	if err := p.Execute(context.Background(), a); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	if len(a.Outputs()) != 5 {
		t.Errorf("expected 5 outputs, got %v", a.Outputs())
	}

	t.Run("statistics file", func(t *testing.T) {
		data, err := os.ReadFile(out.StatsPath)
		if err != nil {
			t.Fatal(err)
		}
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(data, &doc); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(doc) != 4 {
			t.Errorf("expected 4 keys, got %d", len(doc))
		}
		if string(doc["average_clustering"]) != "1" {
			t.Errorf("expected a triangle to have clustering 1, got %s", doc["average_clustering"])
		}
	})

	t.Run("graphml file", func(t *testing.T) {
		f, err := os.Open(out.GraphMLPath)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()

		g, err := topology.ReadGraphML(f)
		if err != nil {
			t.Fatalf("ReadGraphML failed: %v", err)
		}
		if g.Digest() != a.Graph.Digest() {
			t.Error("written graph differs from the crawled one")
		}
	})

	t.Run("survey state file", func(t *testing.T) {
		data, err := os.ReadFile(out.StatePath)
		if err != nil {
			t.Fatal(err)
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(doc) != 3 {
			t.Errorf("expected 3 node states, got %d", len(doc))
		}
	})

	t.Run("markdown file", func(t *testing.T) {
		data, err := os.ReadFile(out.MarkdownPath)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), a.RunID) {
			t.Error("expected run id in summary")
		}
	})

	t.Run("json summary file", func(t *testing.T) {
		data, err := os.ReadFile(out.JSONSummaryPath)
		if err != nil {
			t.Fatal(err)
		}
		var doc struct {
			RunID string `json:"run_id"`
			Nodes int    `json:"nodes"`
			Stats *struct {
				AverageClustering float64 `json:"average_clustering"`
			} `json:"statistics"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if doc.RunID != a.RunID || doc.Nodes != 3 {
			t.Errorf("unexpected summary %+v", doc)
		}
		if doc.Stats == nil || doc.Stats.AverageClustering != 1 {
			t.Error("expected the computed statistics in the summary")
		}
	})

	t.Run("history record", func(t *testing.T) {
		run, err := db.GetRun(context.Background(), a.RunID)
		if err != nil {
			t.Fatalf("GetRun failed: %v", err)
		}
		if run.NodeCount != 3 || run.Stats == nil || run.NodeURL != "mock://three-node" {
			t.Errorf("unexpected run %+v", run)
		}
	})
}

// TestSurveyPipelineStatisticsFailure tests that no artifact is written
// when statistics fail.
func TestSurveyPipelineStatisticsFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := SurveyOutputs{
		StatsPath:   filepath.Join(dir, "stats.json"),
		GraphMLPath: filepath.Join(dir, "graph.graphml"),
	}

	g := topology.New()
	g.AddEdge("A", "B", 1)
	g.AddEdge("C", "D", 1)
	a := &Artifacts{Graph: g}

	err := NewSurveyPipeline(out, nil, nil).Execute(context.Background(), a)
	if !errors.Is(err, stats.ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected, got %v", err)
	}
	for _, path := range []string{out.StatsPath, out.GraphMLPath} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s should not have been written", path)
		}
	}
}

// TestAnalyzePipeline tests recomputing statistics from a GraphML file.
func TestAnalyzePipeline(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	graphPath := filepath.Join(dir, "graph.graphml")
	statsPath := filepath.Join(dir, "stats.json")

	g := topology.New()
	g.AddEdge("A", "B", 1)
	g.AddEdge("B", "C", 1)
	g.AddEdge("C", "A", 1)
	f, err := os.Create(graphPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := topology.WriteGraphML(f, g); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	a := &Artifacts{}
	if err := NewAnalyzePipeline(graphPath, statsPath, nil).Execute(context.Background(), a); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if a.Stats == nil || a.Stats.Degree["A"] != 2 {
		t.Errorf("unexpected statistics %+v", a.Stats)
	}
	if _, err := os.Stat(statsPath); err != nil {
		t.Errorf("statistics file not written: %v", err)
	}

	t.Run("without output path", func(t *testing.T) {
		p := NewAnalyzePipeline(graphPath, "", nil)
		if p.StepCount() != 2 {
			t.Errorf("expected 2 steps, got %d", p.StepCount())
		}
	})
}

// TestStepErrors tests the failure modes of individual steps.
func TestStepErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name    string
		step    Step
		a       *Artifacts
		wantErr error
	}{
		{"compute without graph", NewComputeStatsStep(), &Artifacts{}, ErrNoGraph},
		{"compute on empty graph", NewComputeStatsStep(), &Artifacts{Graph: topology.New()}, stats.ErrEmptyGraph},
		{"write stats before compute", NewWriteStatsStep("unused.json"), &Artifacts{}, ErrNoStatistics},
		{"write graphml without graph", NewWriteGraphMLStep("unused.graphml"), &Artifacts{}, ErrNoGraph},
		{"summaries without graph", NewWriteSummariesStep("unused.md", "unused.json"), &Artifacts{}, ErrNoGraph},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if err := tt.step.Do(ctx, tt.a); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("load missing graph file", func(t *testing.T) {
		t.Parallel()

		step := NewLoadGraphMLStep(filepath.Join(t.TempDir(), "missing.graphml"))
		if err := step.Do(ctx, &Artifacts{}); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("write into missing directory", func(t *testing.T) {
		t.Parallel()

		step := NewWriteSurveyStateStep(filepath.Join(t.TempDir(), "no", "such", "state.json"))
		a := &Artifacts{}
		if err := step.Do(ctx, a); err == nil {
			t.Error("expected error for missing directory")
		}
		if len(a.Outputs()) != 0 {
			t.Error("failed write should not be recorded")
		}
	})
}

// TestWriteSummariesStep tests the fan-out of the run summary.
func TestWriteSummariesStep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := topology.New()
	g.AddEdge("A", "B", 10)

	t.Run("only json", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "summary.json")
		a := &Artifacts{RunID: "run-1", Graph: g}
		if err := NewWriteSummariesStep("", path).Do(ctx, a); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := a.Outputs(); len(got) != 1 || got[0] != path {
			t.Errorf("unexpected outputs %v", got)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), `"run_id": "run-1"`) {
			t.Errorf("expected an indented run id, got %s", data)
		}
	})

	t.Run("no paths", func(t *testing.T) {
		t.Parallel()

		a := &Artifacts{Graph: g}
		if err := NewWriteSummariesStep("", "").Do(ctx, a); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(a.Outputs()) != 0 {
			t.Errorf("expected no outputs, got %v", a.Outputs())
		}
	})

	t.Run("unwritable path records nothing", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		a := &Artifacts{Graph: g}
		step := NewWriteSummariesStep(filepath.Join(dir, "summary.md"), filepath.Join(dir, "missing", "summary.json"))
		if err := step.Do(ctx, a); err == nil {
			t.Fatal("expected error for missing directory")
		}
		if len(a.Outputs()) != 0 {
			t.Errorf("failed write should not be recorded, got %v", a.Outputs())
		}
	})
}
