package stats

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/nao1215/overlaysurvey/internal/topology"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

// cycle builds a simple cycle over ids with uniform edge weights.
func cycle(ids ...string) *topology.Graph {
	g := topology.New()
	for i, id := range ids {
		g.AddEdge(id, ids[(i+1)%len(ids)], 100)
	}
	return g
}

// TestCompute tests the metric values on small graphs.
func TestCompute(t *testing.T) {
	t.Parallel()

	t.Run("four node cycle", func(t *testing.T) {
		t.Parallel()

		s, err := Compute(cycle("A", "B", "C", "D"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Each node reaches two neighbors at distance 1 and one at distance 2.
		if s.AverageShortestPathLength == nil || !almostEqual(*s.AverageShortestPathLength, 4.0/3.0) {
			t.Errorf("AverageShortestPathLength = %v, expected 4/3", s.AverageShortestPathLength)
		}
		if s.AverageClustering != 0 {
			t.Errorf("AverageClustering = %v, expected 0", s.AverageClustering)
		}
		for _, id := range []string{"A", "B", "C", "D"} {
			if s.Clustering[id] != 0 {
				t.Errorf("Clustering[%s] = %v, expected 0", id, s.Clustering[id])
			}
			if s.Degree[id] != 2 {
				t.Errorf("Degree[%s] = %d, expected 2", id, s.Degree[id])
			}
		}
	})

	t.Run("triangle with pendant", func(t *testing.T) {
		t.Parallel()

		g := cycle("A", "B", "C")
		g.AddEdge("C", "D", 1)

		s, err := Compute(g)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := map[string]float64{"A": 1, "B": 1, "C": 1.0 / 3.0, "D": 0}
		for id, c := range expected {
			if !almostEqual(s.Clustering[id], c) {
				t.Errorf("Clustering[%s] = %v, expected %v", id, s.Clustering[id], c)
			}
		}
		if !almostEqual(s.AverageClustering, (1+1+1.0/3.0)/4) {
			t.Errorf("AverageClustering = %v", s.AverageClustering)
		}
		// Distances: A-B 1, A-C 1, A-D 2, B-C 1, B-D 2, C-D 1 => 8 per direction.
		if !almostEqual(*s.AverageShortestPathLength, 16.0/12.0) {
			t.Errorf("AverageShortestPathLength = %v", *s.AverageShortestPathLength)
		}
		if s.Degree["C"] != 3 {
			t.Errorf("Degree[C] = %d, expected 3", s.Degree["C"])
		}
	})

	t.Run("single node", func(t *testing.T) {
		t.Parallel()

		g := topology.New()
		g.AddNode("S", "v1")

		s, err := Compute(g)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if *s.AverageShortestPathLength != 0 {
			t.Errorf("expected path length 0, got %v", *s.AverageShortestPathLength)
		}
		if s.Degree["S"] != 0 {
			t.Errorf("expected degree 0, got %d", s.Degree["S"])
		}
	})

	t.Run("empty graph", func(t *testing.T) {
		t.Parallel()

		if _, err := Compute(topology.New()); !errors.Is(err, ErrEmptyGraph) {
			t.Errorf("expected ErrEmptyGraph, got %v", err)
		}
	})

	t.Run("disconnected graph fails", func(t *testing.T) {
		t.Parallel()

		g := topology.New()
		g.AddEdge("A", "B", 1)
		g.AddEdge("C", "D", 1)

		if _, err := Compute(g); !errors.Is(err, ErrDisconnected) {
			t.Errorf("expected ErrDisconnected, got %v", err)
		}
	})

	t.Run("disconnected graph with omitted path length", func(t *testing.T) {
		t.Parallel()

		g := topology.New()
		g.AddEdge("A", "B", 1)
		g.AddNode("C", "")

		s, err := Compute(g, WithOmitPathLengthWhenDisconnected())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.AverageShortestPathLength != nil {
			t.Error("expected nil path length")
		}
		if s.Degree["A"] != 1 || s.Degree["C"] != 0 {
			t.Errorf("unexpected degrees: %v", s.Degree)
		}
	})

	t.Run("self-loop counts twice in degree only", func(t *testing.T) {
		t.Parallel()

		g := topology.New()
		g.AddEdge("A", "B", 1)
		g.AddEdge("A", "A", 1)

		s, err := Compute(g)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Degree["A"] != 3 {
			t.Errorf("Degree[A] = %d, expected 3", s.Degree["A"])
		}
		if *s.AverageShortestPathLength != 1 {
			t.Errorf("expected path length 1, got %v", *s.AverageShortestPathLength)
		}
	})
}

// TestTopByDegree tests ranking of nodes.
func TestTopByDegree(t *testing.T) {
	t.Parallel()

	s := &Statistics{Degree: map[string]int{"A": 1, "B": 3, "C": 3, "D": 2}}

	expected := []NodeDegree{{ID: "B", Degree: 3}, {ID: "C", Degree: 3}}
	if got := TopByDegree(s, 2); !reflect.DeepEqual(got, expected) {
		t.Errorf("TopByDegree(2) = %v, expected %v", got, expected)
	}
	if got := TopByDegree(s, 0); len(got) != 4 {
		t.Errorf("expected all 4 nodes, got %d", len(got))
	}
}

// TestVersions tests the version distribution.
func TestVersions(t *testing.T) {
	t.Parallel()

	g := topology.New()
	g.AddNode("A", "v1")
	g.AddNode("B", "v1")
	g.AddNode("C", "v2")
	g.AddNode("D", "")

	expected := map[string]int{"v1": 2, "v2": 1, UnknownVersion: 1}
	if got := Versions(g); !reflect.DeepEqual(got, expected) {
		t.Errorf("Versions() = %v, expected %v", got, expected)
	}
}
