package main

import (
	"fmt"

	"github.com/nao1215/overlaysurvey/internal/config"
	"github.com/nao1215/overlaysurvey/internal/pipeline"
	"github.com/nao1215/overlaysurvey/internal/stats"
	"github.com/spf13/cobra"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Recompute graph statistics from a GraphML topology",
		Long: `Analyze reads a topology written by a previous survey and writes its
graph statistics again. No request is sent to any node.

Examples:
  overlaysurvey analyze -a topology.graphml -s stats.json

  # Keep clustering and degrees of a graph with several components
  overlaysurvey analyze -a topology.graphml -s stats.json --allow-disconnected`,
		Args: cobra.NoArgs,
		RunE: runAnalyzeCmd,
	}

	cmd.Flags().StringP("graphml-analyze", "a", "",
		"GraphML topology to analyze (required)")
	cmd.Flags().StringP("graph-stats", "s", "",
		"Output file for the graph statistics (required)")
	cmd.Flags().Bool("allow-disconnected", false,
		"Write statistics without the average path length when the graph is not connected")

	return cmd
}

// runAnalyzeCmd executes the analyze command.
func runAnalyzeCmd(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	if cfg.GraphMLInputPath, err = cmd.Flags().GetString("graphml-analyze"); err != nil {
		return err
	}
	if cfg.GraphStatsPath, err = cmd.Flags().GetString("graph-stats"); err != nil {
		return err
	}
	allowDisconnected, err := cmd.Flags().GetBool("allow-disconnected")
	if err != nil {
		return err
	}

	if err := cfg.ValidateAnalyze(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := setupLogger(cmd, cfg.Verbose)
	if err != nil {
		return err
	}

	var opts []stats.Option
	if allowDisconnected {
		opts = append(opts, stats.WithOmitPathLengthWhenDisconnected())
	}

	a := &pipeline.Artifacts{}
	p := pipeline.NewAnalyzePipeline(cfg.GraphMLInputPath, cfg.GraphStatsPath, logger, opts...)
	if err := p.Execute(commandContext(cmd), a); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Nodes: %d, edges: %d\n", a.Graph.NodeCount(), a.Graph.EdgeCount())
	if a.Stats.AverageShortestPathLength != nil {
		fmt.Fprintf(out, "Average shortest path length: %.4f\n", *a.Stats.AverageShortestPathLength)
	} else {
		fmt.Fprintln(out, "Average shortest path length: undefined (graph is not connected)")
	}
	fmt.Fprintf(out, "Average clustering: %.4f\n", a.Stats.AverageClustering)
	fmt.Fprintf(out, "Wrote %s\n", cfg.GraphStatsPath)

	return nil
}
