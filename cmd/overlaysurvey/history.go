package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/overlaysurvey/internal/config"
	"github.com/nao1215/overlaysurvey/internal/database"
	"github.com/nao1215/overlaysurvey/internal/model"
	"github.com/nao1215/overlaysurvey/internal/report"
	"github.com/nao1215/overlaysurvey/internal/topology"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of runs listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
// This command reads the crawl runs stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List, show and compare recorded survey runs",
		Long: `History displays the survey runs recorded in the database.

Every successful survey is stored with its topology and statistics. Runs
are identified by their id; any unique prefix of an id is accepted.

Examples:
  # List the most recent runs
  overlaysurvey history

  # Show one run
  overlaysurvey history --show 3f2a

  # Compare the topologies of two runs
  overlaysurvey history --diff 3f2a,9c01`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List recorded runs (default action)")
	cmd.Flags().String("show", "",
		"Show the run with this id")
	cmd.Flags().String("diff", "",
		"Compare two runs given as OLD_ID,NEW_ID")
	cmd.Flags().Int("limit", defaultHistoryLimit,
		"Maximum number of runs to list (0 lists all)")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	show, err := cmd.Flags().GetString("show")
	if err != nil {
		return err
	}
	diff, err := cmd.Flags().GetString("diff")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	// Validate arguments before opening the database.
	var oldID, newID string
	if diff != "" {
		var ok bool
		oldID, newID, ok = strings.Cut(diff, ",")
		oldID, newID = strings.TrimSpace(oldID), strings.TrimSpace(newID)
		if !ok || oldID == "" || newID == "" {
			return fmt.Errorf("invalid --diff value %q (expected OLD_ID,NEW_ID)", diff)
		}
	}
	if show != "" && diff != "" {
		return errors.New("--show and --diff cannot be used together")
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	switch {
	case show != "":
		return showRun(ctx, out, db, show, getVerboseFlag(cmd))
	case diff != "":
		return diffRuns(ctx, out, db, oldID, newID)
	default:
		return listRuns(ctx, out, db, limit)
	}
}

// listRuns prints the most recent runs.
func listRuns(ctx context.Context, out io.Writer, db *database.HistoryDB, limit int) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No survey runs recorded yet.")
		fmt.Fprintln(out, "\nUse 'overlaysurvey survey' to crawl the network.")
		return nil
	}

	fmt.Fprintf(out, "Survey runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-8s  %-20s  %6s  %6s  %6s  %s\n", "ID", "Started", "Nodes", "Edges", "Rounds", "Node")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 78))
	for _, run := range runs {
		fmt.Fprintf(out, "  %-8s  %-20s  %6d  %6d  %6d  %s\n",
			shortID(run.ID),
			run.Started.Local().Format(time.DateTime),
			run.NodeCount, run.EdgeCount, run.Rounds, run.NodeURL)
	}
	fmt.Fprintln(out, "\nUse 'overlaysurvey history --show <id>' to see a run.")

	return nil
}

// showRun prints the summary of one run.
func showRun(ctx context.Context, out io.Writer, db *database.HistoryDB, id string, verbose bool) error {
	run, err := db.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}
	g, err := db.LoadGraph(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to load topology of run %s: %w", run.ID, err)
	}

	s := report.NewSummary(run.Self, g, model.SurveyStates{}, run.Stats)
	s.RunID = run.ID
	s.NodeURL = run.NodeURL
	s.Started = run.Started
	s.Finished = run.Finished
	s.Rounds = run.Rounds
	if run.Stats == nil {
		s.StatsError = "not recorded"
	}

	_, err = report.NewSimpleWriter(out, report.WithVerbose(verbose)).Write(s)
	return err
}

// diffRuns prints how the topology changed between two runs.
func diffRuns(ctx context.Context, out io.Writer, db *database.HistoryDB, oldID, newID string) error {
	before, oldRun, err := loadRunGraph(ctx, db, oldID)
	if err != nil {
		return err
	}
	after, newRun, err := loadRunGraph(ctx, db, newID)
	if err != nil {
		return err
	}

	d := topology.Compare(before, after)

	fmt.Fprintf(out, "Comparing run %s (%s) with run %s (%s)\n\n",
		shortID(oldRun.ID), oldRun.Started.Local().Format(time.DateTime),
		shortID(newRun.ID), newRun.Started.Local().Format(time.DateTime))
	fmt.Fprintf(out, "  Nodes: %d -> %d\n", before.NodeCount(), after.NodeCount())
	fmt.Fprintf(out, "  Edges: %d -> %d\n\n", before.EdgeCount(), after.EdgeCount())

	if d.IsEmpty() {
		fmt.Fprintln(out, "No topology changes.")
		return nil
	}

	writeIDs(out, "Nodes joined", "+", d.AddedNodes)
	writeIDs(out, "Nodes left", "-", d.RemovedNodes)
	writeEdges(out, "Links added", "+", d.AddedEdges)
	writeEdges(out, "Links removed", "-", d.RemovedEdges)
	if len(d.VersionChanges) > 0 {
		fmt.Fprintf(out, "Version changes (%d):\n", len(d.VersionChanges))
		for _, c := range d.VersionChanges {
			fmt.Fprintf(out, "  [~] %s: %s -> %s\n", c.ID, orUnknown(c.Before), c.After)
		}
		fmt.Fprintln(out)
	}

	return nil
}

// loadRunGraph resolves id and loads the run's topology.
func loadRunGraph(ctx context.Context, db *database.HistoryDB, id string) (*topology.Graph, *database.Run, error) {
	run, err := db.GetRun(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	g, err := db.LoadGraph(ctx, run.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load topology of run %s: %w", run.ID, err)
	}
	return g, run, nil
}

func writeIDs(out io.Writer, title, mark string, ids []string) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintf(out, "%s (%d):\n", title, len(ids))
	for _, id := range ids {
		fmt.Fprintf(out, "  [%s] %s\n", mark, id)
	}
	fmt.Fprintln(out)
}

func writeEdges(out io.Writer, title, mark string, edges [][2]string) {
	if len(edges) == 0 {
		return
	}
	fmt.Fprintf(out, "%s (%d):\n", title, len(edges))
	for _, e := range edges {
		fmt.Fprintf(out, "  [%s] %s -- %s\n", mark, e[0], e[1])
	}
	fmt.Fprintln(out)
}

// shortID abbreviates a run id for tables.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
