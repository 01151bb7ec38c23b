package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/overlaysurvey/internal/config"
	"github.com/nao1215/overlaysurvey/internal/database"
	"github.com/nao1215/overlaysurvey/internal/log"
	"github.com/nao1215/overlaysurvey/internal/node"
	"github.com/nao1215/overlaysurvey/internal/pipeline"
	"github.com/nao1215/overlaysurvey/internal/report"
	"github.com/nao1215/overlaysurvey/internal/stats"
	"github.com/nao1215/overlaysurvey/internal/survey"
	"github.com/spf13/cobra"
)

// NewSurveyCmd creates the survey command.
func NewSurveyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "survey",
		Short: "Crawl the overlay network through a stellar-core node",
		Long: `Survey crawls the overlay network through the admin endpoint of a
stellar-core node.

The node is asked to survey every peer it knows. Each report names further
peers, which are surveyed in the next round, until the node reports that
the survey is over. The crawl then writes:
- Graph statistics (JSON)
- The merged survey state of every node (JSON)
- The network topology (GraphML)

Examples:
  # Survey through a local node for 50 seconds per request
  overlaysurvey survey -n http://127.0.0.1:11626 -d 50 \
    -s stats.json -r survey_result.json -w topology.graphml

  # Add node ids that are not connected to the surveying node
  overlaysurvey survey -n http://127.0.0.1:11626 -d 50 -l nodes.txt \
    -s stats.json -r survey_result.json -w topology.graphml

  # Reach the admin endpoint through an SSH tunnel (ssh -D 1080 validator)
  overlaysurvey survey -n http://127.0.0.1:11626 -d 50 --proxy 127.0.0.1:1080 \
    -s stats.json -r survey_result.json -w topology.graphml

  # Use a node profile from the configuration file
  overlaysurvey survey -n validator-1 -s stats.json -r survey_result.json -w topology.graphml

Configuration file (.overlaysurvey) example:
  duration: 50
  nodes:
    validator-1:
      url: http://10.0.0.5:11626`,
		Args: cobra.NoArgs,
		RunE: runSurveyCmd,
	}

	// Node connection flags
	cmd.Flags().StringP("node", "n", "",
		"Admin endpoint of the surveying node (e.g., http://127.0.0.1:11626) or a profile name")
	cmd.Flags().IntP("duration", "d", 0,
		"Seconds each surveyed node keeps its survey running")
	cmd.Flags().StringP("node-list", "l", "",
		"File with extra node ids to survey, one per line")
	cmd.Flags().Duration("timeout", config.DefaultTimeout,
		"Timeout for each request to the node (0 disables it)")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy for reaching the node (host:port)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent to the node")

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .overlaysurvey in current or home directory)")

	addCrawlFlags(cmd)

	return cmd
}

// NewMockSurveyCmd creates the mocksurvey command.
func NewMockSurveyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mocksurvey",
		Short: "Run a survey against a built-in three-node network",
		Long: `Mocksurvey runs the complete crawl against a canned network of three
nodes instead of a live stellar-core node. It writes the same artifacts as
the survey command and is useful for trying out the outputs and for
checking an installation.

Example:
  overlaysurvey mocksurvey -s stats.json -r survey_result.json -w topology.graphml`,
		Args: cobra.NoArgs,
		RunE: runMockSurveyCmd,
	}

	addCrawlFlags(cmd)

	return cmd
}

// addCrawlFlags registers the flags shared by survey and mocksurvey.
func addCrawlFlags(cmd *cobra.Command) {
	// Output flags
	cmd.Flags().StringP("graph-stats", "s", "",
		"Output file for the graph statistics (required)")
	cmd.Flags().StringP("survey-result", "r", "",
		"Output file for the merged survey state (required)")
	cmd.Flags().StringP("graphml-write", "w", "",
		"Output file for the topology in GraphML (required)")
	cmd.Flags().StringP("markdown", "m", "",
		"Also write a Markdown summary to this file")
	cmd.Flags().StringP("json-summary", "j", "",
		"Also write a JSON run summary to this file")

	cmd.Flags().Duration("settle-delay", config.DefaultSettleDelay,
		"Pause between sending survey requests and collecting results")

	// History flags
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the history database")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")
}

// runSurveyCmd executes the survey command.
func runSurveyCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := setupLogger(cmd, cfg.Verbose)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, cancel := signalContext(commandContext(cmd), logger)
	defer cancel()

	opts := []node.TransportOption{
		node.WithTimeout(cfg.Timeout),
		node.WithUserAgent(cfg.UserAgent),
	}
	if cfg.ProxyAddress != "" {
		opts = append(opts, node.WithSOCKS5Proxy(cfg.ProxyAddress))
	}
	transport, err := node.NewHTTPTransport(cfg.NodeURL, opts...)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	logger.Debug("surveying node", "url", transport.BaseURL(), "duration", cfg.Duration)

	return runCrawl(ctx, cmd.OutOrStdout(), cfg, node.NewClient(transport), logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from the survey command flags and the
// configuration file. Flags win over the file.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := buildCrawlConfig(cmd)
	if err != nil {
		return nil, err
	}

	if cfg.NodeURL, err = cmd.Flags().GetString("node"); err != nil {
		return nil, err
	}
	if cfg.Duration, err = cmd.Flags().GetInt("duration"); err != nil {
		return nil, err
	}
	if cfg.NodeListPath, err = cmd.Flags().GetString("node-list"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = cmd.Flags().GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = cmd.Flags().GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return nil, err
	}

	// An explicit --config must exist; otherwise the file is optional.
	file, _, err := config.Load(cfg.ConfigFilePath)
	if err != nil {
		return nil, err
	}
	cfg.Apply(file, cmd.Flags())

	return cfg, nil
}

// buildCrawlConfig reads the flags registered by addCrawlFlags.
func buildCrawlConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	if cfg.GraphStatsPath, err = cmd.Flags().GetString("graph-stats"); err != nil {
		return nil, err
	}
	if cfg.SurveyResultPath, err = cmd.Flags().GetString("survey-result"); err != nil {
		return nil, err
	}
	if cfg.GraphMLPath, err = cmd.Flags().GetString("graphml-write"); err != nil {
		return nil, err
	}
	if cfg.MarkdownPath, err = cmd.Flags().GetString("markdown"); err != nil {
		return nil, err
	}
	if cfg.JSONSummaryPath, err = cmd.Flags().GetString("json-summary"); err != nil {
		return nil, err
	}
	if cfg.SettleDelay, err = cmd.Flags().GetDuration("settle-delay"); err != nil {
		return nil, err
	}

	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	return cfg, nil
}

// setupLogger creates the stderr logger selected by --verbose and
// --log-format. It redacts credentials.
func setupLogger(cmd *cobra.Command, verbose bool) (*slog.Logger, error) {
	name, err := cmd.Flags().GetString("log-format")
	if err != nil {
		name, err = cmd.Root().PersistentFlags().GetString("log-format")
		if err != nil {
			name = ""
		}
	}
	format, err := log.ParseFormat(name)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return log.New(cmd.ErrOrStderr(), verbose, format), nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// commandContext returns the command's context, or a background context
// when the command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// runCrawl crawls the network through client and runs the artifact
// pipeline over the result.
func runCrawl(ctx context.Context, out io.Writer, cfg *config.Config, client *node.Client, logger *slog.Logger) error {
	logger.Info("starting survey",
		"node", cfg.NodeURL,
		"duration", cfg.Duration,
		"settleDelay", cfg.SettleDelay,
		"saveHistory", cfg.SaveHistory,
	)

	// Open the database before crawling so a broken store does not cost
	// a whole survey.
	var db *database.HistoryDB
	if cfg.SaveHistory {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	opts := []survey.Option{
		survey.WithSettleDelay(cfg.SettleDelay),
		survey.WithLogger(logger),
	}
	if cfg.NodeListPath != "" {
		opts = append(opts, survey.WithSeedFile(cfg.NodeListPath))
	}

	fmt.Fprintf(out, "Surveying through %s...\n", cfg.NodeURL)
	res, err := survey.New(client, cfg.Duration, opts...).Run(ctx)
	if err != nil {
		return fmt.Errorf("survey failed: %w", err)
	}

	if res.Graph.IsEmpty() {
		fmt.Fprintln(out, "Graph is empty!")
		return nil
	}

	a := pipeline.NewArtifacts(cfg.NodeURL, res)
	p := pipeline.NewSurveyPipeline(pipeline.SurveyOutputs{
		StatsPath:       cfg.GraphStatsPath,
		GraphMLPath:     cfg.GraphMLPath,
		StatePath:       cfg.SurveyResultPath,
		MarkdownPath:    cfg.MarkdownPath,
		JSONSummaryPath: cfg.JSONSummaryPath,
	}, db, logger)

	if err := p.Execute(ctx, a); err != nil {
		if errors.Is(err, stats.ErrDisconnected) {
			return fmt.Errorf("crawled topology is not connected, no artifacts written: %w", err)
		}
		return err
	}
	logger.Debug("pipeline finished", "run", a.RunID, "steps", a.PerformedSteps())

	if _, err := report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose)).Write(a.Summary()); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if cfg.Verbose {
		for _, st := range a.Timings() {
			fmt.Fprintf(out, "  %-20s %s\n", st.Name, st.Elapsed.Round(time.Millisecond))
		}
	}
	for _, path := range a.Outputs() {
		fmt.Fprintf(out, "Wrote %s\n", path)
	}
	if db != nil {
		fmt.Fprintf(out, "Saved run %s to %s\n", a.RunID, db.Path())
	}

	return nil
}
