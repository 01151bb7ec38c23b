package main

import (
	"fmt"
	"log/slog"

	"github.com/nao1215/overlaysurvey/internal/mocknet"
	"github.com/nao1215/overlaysurvey/internal/node"
	"github.com/spf13/cobra"
)

// mockNodeURL stands in for the admin endpoint in mock runs.
const mockNodeURL = "mock://three-node"

// runMockSurveyCmd executes the mocksurvey command.
func runMockSurveyCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildCrawlConfig(cmd)
	if err != nil {
		return err
	}
	cfg.NodeURL = mockNodeURL
	cfg.Duration = mocknet.ThreeNodeDuration

	if err := cfg.ValidateOutputs(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := setupLogger(cmd, cfg.Verbose)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, cancel := signalContext(commandContext(cmd), logger)
	defer cancel()

	return runCrawl(ctx, cmd.OutOrStdout(), cfg, node.NewClient(mocknet.ThreeNode()), logger)
}
