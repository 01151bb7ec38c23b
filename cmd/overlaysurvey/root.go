package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for overlaysurvey.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overlaysurvey",
		Short: "Crawl the stellar-core overlay network with topology surveys",
		Long: `overlaysurvey maps the stellar-core overlay network.

It asks one node you operate to survey its peers, follows the peers each
report names, and repeats until the network has nothing new to report.
The crawl produces a GraphML topology, graph statistics and the merged
survey state of every node that answered.

The node must expose its admin HTTP endpoint (usually port 11626) to the
machine running overlaysurvey.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", "text", "Log format on stderr: text or json")

	cmd.AddCommand(NewSurveyCmd())
	cmd.AddCommand(NewMockSurveyCmd())
	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
