// Package main provides the entry point for the gpcscan CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for gpcscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gpcscan",
		Short: "Privacy-compliance auditor for the Global Privacy Control signal",
		Long: `gpcscan audits websites for privacy-law compliance. It crawls the target,
replays two matched browsing sessions (one asserting the Global Privacy
Control opt-out signal, one without), diffs their tracker traffic, and
reports violations with legal citations and penalty ranges.

By default, gpcscan drives a headless Chrome and audits against the
California (CCPA/CPRA) rule set. Use --jurisdiction eu for GDPR sites.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewAuditCmd())
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewCompareCmd())
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
