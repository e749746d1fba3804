package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gpcscan/gpcscan/internal/browser"
	"github.com/gpcscan/gpcscan/internal/config"
	"github.com/gpcscan/gpcscan/internal/crawler"
	"github.com/gpcscan/gpcscan/internal/model"
	"github.com/gpcscan/gpcscan/internal/probe"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url]",
		Short: "Crawl a website and print its interaction graph",
		Long: `Crawl builds the interaction graph for a website without running the
paired audit sessions. It is the discovery phase of an audit on its own:
pages are fetched breadth-first ordered by tracking-risk priority, links
are classified, and the resulting graph is printed as JSON.

Useful for checking which pages an audit would visit and how the crawler
scores them before spending two full browser sessions on the target.

Examples:
  # Print the interaction graph for a site
  gpcscan crawl https://shop.example.com

  # Crawl deeper and save the graph to a file
  gpcscan crawl --max-pages 30 --output graph.json shop.example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCmd,
	}

	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to crawl")
	cmd.Flags().DurationP("timeout", "t", config.DefaultPageLoadTimeout,
		"Page load timeout for each navigation")
	cmd.Flags().Duration("action-delay", config.DefaultActionDelay,
		"Pause after navigations and between scroll steps")
	cmd.Flags().Int("scroll-steps", config.DefaultScrollSteps,
		"Viewport-heights each page is scrolled to trigger lazy trackers")
	cmd.Flags().Bool("no-headless", false,
		"Run Chrome with a visible window (for debugging)")
	cmd.Flags().StringP("output", "o", "",
		"Write the graph JSON to specified file path instead of stdout")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	maxPages, err := cmd.Flags().GetInt("max-pages")
	if err != nil {
		return err
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}
	actionDelay, err := cmd.Flags().GetDuration("action-delay")
	if err != nil {
		return err
	}
	scrollSteps, err := cmd.Flags().GetInt("scroll-steps")
	if err != nil {
		return err
	}
	noHeadless, err := cmd.Flags().GetBool("no-headless")
	if err != nil {
		return err
	}
	outputFile, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	verbose := getVerboseFlag(cmd)
	logger := setupLogger(verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	target := normalizeTarget(args[0])

	// Fail fast before starting a browser
	prober := probe.New()
	if _, err := prober.Probe(ctx, target); err != nil {
		return err
	}

	launcher := browser.NewChrome(
		browser.WithHeadless(!noHeadless),
		browser.WithNavigationTimeout(timeout),
	)

	// The crawler consults the same oracle the audit pipeline uses;
	// discovery priorities should match what a full audit would do.
	cfg := config.NewConfig()
	cfg.OracleAPIKey = oracleAPIKeyFromEnv()
	crawlOracle := buildOracle(cfg, logger)

	engine := crawler.NewEngine(launcher, crawlOracle,
		crawler.WithMaxPages(maxPages),
		crawler.WithActionDelay(actionDelay),
		crawler.WithScrollSteps(scrollSteps),
	)

	// A throwaway run supplies the audit ID the graph nodes are keyed to.
	run := model.NewRun(target, config.DefaultJurisdiction)

	fmt.Fprintf(os.Stderr, "Crawling %s...\n", target)
	graph, err := engine.Discover(ctx, run.ID, target)
	if err != nil {
		return fmt.Errorf("failed to crawl %s: %w", target, err)
	}

	return outputGraph(outputFile, graph)
}

// outputGraph writes the interaction graph as indented JSON to the given
// file, or to stdout if no file is set.
func outputGraph(path string, graph *model.InteractionGraph) error {
	var output *os.File
	if path != "" {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	enc := json.NewEncoder(output)
	enc.SetIndent("", "  ")
	if err := enc.Encode(graph); err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	return nil
}
