package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/pfrederiksen/athens-bands/internal/logger"
	"github.com/pfrederiksen/athens-bands/internal/refresh"
	"github.com/pfrederiksen/athens-bands/internal/scheduler"
	"github.com/pfrederiksen/athens-bands/internal/scraper"
	"github.com/pfrederiksen/athens-bands/internal/server"
	"github.com/pfrederiksen/athens-bands/internal/storage"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagConfig          string
	flagVerbose         bool
	flagFormat          string
	flagSort            string
	flagRetries         int
	flagRequireMarkdown bool
	flagRefreshOnStart  bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "athens-bands",
		Short: "Collect today's and tomorrow's live music in Athens, GA",
		Long: `A tool that scrapes the Flagpole music calendar, buckets shows into
today and tomorrow (America/New_York), and stores the result for cheap reads.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config file (defaults apply when empty)")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	cmd.AddCommand(newRefreshCmd(), newShowCmd(), newSourceCmd(), newServeCmd())

	return cmd
}

func newRefreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the calendar and store a fresh payload",
		RunE:  runRefresh,
	}
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.Flags().IntVar(&flagRetries, "retries", 0, "Retry a failed refresh this many times with exponential backoff")
	return cmd
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored payload",
		RunE:  runShow,
	}
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text, json or ics")
	cmd.Flags().StringVar(&flagSort, "sort", string(SortBySource), "Sort within each day: source, time, venue or title")
	return cmd
}

func newSourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source",
		Short: "Fetch and print the raw source document",
		RunE:  runSource,
	}
	cmd.Flags().BoolVar(&flagRequireMarkdown, "require-markdown", false, "Fail unless the markdown fallback was used")
	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the events API and refresh on the configured schedule",
		RunE:  runServe,
	}
	cmd.Flags().BoolVar(&flagRefreshOnStart, "refresh-on-start", false, "Run one refresh before the first scheduled tick")
	return cmd
}

func parseFormat(allowed ...OutputFormat) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(flagFormat)))
	for _, f := range allowed {
		if format == f {
			return format, nil
		}
	}
	names := make([]string, len(allowed))
	for i, f := range allowed {
		names[i] = "'" + string(f) + "'"
	}
	return "", fmt.Errorf("invalid format: %s (must be %s)", flagFormat, strings.Join(names, ", "))
}

// runRefresh runs the pipeline once, retrying the whole run on failure
func runRefresh(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(FormatText, FormatJSON)
	if err != nil {
		return err
	}
	if flagRetries < 0 {
		return fmt.Errorf("--retries must not be negative")
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	var result *refresh.Result
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(flagRetries)),
		ctx,
	)
	err = backoff.RetryNotify(func() error {
		var runErr error
		result, runErr = a.runner.Run(ctx, refresh.TriggerCLI)
		return runErr
	}, policy, func(err error, wait time.Duration) {
		a.log.Warn("Refresh failed, retrying", logger.Fields{"error": err.Error(), "wait": wait.String()})
	})
	if err != nil {
		return err
	}

	if flagVerbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Source format: %s, skipped records: %d, duration: %s\n",
			result.Format, result.Skipped, result.Duration.Round(time.Millisecond))
	}

	return WriteOutput(cmd.OutOrStdout(), result.Payload, format, OutputOptions{Verbose: flagVerbose})
}

// runShow prints the stored payload without fetching
func runShow(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(FormatText, FormatJSON, FormatICS)
	if err != nil {
		return err
	}
	order, err := ParseSortOrder(flagSort)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	payload, err := a.store.Load(cmd.Context())
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no events cached yet; run 'athens-bands refresh' first")
	}
	if err != nil {
		return fmt.Errorf("loading payload: %w", err)
	}

	sortEvents(payload.Events.Today, order)
	sortEvents(payload.Events.Tomorrow, order)

	return WriteOutput(cmd.OutOrStdout(), payload, format, OutputOptions{
		Verbose:  flagVerbose,
		Location: a.resolver.Location(),
	})
}

// runSource prints the fetched document body
func runSource(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}

	if flagRequireMarkdown {
		body, err := a.fetcher.FetchMarkdown(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), body)
		return nil
	}

	src, err := a.fetcher.Fetch(cmd.Context())
	if err != nil {
		return err
	}
	if flagVerbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Fetched %s from %s (%d bytes)\n", src.Format, src.URL, len(src.Body))
	}
	fmt.Fprint(cmd.OutOrStdout(), src.Body)
	return nil
}

// runServe runs the HTTP server and scheduler until interrupted
func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := scheduler.ForRunner(ctx, a.cfg.Schedule, a.runner, a.log)
	if err != nil {
		return err
	}

	if flagRefreshOnStart {
		if _, err := a.runner.Run(ctx, refresh.TriggerSchedule); err != nil {
			a.log.Warn("Initial refresh failed", logger.Fields{"error": err.Error()})
		}
	}

	sched.Start()
	defer sched.Stop()

	srv := server.New(a.cfg.Server, a.store, a.runner,
		server.WithMetricsHandler(a.metrics.Handler()),
		server.WithLocation(a.resolver.Location()),
		server.WithLogger(a.log.With(logger.Fields{"component": "server"})),
	)
	return srv.ListenAndServe(ctx)
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var statusErr *scraper.HTTPStatusError
		if errors.As(err, &statusErr) {
			fmt.Fprintf(os.Stderr, "The fallback source answered %d; try again later.\n", statusErr.StatusCode)
		}
		os.Exit(ExitError)
	}
}
