package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LavishGent/backstop/internal/config"
	"github.com/LavishGent/backstop/internal/metrics"
	"github.com/LavishGent/backstop/internal/metrics/datadog"
	"github.com/LavishGent/backstop/internal/worker"
	"github.com/LavishGent/backstop/pkg/backstop"
)

var runFlags struct {
	workers    int
	iterations int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Establish a connection and drive the worker pool",
	Long: `Run establishes a connection (primary first, failover second), starts the
configured worker pool against it, and prints a traffic summary when the
workers finish.

Establishment failure means no worker ever starts. A worker failure aborts
only that worker unless the shared connection is confirmed dead, in which
case the whole run stops.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&runFlags.workers, "workers", 0,
		"Override the configured worker count")
	runCmd.Flags().IntVar(&runFlags.iterations, "iterations", 0,
		"Override the configured iterations per worker")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFlags.workers > 0 {
		cfg.Workers.Count = runFlags.workers
	}
	if runFlags.iterations > 0 {
		cfg.Workers.Iterations = runFlags.iterations
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()

	opts := []backstop.ConnectOption{backstop.WithLogger(logger)}

	if cfg.Metrics.Enabled {
		publisher, perr := newPublisher(cfg, logger)
		if perr != nil {
			return perr
		}
		defer publisher.Close()

		tracker := metrics.NewTracker()
		bg := metrics.NewBackgroundPublisher(publisher, cfg.Metrics.PublishInterval, tracker.Snapshot, logger)
		bg.Start(ctx)
		defer bg.Stop()

		opts = append(opts,
			backstop.WithMetrics(tracker),
			backstop.WithOnStateChange(func(from, to backstop.State) {
				publisher.Incr("establish.transitions", metrics.StateTag(to.String()))
				if to == backstop.StateTryingFailover {
					publisher.Event("Primary endpoint failed",
						"Attempting the failover endpoint", "warning")
				}
			}),
		)
	}

	client, err := backstop.Connect(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			logger.Error("Failed to close client", "error", cerr)
		}
	}()

	logger.Info("Connection established", "endpoint", client.Endpoint().Host)

	pool := worker.New(client, cfg.Workers, logger)
	results, err := pool.Run(ctx)

	retries, successes, failures := client.Stats()
	fmt.Printf("workers: %d started, %d completed, %d aborted\n",
		results.Workers, results.Completed, results.Aborted)
	fmt.Printf("commands: %d issued, %d succeeded, %d retried, %d failed\n",
		results.Ops, successes, retries, failures)

	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	return nil
}

// newPublisher picks the metrics sink: DataDog when configured, otherwise
// debug-level logging.
func newPublisher(cfg *config.Config, logger *slog.Logger) (backstop.Publisher, error) {
	if cfg.Metrics.DataDog.Enabled {
		return datadog.NewPublisher(&cfg.Metrics.DataDog, logger)
	}
	return metrics.NewLoggingPublisher(logger), nil
}
