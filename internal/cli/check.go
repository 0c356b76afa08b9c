package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LavishGent/backstop/internal/metrics"
	"github.com/LavishGent/backstop/pkg/backstop"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Establish a connection, probe it, and report",
	Long: `Check runs the same establishment path as run (validation, primary attempt,
failover attempt), probes the connection once more, reports which endpoint
answered and how long each step took, and exits.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()

	// Timers tolerate a nil publisher, so the disabled-metrics path needs
	// no separate timing code.
	var publisher backstop.Publisher
	if cfg.Metrics.Enabled {
		publisher, err = newPublisher(cfg, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()
	}

	// Establishment may span both endpoints; its timing carries no
	// endpoint tag.
	establish := metrics.NewTimer(publisher, "check.establish")
	client, err := backstop.Connect(ctx, cfg, backstop.WithLogger(logger))
	if err != nil {
		return err
	}
	defer client.Close()
	establishLatency := establish.Stop()

	ping := metrics.NewTimer(publisher, "check.ping",
		metrics.EndpointTag(client.Endpoint().Host))
	err = client.Ping(ctx)
	pingLatency := ping.Stop()
	if err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}

	fmt.Printf("endpoint: %s\n", client.Endpoint().Host)
	fmt.Printf("establish: %v\n", establishLatency)
	fmt.Printf("ping: %v\n", pingLatency)
	return nil
}
