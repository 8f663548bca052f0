package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/s0up4200/watcharr/scheduler"
)

var autoFulfill bool

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reconcile the watchlist on a schedule",
	Long: `Run in the foreground and refresh the watchlist status on the configured
cron schedule (reconcile.schedule). With --fulfill, entries still missing
from the library are submitted after every pass.

When metrics.listen is set, prometheus metrics are served on /metrics.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&autoFulfill, "fulfill", false, "submit missing entries after every reconciliation")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var opts []scheduler.Option
	if autoFulfill {
		opts = append(opts, scheduler.WithFulfiller(pipeline))
	}

	s := scheduler.New(cfg.Reconcile.Schedule, reconciler, logger, opts...)
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer s.Stop()

	var server *http.Server
	if cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		server = &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			logger.Info().Str("addr", cfg.Metrics.Listen).Msg("Serving metrics")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	logger.Info().
		Str("schedule", cfg.Reconcile.Schedule).
		Bool("fulfill", autoFulfill).
		Msg("Watching watchlist")

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop metrics server: %w", err)
		}
	}
	return nil
}
