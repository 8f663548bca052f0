package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/watcharr/backend"
	"github.com/s0up4200/watcharr/config"
	"github.com/s0up4200/watcharr/fulfillment"
	"github.com/s0up4200/watcharr/metrics"
	"github.com/s0up4200/watcharr/radarr"
	"github.com/s0up4200/watcharr/reconcile"
	"github.com/s0up4200/watcharr/seasons"
	"github.com/s0up4200/watcharr/sonarr"
	"github.com/s0up4200/watcharr/watchlist"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger

	registry      *prometheus.Registry
	repo          *watchlist.Repository
	client        *backend.Client
	reconciler    *reconcile.Reconciler
	seasonManager *seasons.Manager
	pipeline      *fulfillment.Pipeline

	// Command flags
	listFilter    string
	statusFilter  string
	fulfillFilter string
	dryRun        bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "watcharr",
	Short: "Keep a movie and show watchlist in sync with Radarr and Sonarr",
	Long: `watcharr keeps a watchlist of movies and shows, checks which of them
Radarr and Sonarr already have, lets you pick the seasons you want for shows
and requests everything that is still missing in one batch.`,
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// SetVersion sets the version reported by --version
func SetVersion(version, buildTime string) {
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

// initializeApp initializes the configuration, database and clients
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging)

	registry = prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	db, err := watchlist.Open(cfg.Database.Path)
	if err != nil {
		return err
	}

	policy, err := watchlist.ParseDuplicatePolicy(cfg.Watchlist.DuplicatePolicy)
	if err != nil {
		return err
	}
	repo = watchlist.NewRepository(db, logger, watchlist.WithDuplicatePolicy(policy))

	movies := radarr.NewClient(cfg.Radarr, logger, radarr.WithCacheTTL(cfg.Reconcile.CacheTTL))
	shows := sonarr.NewClient(cfg.Sonarr, logger, sonarr.WithCacheTTL(cfg.Reconcile.CacheTTL))
	client = backend.New(movies, shows, logger,
		backend.WithMaxRetries(cfg.Backend.MaxRetries),
		backend.WithMetrics(recorder),
	)

	reconciler = reconcile.New(client, repo, logger,
		reconcile.WithBatchSize(cfg.Reconcile.BatchSize),
		reconcile.WithMetrics(recorder),
	)
	seasonManager = seasons.NewManager(client, repo, logger)
	pipeline = fulfillment.New(client, repo, logger,
		fulfillment.WithWorkers(cfg.Fulfillment.Workers),
		fulfillment.WithMetrics(recorder),
	)

	logger.Debug().Str("database", cfg.Database.Path).Msg("Initialized")
	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format, colored only on a terminal
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isatty.IsTerminal(os.Stderr.Fd()),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
