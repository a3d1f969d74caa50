// vuedl pulls energy usage from the Emporia Vue cloud into local stores.
//
// Each invocation performs one run: plan the window since the last
// successful run, refresh the cloud credential when needed, fetch every
// device channel, archive the raw responses, write the normalized points to
// the enabled sinks and advance the watermark. An external scheduler (cron,
// a systemd timer) provides the cadence; invocations must not overlap.
//
// Usage:
//
//	vuedl [-v] [-config path]   one incremental run
//	vuedl -replay               load raw files left in the data folder
//
// Exit status is 0 on success and when there is nothing to fetch yet, 1 on
// any fatal error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/nerrad567/vuedl/internal/archive"
	"github.com/nerrad567/vuedl/internal/cloud"
	"github.com/nerrad567/vuedl/internal/infrastructure/config"
	"github.com/nerrad567/vuedl/internal/infrastructure/database"
	"github.com/nerrad567/vuedl/internal/infrastructure/influxdb"
	"github.com/nerrad567/vuedl/internal/infrastructure/logging"
	"github.com/nerrad567/vuedl/internal/infrastructure/mqtt"
	"github.com/nerrad567/vuedl/internal/infrastructure/tsdb"
	"github.com/nerrad567/vuedl/internal/ingest"
	"github.com/nerrad567/vuedl/internal/metrics"
	"github.com/nerrad567/vuedl/internal/sink"
	"github.com/nerrad567/vuedl/internal/state"
	"github.com/nerrad567/vuedl/internal/status"
	"github.com/nerrad567/vuedl/internal/window"
	"github.com/nerrad567/vuedl/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// pushTimeout bounds the metrics push after the run, which must still happen
// when the run context was cancelled.
const pushTimeout = 10 * time.Second

func main() {
	// Cancel on Ctrl+C or SIGTERM; an interrupted run aborts without
	// advancing the watermark.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1) //nolint:gocritic // cancel called explicitly above
	}
}

// options are the command-line flags.
type options struct {
	verbose     bool
	configPath  string
	replay      bool
	showVersion bool
}

// parseFlags parses args. The config path falls back to VUEDL_CONFIG, then
// to defaultConfigPath.
func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options
	fsys := flag.NewFlagSet("vuedl", flag.ContinueOnError)
	fsys.SetOutput(output)
	fsys.BoolVar(&opts.verbose, "v", false, "verbose: per-device progress and HTTP exchange dumps")
	fsys.StringVar(&opts.configPath, "config", "", "path to the YAML config file (default $VUEDL_CONFIG or "+defaultConfigPath+")")
	fsys.BoolVar(&opts.replay, "replay", false, "load pending raw files from the data folder instead of fetching")
	fsys.BoolVar(&opts.showVersion, "version", false, "print version and exit")

	if err := fsys.Parse(args); err != nil {
		return options{}, err
	}
	if fsys.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fsys.Args())
	}

	if opts.configPath == "" {
		opts.configPath = getConfigPath()
	}
	return opts, nil
}

// getConfigPath returns the config path from VUEDL_CONFIG or the default.
func getConfigPath() string {
	if path := os.Getenv("VUEDL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Command-line arguments without the program name
//   - stdout: Destination for -version output
//
// Returns:
//   - error: nil on success or an idle run, otherwise the fatal failure
func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args, stdout)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "vuedl %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	// A .env in the working directory is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logCfg := cfg.Logging
	if opts.verbose {
		logCfg = logging.Verbose(logCfg)
	}
	log := logging.New(logCfg, version)
	defer func() { _ = log.Close() }()

	runID := uuid.NewString()
	runLog := log.With("run_id", runID)
	runLog.Info("starting vuedl",
		"commit", commit,
		"config", opts.configPath,
		"replay", opts.replay,
	)

	runCfg, err := ingest.NewConfig(cfg, runID)
	if err != nil {
		return err
	}

	sinks, closeSinks, err := openSinks(ctx, cfg, runLog)
	if err != nil {
		return err
	}
	defer closeSinks()

	var rec *metrics.Recorder
	if cfg.Metrics.Enabled {
		rec = metrics.New()
	}

	runner := ingest.New(runCfg, ingest.Deps{
		API:     cloud.New(cfg.Cloud, cfg.Fetch.RequestTimeout, log),
		State:   state.NewFileStore(cfg.State.Path),
		Archive: archive.NewStore(cfg.Archive.DataFolder),
		Sinks:   sinks,
		Metrics: rec,
		Logger:  log,
	})

	if opts.replay {
		sum, err := runner.Replay(ctx)
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		runLog.Info("replay finished", "files", sum.Files, "points", sum.Points)
		return nil
	}

	reporter, closeReporter := connectReporter(cfg, runLog)
	defer closeReporter()

	reporter.Started(runID)
	sum, runErr := runner.Run(ctx)
	reporter.Finished(sum)
	pushMetrics(rec, cfg.Metrics, runLog)

	switch {
	case errors.Is(runErr, window.ErrNoWork):
		runLog.Info("run idle", "window_start", sum.WindowStart, "window_end", sum.WindowEnd)
		return nil
	case runErr != nil:
		runLog.Debug("run failed", "phase", sum.Phase, "error", runErr)
		return fmt.Errorf("run %s: %w", runID, runErr)
	}

	runLog.Info("run complete",
		"window_start", sum.WindowStart,
		"window_end", sum.WindowEnd,
		"devices", len(sum.Devices),
		"points", sum.Points,
		"duration", sum.Finished.Sub(sum.Started),
	)
	return nil
}

// openSinks connects every enabled store and returns them in write order
// with a function closing them all.
func openSinks(ctx context.Context, cfg *config.Config, log *logging.Logger) ([]sink.Sink, func(), error) {
	var (
		sinks   []sink.Sink
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) ([]sink.Sink, func(), error) {
		closeAll()
		return nil, func() {}, err
	}

	if cfg.Database.Enabled {
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return fail(fmt.Errorf("opening database: %w", err))
		}
		closers = append(closers, func() {
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		})
		if err := db.Migrate(ctx, migrations.FS); err != nil {
			return fail(fmt.Errorf("running migrations: %w", err))
		}
		sinks = append(sinks, sink.NewSQLite(db))
		log.Debug("sqlite sink ready", "path", db.Path())
	}

	if cfg.Postgres.Enabled {
		pool, err := sink.OpenPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return fail(fmt.Errorf("connecting to postgres: %w", err))
		}
		closers = append(closers, pool.Close)
		if err := sink.EnsurePostgresSchema(ctx, pool, cfg.Postgres.Table); err != nil {
			return fail(err)
		}
		sinks = append(sinks, sink.NewPostgres(pool, cfg.Postgres.Table))
		log.Debug("postgres sink ready", "table", cfg.Postgres.Table)
	}

	if cfg.InfluxDB.Enabled {
		client, err := influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fail(fmt.Errorf("connecting to InfluxDB: %w", err))
		}
		closers = append(closers, func() {
			if closeErr := client.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		})
		sinks = append(sinks, sink.NewInflux(client))
		log.Debug("influxdb sink ready", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	if cfg.TSDB.Enabled {
		client, err := tsdb.Connect(ctx, cfg.TSDB)
		if err != nil {
			return fail(fmt.Errorf("connecting to VictoriaMetrics: %w", err))
		}
		closers = append(closers, func() {
			if closeErr := client.Close(); closeErr != nil {
				log.Error("error closing VictoriaMetrics", "error", closeErr)
			}
		})
		sinks = append(sinks, sink.NewVictoria(client))
		log.Debug("victoriametrics sink ready", "url", cfg.TSDB.URL)
	}

	return sinks, closeAll, nil
}

// connectReporter connects to the MQTT broker when enabled. A broker that
// cannot be reached only costs the status messages.
func connectReporter(cfg *config.Config, log *logging.Logger) (*status.Reporter, func()) {
	if !cfg.MQTT.Enabled {
		return nil, func() {}
	}

	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		log.Warn("MQTT unavailable, run status will not be published", "error", err)
		return nil, func() {}
	}
	log.Debug("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	return status.NewReporter(client, log), func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}
}

// pushMetrics sends the run metrics on a context of its own.
func pushMetrics(rec *metrics.Recorder, cfg config.MetricsConfig, log *logging.Logger) {
	if rec == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	if err := rec.Push(ctx, cfg); err != nil {
		log.Warn("metrics push failed", "error", err)
	}
}
