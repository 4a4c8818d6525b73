// cmd/maskd/serve.go
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/maskd/internal/config"
	"github.com/fyrsmithlabs/maskd/internal/logging"
	"github.com/fyrsmithlabs/maskd/internal/server"
	"github.com/fyrsmithlabs/maskd/internal/telemetry"
	"github.com/fyrsmithlabs/maskd/pkg/masker"
)

var serveProjectPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the maskd HTTP sidecar",
	Long: `Start the maskd daemon: an HTTP sidecar that masks secrets on behalf
of other local processes.

Examples:
  # Start with defaults
  maskd serve

  # Custom config and project allowlist
  maskd serve --config /etc/maskd/config.yaml --project /srv/app`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveProjectPath, "project", "", "project directory containing "+masker.ProjectAllowlistFile)
}

// checkServeEngine rejects engines that cannot take registration from the
// HTTP surface. The legacy engine is single-writer with no internal lock,
// so a registration request racing an in-flight scan could fault the
// process.
func checkServeEngine(cfg *config.Config) error {
	if cfg.Masker.Engine == masker.EngineLegacy {
		return fmt.Errorf("engine %q does not support concurrent registration; use engine %q with serve",
			masker.EngineLegacy, masker.EngineModern)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := checkServeEngine(cfg); err != nil {
		return err
	}

	// Merge allowlist files into the engine config before construction.
	allow, err := masker.LoadAllowlists(serveProjectPath, cfg.Allowlist.UserPath)
	if err != nil {
		return fmt.Errorf("loading allowlists: %w", err)
	}
	cfg.Masker.AllowList = append(cfg.Masker.AllowList, allow.Regexes...)

	engine, err := masker.New(&cfg.Masker)
	if err != nil {
		return fmt.Errorf("creating masking engine: %w", err)
	}
	logged := masker.NewLogged(engine)
	defer func() { _ = logged.Close() }()

	for _, secret := range cfg.Secrets {
		logged.AddValue(secret.Value(), "config")
	}

	// Telemetry before logging: the logger can bridge to the OTEL provider.
	telCfg := telemetry.NewDefaultConfig()
	telCfg.Enabled = cfg.Observability.EnableTelemetry
	telCfg.Endpoint = cfg.Observability.Endpoint
	telCfg.ServiceName = cfg.Observability.ServiceName
	tel, err := telemetry.New(ctx, telCfg)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() { _ = tel.Shutdown(context.Background()) }()

	logCfg := logging.NewDefaultConfig()
	logCfg.Format = cfg.Observability.LogFormat
	level, err := logging.LevelFromString(cfg.Observability.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	logCfg.Level = level

	logger, err := logging.NewLogger(logCfg, logged, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// Registration diagnostics flow to the trace level.
	logged.SetTrace(logging.TraceSink(logger))

	// Aggregate scan accounting, published periodically as OTel metrics.
	pub, err := telemetry.NewPublisher(tel)
	if err != nil {
		return fmt.Errorf("creating telemetry publisher: %w", err)
	}
	agg := &masker.Aggregator{}
	agg.Start(cfg.Reporting.MaxUniqueCorrelatingIDs)
	masker.AttachTelemetry(engine, agg)

	go func() {
		ticker := time.NewTicker(cfg.Reporting.PublishInterval.Duration())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				agg.StopAndPublish(pub.Publish, cfg.Reporting.MaxIDsPerEvent)
				agg.Start(cfg.Reporting.MaxUniqueCorrelatingIDs)
			}
		}
	}()

	srv, err := server.NewServer(logged, logger, &cfg.Server)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info(ctx, "maskd started",
		zap.Int("port", cfg.Server.Port),
		zap.String("engine", string(cfg.Masker.Engine)),
		zap.Bool("telemetry", tel.IsEnabled()),
	)

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "server shutdown failed", zap.Error(err))
	}

	// Final publish of whatever the last window accumulated.
	agg.StopAndPublish(pub.Publish, cfg.Reporting.MaxIDsPerEvent)
	_ = tel.ForceFlush(shutdownCtx)

	return nil
}
