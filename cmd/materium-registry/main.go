// Package main implements the materium-registry command line tool: a client
// for the material research registry kept in a NATS JetStream KV bucket.
// It can scan the registry, submit new records, verify or reject pending
// records, repair orphaned records and run as a daemon that keeps a local
// projection fresh.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/materium/registry/config"
	"github.com/materium/registry/errors"
	"github.com/materium/registry/health"
	"github.com/materium/registry/ledger"
	"github.com/materium/registry/metric"
	"github.com/materium/registry/registry"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "materium-registry"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("command failed", "error", err, "class", errors.Classify(err))
		os.Exit(1)
	}
}

func run() error {
	cliCfg, cmd, err := parseFlags()
	if err != nil {
		return err
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s (build %s)\n", appName, Version, BuildTime)
		return nil
	}
	if cmd == "" || cliCfg.ShowHelp {
		printHelp()
		return nil
	}

	cfg, err := loadConfig(cliCfg)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	if cliCfg.Validate {
		logger.Info("configuration is valid", "config_path", cliCfg.ConfigPath)
		return nil
	}

	ctx := context.Background()
	led, err := openLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = led.Close() }()

	monitor := health.NewMonitor()
	engine, metricsServer, err := buildEngine(led, cfg, monitor, logger)
	if err != nil {
		return err
	}
	if metricsServer != nil {
		defer func() { _ = metricsServer.Stop(ctx) }()
	}

	return dispatch(ctx, cmd, engine, monitor, cliCfg, cfg, logger)
}

// loadConfig layers the optional config file over defaults.
func loadConfig(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cliCfg.ConfigPath != "" {
		loader.AddLayer(cliCfg.ConfigPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Connection flags win over file and environment
	if cliCfg.LedgerURL != "" {
		cfg.Ledger.URL = cliCfg.LedgerURL
	}
	if cliCfg.Bucket != "" {
		cfg.Ledger.Bucket = cliCfg.Bucket
	}
	return cfg, nil
}

func openLedger(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*ledger.NATSLedger, error) {
	opts := []ledger.NATSOption{
		ledger.WithTimeout(cfg.Ledger.Timeout),
		ledger.WithReconnect(cfg.Ledger.ReconnectWait, cfg.Ledger.MaxReconnects),
		ledger.WithLogger(logger),
	}
	if cfg.Ledger.Username != "" {
		opts = append(opts, ledger.WithUserInfo(cfg.Ledger.Username, cfg.Ledger.Password))
	}
	if cfg.Ledger.Token != "" {
		opts = append(opts, ledger.WithToken(cfg.Ledger.Token))
	}

	led, err := ledger.OpenNATS(ctx, cfg.Ledger.URL, cfg.Ledger.Bucket, opts...)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return led, nil
}

// buildEngine assembles the engine and, when enabled, the metrics and
// health endpoints.
func buildEngine(led ledger.Client, cfg *config.Config, monitor *health.Monitor, logger *slog.Logger) (*registry.Engine, *metric.Server, error) {
	engineOpts := []registry.Option{
		registry.WithFanout(cfg.Engine.Fanout),
		registry.WithLogger(logger),
	}

	var metricsServer *metric.Server
	if cfg.Metrics.Enabled {
		metricsRegistry := metric.NewRegistry()
		metrics, err := registry.NewMetrics(metricsRegistry)
		if err != nil {
			return nil, nil, fmt.Errorf("register metrics: %w", err)
		}
		engineOpts = append(engineOpts, registry.WithMetrics(metrics))

		metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, metricsRegistry)
		metricsServer.SetLogger(logger)
		metricsServer.Mount("/healthz", health.Handler(monitor, appName))
		if err := metricsServer.Start(); err != nil {
			return nil, nil, fmt.Errorf("start metrics server: %w", err)
		}
		logger.Info("metrics endpoint up", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
	}

	return registry.New(led, engineOpts...), metricsServer, nil
}
