package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/materium/registry/config"
	"github.com/materium/registry/errors"
	"github.com/materium/registry/health"
	"github.com/materium/registry/pkg/retry"
	"github.com/materium/registry/record"
	"github.com/materium/registry/registry"
)

func dispatch(
	ctx context.Context,
	cmd string,
	engine *registry.Engine,
	monitor *health.Monitor,
	cliCfg *CLIConfig,
	cfg *config.Config,
	logger *slog.Logger,
) error {
	switch cmd {
	case "list", "sync":
		return runList(ctx, engine, cliCfg)
	case "stats":
		return runStats(ctx, engine)
	case "submit":
		return runSubmit(ctx, engine, cliCfg)
	case "verify":
		return runTransition(ctx, engine, cliCfg, record.StatusVerified)
	case "reject":
		return runTransition(ctx, engine, cliCfg, record.StatusRejected)
	case "retry-index":
		return runRetryIndex(ctx, engine, cliCfg)
	case "daemon":
		return runDaemon(ctx, engine, monitor, cfg, logger)
	default:
		return fmt.Errorf("unknown command %q, see %s --help", cmd, appName)
	}
}

func runList(ctx context.Context, engine *registry.Engine, cliCfg *CLIConfig) error {
	p, err := engine.Sync(ctx)
	if err != nil {
		return err
	}

	status := record.Status(cliCfg.Status)
	if cliCfg.Status != "" && !status.Valid() {
		return fmt.Errorf("unknown status filter %q", cliCfg.Status)
	}

	records := p.Filter(cliCfg.Query, status)
	if len(records) == 0 {
		fmt.Println("no records")
		return nil
	}

	for _, rec := range records {
		fmt.Printf("%s  %-9s  %-20s  %-20s  %s\n",
			formatTimestamp(rec.Timestamp), rec.Status, rec.MaterialType,
			rec.ResearchInstitution, rec.ID)
	}
	fmt.Printf("\n%d record(s), synced at %s\n", len(records), p.SyncedAt.UTC().Format(time.RFC3339))
	return nil
}

func runStats(ctx context.Context, engine *registry.Engine) error {
	p, err := engine.Sync(ctx)
	if err != nil {
		return err
	}

	stats := registry.Aggregate(p)
	fmt.Printf("total: %d  pending: %d  verified: %d  rejected: %d\n",
		stats.Total, stats.Pending, stats.Verified, stats.Rejected)

	if len(stats.VerifiedByType) == 0 {
		return nil
	}

	types := make([]string, 0, len(stats.VerifiedByType))
	for materialType := range stats.VerifiedByType {
		types = append(types, materialType)
	}
	sort.Strings(types)

	fmt.Println("\nverified by material type:")
	for _, materialType := range types {
		count := stats.VerifiedByType[materialType]
		bar := strings.Repeat("#", count*40/stats.MaxTypeCount)
		fmt.Printf("  %-20s %4d %s\n", materialType, count, bar)
	}
	return nil
}

func runSubmit(ctx context.Context, engine *registry.Engine, cliCfg *CLIConfig) error {
	if cliCfg.Caller == "" {
		return fmt.Errorf("submit requires --caller")
	}

	payload, err := readPayload(cliCfg.Payload)
	if err != nil {
		return err
	}

	fields := registry.SubmitFields{
		Payload:             payload,
		MaterialType:        cliCfg.MaterialType,
		Properties:          cliCfg.Properties,
		ResearchInstitution: cliCfg.Institution,
	}

	res, err := engine.Submit(ctx, cliCfg.Caller, fields, func(stage registry.Stage) {
		fmt.Printf("... %s\n", stage)
	})
	if err != nil {
		if stderrors.Is(err, errors.ErrPartialIndex) {
			fmt.Printf("record %s saved but NOT indexed\n", res.ID)
			fmt.Printf("repair with: %s retry-index --id=%s\n", appName, res.ID)
		}
		return err
	}

	fmt.Printf("submitted %s (pending)\n", res.ID)
	return nil
}

func runTransition(ctx context.Context, engine *registry.Engine, cliCfg *CLIConfig, target record.Status) error {
	if cliCfg.Caller == "" {
		return fmt.Errorf("%s requires --caller", target)
	}
	if cliCfg.RecordID == "" {
		return fmt.Errorf("%s requires --id", target)
	}

	if err := engine.Transition(ctx, cliCfg.RecordID, cliCfg.Caller, target); err != nil {
		return err
	}
	fmt.Printf("record %s is now %s\n", cliCfg.RecordID, target)
	return nil
}

func runRetryIndex(ctx context.Context, engine *registry.Engine, cliCfg *CLIConfig) error {
	if cliCfg.RecordID == "" {
		return fmt.Errorf("retry-index requires --id")
	}

	// The index append fails for transient reasons (the same reasons the
	// original submit failed), so retry it with backoff before giving up.
	retryCfg := errors.DefaultRetryConfig().ToRetryConfig()
	err := retry.Do(ctx, retryCfg, func() error {
		if err := engine.RetryIndex(ctx, cliCfg.RecordID); err != nil {
			if !errors.IsTransient(err) {
				return retry.NonRetryable(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("record %s indexed\n", cliCfg.RecordID)
	return nil
}

// runDaemon keeps the projection fresh on a fixed interval until the process
// receives SIGINT or SIGTERM. Individual failed passes are logged and the
// previous projection stays in place.
func runDaemon(ctx context.Context, engine *registry.Engine, monitor *health.Monitor, cfg *config.Config, logger *slog.Logger) error {
	interval := cfg.Engine.SyncInterval
	if interval <= 0 {
		return fmt.Errorf("daemon requires engine.sync_interval > 0")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pass := func() error {
		p, err := engine.Sync(ctx)
		if err != nil {
			logger.Warn("sync pass failed", "error", err)
			monitor.Update(health.NewDegraded("sync", err.Error()))
			if stderrors.Is(err, errors.ErrStoreUnavailable) {
				monitor.Update(health.NewUnhealthy("ledger", "ledger unavailable"))
			}
			return err
		}
		monitor.Update(health.NewHealthy("ledger", "connected"))
		monitor.Update(health.NewHealthy("sync", fmt.Sprintf("%d records", p.Len())))
		logger.Debug("sync pass complete", "records", p.Len())
		return nil
	}

	// The first pass can race ledger startup; retry transient failures with
	// backoff before settling into the ticker, and keep going either way.
	retryCfg := errors.DefaultRetryConfig()
	delay := retryCfg.InitialDelay
	for attempt := 0; ; attempt++ {
		err := pass()
		if !retryCfg.ShouldRetry(err, attempt) {
			break
		}
		logger.Debug("retrying initial sync", "attempt", attempt+1, "delay", delay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(time.Duration(float64(delay)*retryCfg.BackoffFactor), retryCfg.MaxDelay)
	}

	logger.Info("daemon running", "sync_interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping")
			return nil
		case <-ticker.C:
			// Failures are logged inside the pass; the previous
			// projection stays in place.
			_ = pass()
		}
	}
}

// readPayload resolves the --payload flag: a literal string, or the contents
// of a file when prefixed with @.
func readPayload(arg string) ([]byte, error) {
	if arg == "" {
		return nil, nil
	}
	if strings.HasPrefix(arg, "@") {
		data, err := os.ReadFile(strings.TrimPrefix(arg, "@"))
		if err != nil {
			return nil, fmt.Errorf("read payload file: %w", err)
		}
		return data, nil
	}
	return []byte(arg), nil
}
