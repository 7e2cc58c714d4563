package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// CLIConfig holds command-line configuration shared by all subcommands.
type CLIConfig struct {
	ConfigPath string
	LedgerURL  string
	Bucket     string

	// Caller is the ledger identity used for submit/verify/reject.
	Caller string

	// Submit fields
	Payload      string
	MaterialType string
	Properties   string
	Institution  string

	// Record id for verify/reject/retry-index
	RecordID string

	// Filters for the list subcommand
	Query  string
	Status string

	ShowVersion bool
	ShowHelp    bool
	Validate    bool
}

// parseFlags parses the global flags and returns the subcommand name. The
// expected shape is: materium-registry <command> [options].
func parseFlags() (*CLIConfig, string, error) {
	cfg := &CLIConfig{}

	fs := flag.NewFlagSet(appName, flag.ContinueOnError)

	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("MATERIUM_CONFIG", ""),
		"Path to configuration file (env: MATERIUM_CONFIG)")

	fs.StringVar(&cfg.LedgerURL, "ledger-url", "",
		"NATS server URL, overrides config (env: MATERIUM_LEDGER_URL)")

	fs.StringVar(&cfg.Bucket, "bucket", "",
		"KV bucket name, overrides config (env: MATERIUM_LEDGER_BUCKET)")

	fs.StringVar(&cfg.Caller, "caller",
		getEnv("MATERIUM_CALLER", ""),
		"Ledger identity for writes (env: MATERIUM_CALLER)")

	fs.StringVar(&cfg.Payload, "payload", "", "Encrypted payload for submit (string or @file)")
	fs.StringVar(&cfg.MaterialType, "material-type", "", "Material type for submit")
	fs.StringVar(&cfg.Properties, "properties", "", "Material properties for submit")
	fs.StringVar(&cfg.Institution, "institution", "", "Research institution for submit")

	fs.StringVar(&cfg.RecordID, "id", "", "Record id for verify, reject and retry-index")

	fs.StringVar(&cfg.Query, "query", "", "Free-text filter for list")
	fs.StringVar(&cfg.Status, "status", "", "Status filter for list: pending, verified, rejected")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = printHelp

	if len(os.Args) < 2 {
		return cfg, "", nil
	}

	cmd := os.Args[1]
	args := os.Args[2:]
	switch cmd {
	case "-version", "--version", "-v":
		cfg.ShowVersion = true
		return cfg, "", nil
	case "-help", "--help", "-h", "help":
		cfg.ShowHelp = true
		return cfg, "", nil
	}

	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}
	return cfg, cmd, nil
}

func printHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - material research registry client

Usage: %s <command> [options]

Commands:
  list         Synchronize and print the registry view
  stats        Synchronize and print dashboard aggregates
  submit       Submit a new material record (pending)
  verify       Transition an owned pending record to verified
  reject       Transition an owned pending record to rejected
  retry-index  Re-run the index append for an orphaned record id
  daemon       Keep a projection fresh and serve metrics

Options:
`, appName, os.Args[0])

	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.String("config", "", "Path to configuration file (env: MATERIUM_CONFIG)")
	fs.String("caller", "", "Ledger identity for writes (env: MATERIUM_CALLER)")
	fs.PrintDefaults()

	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Print the registry, newest first
  %s list --ledger-url=nats://localhost:4222

  # Submit a record
  %s submit --caller=0xab... --payload=@cipher.bin \
      --material-type=Polymer --properties="Tg 105C" --institution=MIT

  # Verify an owned pending record
  %s verify --caller=0xab... --id=1700000000000-a1b2c3d

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// formatTimestamp renders a record timestamp for terminal output.
func formatTimestamp(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}
