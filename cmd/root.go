package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	cfgpkg "github.com/KaramelBytes/bpsloom-cli/internal/config"
	"github.com/KaramelBytes/bpsloom-cli/internal/crawl"
	"github.com/KaramelBytes/bpsloom-cli/internal/fetch"
	"github.com/KaramelBytes/bpsloom-cli/internal/logging"
	"github.com/KaramelBytes/bpsloom-cli/internal/parser"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	// Overrides of config values (applied only when set)
	flagLogLevel         string
	flagOutDir           string
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
	// Logger for the running command; closed after it finishes
	logger    *slog.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "bpsloom",
	Short: "bpsloom: extract monthly series from BPS Uruguay publications",
	Long: `bpsloom discovers the statistical publications of the BPS observatory, downloads the
spreadsheets behind them and normalizes them into canonical monthly CSV series, whatever
format, header position or column naming each release happens to use.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// set here to break the initialization cycle through loadConfig
	rootCmd.PersistentPreRunE = setup
	rootCmd.PersistentPostRunE = teardown

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.bpsloom/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagOutDir, "out-dir", "", "output directory (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max download attempts on 429/5xx (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

// setup loads the configuration and opens the per-command log.
func setup(cmd *cobra.Command, args []string) error {
	_ = teardown(cmd, args)
	if err := loadConfig(); err != nil {
		return err
	}
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	l, c, err := logging.Setup(level, cfg.LogFormat, cfg.LogDir, cmd.Name())
	if err != nil {
		return err
	}
	logger, logCloser = l, c
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if logCloser != nil {
		err := logCloser.Close()
		logCloser = nil
		return err
	}
	return nil
}

func loadConfig() error {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("log-level") && flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if f.Changed("out-dir") && flagOutDir != "" {
		cfg.OutDir = flagOutDir
	}
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
	return nil
}

// newClient builds the download client from the loaded configuration.
func newClient() *fetch.Client {
	return fetch.New(fetch.Config{
		UserAgent:   cfg.UserAgent,
		Timeout:     time.Duration(cfg.HTTPTimeoutSec) * time.Second,
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond,
	}, logger)
}

// readerOptions maps the extraction settings onto parser options.
func readerOptions() parser.Options {
	opt := parser.DefaultOptions()
	if len(cfg.HeaderRows) > 0 {
		opt.HeaderRows = cfg.HeaderRows
	}
	if cfg.UnnamedThreshold > 0 {
		opt.UnnamedThreshold = cfg.UnnamedThreshold
	}
	if cfg.PromoteMaxScan > 0 {
		opt.PromoteMaxScan = cfg.PromoteMaxScan
	}
	opt.ExternalConverter = cfg.ExternalConverter
	if cfg.ExternalTimeoutSec > 0 {
		opt.ExternalTimeout = time.Duration(cfg.ExternalTimeoutSec) * time.Second
	}
	opt.Logger = logger
	return opt
}

func crawlOptions() crawl.Options {
	return crawl.Options{
		Delay:    time.Duration(cfg.CrawlDelaySec * float64(time.Second)),
		MaxPages: cfg.MaxPages,
		Logger:   logger,
	}
}
