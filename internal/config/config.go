package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	OutDir    string `mapstructure:"out_dir" yaml:"out_dir"`
	LogDir    string `mapstructure:"log_dir" yaml:"log_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	HistoryDB string `mapstructure:"history_db" yaml:"history_db"`

	// HTTP/Retry configuration
	UserAgent        string `mapstructure:"user_agent" yaml:"user_agent"`
	HTTPTimeoutSec   int    `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int    `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int    `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int    `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Crawling
	CrawlDelaySec float64  `mapstructure:"crawl_delay_sec" yaml:"crawl_delay_sec"`
	MaxPages      int      `mapstructure:"max_pages" yaml:"max_pages"`
	IndexPages    []string `mapstructure:"index_pages" yaml:"index_pages"`
	RobotsTargets []string `mapstructure:"robots_targets" yaml:"robots_targets"`

	// Table extraction
	UnnamedThreshold   float64 `mapstructure:"unnamed_threshold" yaml:"unnamed_threshold"`
	PromoteMaxScan     int     `mapstructure:"promote_max_scan" yaml:"promote_max_scan"`
	HeaderRows         []int   `mapstructure:"header_rows" yaml:"header_rows"`
	ExternalConverter  string  `mapstructure:"external_converter" yaml:"external_converter"`
	ExternalTimeoutSec int     `mapstructure:"external_timeout_sec" yaml:"external_timeout_sec"`
}

// Dir returns ~/.bpsloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".bpsloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.bpsloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("out_dir", "dataset")
	v.SetDefault("log_dir", "logs")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("history_db", "")
	// HTTP/retry defaults
	v.SetDefault("user_agent", "bpsloom/1.0 (+https://github.com/KaramelBytes/bpsloom-cli)")
	v.SetDefault("http_timeout_sec", 20)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	// Crawl defaults
	v.SetDefault("crawl_delay_sec", 2.0)
	v.SetDefault("max_pages", 10)
	v.SetDefault("index_pages", []string{})
	v.SetDefault("robots_targets", []string{})
	// Extraction defaults
	v.SetDefault("unnamed_threshold", 0.9)
	v.SetDefault("promote_max_scan", 20)
	v.SetDefault("header_rows", []int{6, 7, 5, 4, 0, 1, 2, 3})
	v.SetDefault("external_converter", "")
	v.SetDefault("external_timeout_sec", 120)
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (BPSLOOM_*) > config file > defaults. A .env file in the working
// directory is loaded into the environment first without overriding variables already set.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	v := viper.New()
	v.SetEnvPrefix("BPSLOOM")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !(cfgFile != "" && errors.Is(err, fs.ErrNotExist)) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.HistoryDB == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.HistoryDB = filepath.Join(dir, "history.db")
	}
	return &c, nil
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"out_dir", "log_dir", "log_level", "log_format", "history_db",
	"user_agent", "http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
	"crawl_delay_sec", "max_pages", "index_pages", "robots_targets",
	"unnamed_threshold", "promote_max_scan", "header_rows", "external_converter", "external_timeout_sec",
}

// Set parses val for key and stores it in c. List values are comma-separated.
func (c *Global) Set(key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "out_dir":
		c.OutDir = val
	case "log_dir":
		c.LogDir = val
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	case "log_format":
		switch strings.ToLower(val) {
		case "text", "json":
			c.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
	case "history_db":
		c.HistoryDB = val
	case "user_agent":
		c.UserAgent = val
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi()
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi()
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi()
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = atoi()
	case "crawl_delay_sec":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil || f < 0 {
			return fmt.Errorf("invalid float for crawl_delay_sec: %v", val)
		}
		c.CrawlDelaySec = f
	case "max_pages":
		c.MaxPages, err = atoi()
	case "index_pages":
		c.IndexPages = splitList(val)
	case "robots_targets":
		c.RobotsTargets = splitList(val)
	case "unnamed_threshold":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil || f <= 0 || f > 1 {
			return fmt.Errorf("invalid unnamed_threshold: %v (want 0 < x <= 1)", val)
		}
		c.UnnamedThreshold = f
	case "promote_max_scan":
		c.PromoteMaxScan, err = atoi()
	case "header_rows":
		var rows []int
		for _, s := range splitList(val) {
			i, perr := strconv.Atoi(s)
			if perr != nil || i < 0 {
				return fmt.Errorf("invalid header row %q", s)
			}
			rows = append(rows, i)
		}
		c.HeaderRows = rows
	case "external_converter":
		c.ExternalConverter = val
	case "external_timeout_sec":
		c.ExternalTimeoutSec, err = atoi()
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

// Get renders the value of key for display.
func (c *Global) Get(key string) string {
	switch key {
	case "out_dir":
		return c.OutDir
	case "log_dir":
		return c.LogDir
	case "log_level":
		return c.LogLevel
	case "log_format":
		return c.LogFormat
	case "history_db":
		return c.HistoryDB
	case "user_agent":
		return c.UserAgent
	case "http_timeout_sec":
		return strconv.Itoa(c.HTTPTimeoutSec)
	case "retry_max_attempts":
		return strconv.Itoa(c.RetryMaxAttempts)
	case "retry_base_delay_ms":
		return strconv.Itoa(c.RetryBaseDelayMs)
	case "retry_max_delay_ms":
		return strconv.Itoa(c.RetryMaxDelayMs)
	case "crawl_delay_sec":
		return strconv.FormatFloat(c.CrawlDelaySec, 'f', -1, 64)
	case "max_pages":
		return strconv.Itoa(c.MaxPages)
	case "index_pages":
		return strings.Join(c.IndexPages, ",")
	case "robots_targets":
		return strings.Join(c.RobotsTargets, ",")
	case "unnamed_threshold":
		return strconv.FormatFloat(c.UnnamedThreshold, 'f', -1, 64)
	case "promote_max_scan":
		return strconv.Itoa(c.PromoteMaxScan)
	case "header_rows":
		parts := make([]string, len(c.HeaderRows))
		for i, r := range c.HeaderRows {
			parts[i] = strconv.Itoa(r)
		}
		return strings.Join(parts, ",")
	case "external_converter":
		return c.ExternalConverter
	case "external_timeout_sec":
		return strconv.Itoa(c.ExternalTimeoutSec)
	}
	return ""
}

func splitList(val string) []string {
	var out []string
	for _, s := range strings.Split(val, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
