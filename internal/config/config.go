// Package config loads settings from TOML files, the environment and flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultBaseURL   = "http://127.0.0.1:8000"
	DefaultTimeout   = 10 * time.Second
	DefaultBannerTTL = 3 * time.Second
	DefaultTheme     = "classic"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	// ProjectConfigFile is looked up in the working directory.
	ProjectConfigFile = ".todo.toml"
)

// Config holds every runtime setting.
type Config struct {
	BaseURL   string        `toml:"base_url"`
	Timeout   time.Duration `toml:"timeout"`
	BannerTTL time.Duration `toml:"banner_ttl"`
	Theme     string        `toml:"theme"`
	LogFile   string        `toml:"log_file"` // "-" means stderr
	LogLevel  string        `toml:"log_level"`
	LogFormat string        `toml:"log_format"`

	// ConfigFiles lists the files that were read, lowest priority first.
	ConfigFiles []string `toml:"-"`
}

// Load builds a Config in priority order:
// 1. Defaults
// 2. User config file ($TODO_CONFIG or <UserConfigDir>/todo/config.toml)
// 3. Project config file (.todo.toml in the working directory)
// 4. Environment variables
// 5. Flags registered on fs and parsed from args
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if p := findUserConfigFile(); p != "" {
		if err := loadConfigFile(cfg, p); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", p, err)
		}
	}
	if p := findProjectConfigFile(); p != "" {
		if err := loadConfigFile(cfg, p); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", p, err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if fs != nil {
		registerFlags(fs, cfg)
		if err := fs.Parse(args); err != nil {
			return nil, fmt.Errorf("parsing flags: %w", err)
		}
	}

	if err := finalizeConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.BaseURL = DefaultBaseURL
	cfg.Timeout = DefaultTimeout
	cfg.BannerTTL = DefaultBannerTTL
	cfg.Theme = DefaultTheme
	cfg.LogFile = DefaultLogFile()
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat
}

// DefaultLogFile keeps logs out of the terminal the TUI draws on.
func DefaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "-"
	}
	return filepath.Join(dir, "todo", "todo.log")
}

func findUserConfigFile() string {
	if p := strings.TrimSpace(os.Getenv("TODO_CONFIG")); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(dir, "todo", "config.toml")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

func findProjectConfigFile() string {
	if _, err := os.Stat(ProjectConfigFile); err == nil {
		return ProjectConfigFile
	}
	return ""
}

func loadConfigFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	cfg.ConfigFiles = append(cfg.ConfigFiles, path)
	return nil
}

func loadFromEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = d
		return nil
	}

	str("TODO_API_URL", &cfg.BaseURL)
	str("TODO_THEME", &cfg.Theme)
	str("TODO_LOG_FILE", &cfg.LogFile)
	str("TODO_LOG_LEVEL", &cfg.LogLevel)
	str("TODO_LOG_FORMAT", &cfg.LogFormat)
	return errors.Join(
		dur("TODO_TIMEOUT", &cfg.Timeout),
		dur("TODO_BANNER_TTL", &cfg.BannerTTL),
	)
}

func registerFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.BaseURL, "api", cfg.BaseURL, "base URL of the todo API")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-request timeout")
	fs.DurationVar(&cfg.BannerTTL, "banner-ttl", cfg.BannerTTL, "how long status banners stay visible")
	fs.StringVar(&cfg.Theme, "theme", cfg.Theme, "color theme: classic, neon or mono")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file path, - for stderr")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text, json or logfmt")
}

func finalizeConfig(cfg *Config) error {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url %q: must be an absolute http(s) URL", cfg.BaseURL)
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", cfg.Timeout)
	}
	if cfg.BannerTTL <= 0 {
		return fmt.Errorf("banner_ttl must be positive, got %s", cfg.BannerTTL)
	}

	cfg.Theme = strings.ToLower(strings.TrimSpace(cfg.Theme))
	switch cfg.Theme {
	case "classic", "neon", "mono":
	default:
		return fmt.Errorf("theme %q: want classic, neon or mono", cfg.Theme)
	}

	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch cfg.LogFormat {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("log_format %q: want text, json or logfmt", cfg.LogFormat)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogFile == "" {
		cfg.LogFile = "-"
	}
	return nil
}
