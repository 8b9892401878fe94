package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

type LikesConfig struct {
	Cooldown     string `yaml:"cooldown"`
	PollInterval string `yaml:"poll_interval"`
	Debounce     string `yaml:"debounce"`
}

type RelayConfig struct {
	Backend  string `yaml:"backend"` // "file", "redis" or "none"
	RedisURL string `yaml:"redis_url"`
	Channel  string `yaml:"channel"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	APIURL          string      `yaml:"api_url"`
	SiteURL         string      `yaml:"site_url,omitempty"`
	RequestTimeout  string      `yaml:"request_timeout"`
	MaxRetries      int         `yaml:"max_retries"`
	DefaultCategory string      `yaml:"default_category,omitempty"`
	RefreshInterval string      `yaml:"refresh_interval"`
	Retention       string      `yaml:"retention"`
	Likes           LikesConfig `yaml:"likes"`
	Relay           RelayConfig `yaml:"relay"`
	Log             LogConfig   `yaml:"log"`
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func (c *Config) RequestTimeoutDuration() time.Duration {
	return parseDuration(c.RequestTimeout, 10*time.Second)
}

// Retries returns max_retries clamped to [0, 5].
func (c *Config) Retries() uint64 {
	switch {
	case c.MaxRetries < 0:
		return 0
	case c.MaxRetries > 5:
		return 5
	}
	return uint64(c.MaxRetries)
}

func (c *Config) RefreshDuration() time.Duration {
	return parseDuration(c.RefreshInterval, 15*time.Minute)
}

func (c *Config) RetentionDuration() time.Duration {
	if c.Retention == "" {
		return 30 * 24 * time.Hour
	}
	// Support "Nd" day syntax
	if len(c.Retention) > 1 && c.Retention[len(c.Retention)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(c.Retention, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	return parseDuration(c.Retention, 30*24*time.Hour)
}

func (c *Config) CooldownDuration() time.Duration {
	return parseDuration(c.Likes.Cooldown, 5*time.Second)
}

// PollDuration is the fallback cache polling interval; zero disables polling.
func (c *Config) PollDuration() time.Duration {
	return parseDuration(c.Likes.PollInterval, 5*time.Second)
}

func (c *Config) DebounceDuration() time.Duration {
	return parseDuration(c.Likes.Debounce, 300*time.Millisecond)
}

func (c *Config) RelayChannel() string {
	if c.Relay.Channel == "" {
		return "briefly:likes"
	}
	return c.Relay.Channel
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "briefly", "config.yaml")
}

func CachePath() string {
	return filepath.Join(xdg.CacheHome, "briefly", "briefly.db")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config at path (or the default path) on top of the embedded
// defaults, then applies BRIEFLY_* environment overrides.
func Load(path string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Non-fatal: seed the config path and run on embedded defaults
		_ = writeDefaults(path)
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BRIEFLY_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("BRIEFLY_SITE_URL"); v != "" {
		cfg.SiteURL = v
	}
	if v := os.Getenv("BRIEFLY_REDIS_URL"); v != "" {
		cfg.Relay.RedisURL = v
	}
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	u, err := url.Parse(cfg.APIURL)
	if err != nil {
		return fmt.Errorf("api_url: invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_url: scheme must be http or https, got %q", u.Scheme)
	}

	if cfg.SiteURL != "" {
		if u, err := url.Parse(cfg.SiteURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("site_url: must be an http or https url, got %q", cfg.SiteURL)
		}
	}

	for name, value := range map[string]string{
		"request_timeout":     cfg.RequestTimeout,
		"likes.cooldown":      cfg.Likes.Cooldown,
		"likes.poll_interval": cfg.Likes.PollInterval,
		"likes.debounce":      cfg.Likes.Debounce,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	switch cfg.Relay.Backend {
	case "", "file", "none":
	case "redis":
		if cfg.Relay.RedisURL == "" {
			return fmt.Errorf("relay: backend redis requires redis_url (or BRIEFLY_REDIS_URL)")
		}
	default:
		return fmt.Errorf("relay: unknown backend %q (valid: file, redis, none)", cfg.Relay.Backend)
	}

	switch cfg.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log: unknown format %q (valid: console, json)", cfg.Log.Format)
	}
	return nil
}
