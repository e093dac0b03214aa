package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// Last.fm scrobbling (enables scrobbling when configured)
	Lastfm LastfmConfig `koanf:"lastfm"`

	// Discord presence
	Discord DiscordConfig `koanf:"discord"`

	Scanner  ScannerConfig  `koanf:"scanner"`
	Matcher  MatcherConfig  `koanf:"matcher"`
	Presence PresenceConfig `koanf:"presence"`
	Scrobble ScrobbleConfig `koanf:"scrobble"`
	HTTP     HTTPConfig     `koanf:"http"`
	Notify   NotifyConfig   `koanf:"notify"`
	Log      LogConfig      `koanf:"log"`

	// Directory of plugin files imported with "rules import" when no path is given
	PluginDir string `koanf:"plugin_dir"`
}

// LastfmConfig holds Last.fm scrobbling configuration.
type LastfmConfig struct {
	APIKey     string `koanf:"api_key"`
	APISecret  string `koanf:"api_secret"`
	Scrobbling *bool  `koanf:"scrobbling"` // default: true
	Endpoint   string `koanf:"endpoint"`   // default: https://ws.audioscrobbler.com/2.0/
}

// DiscordConfig holds gateway and presence configuration.
type DiscordConfig struct {
	Enabled        *bool  `koanf:"enabled"`         // default: true
	Token          string `koanf:"token"`           // falls back to the stored token
	APIURL         string `koanf:"api_url"`         // default: https://discord.com/api/
	GatewayVersion int    `koanf:"gateway_version"` // default: 6
	ClientName     string `koanf:"client_name"`     // default: lastcord
	ActivityType   *int   `koanf:"activity_type"`   // default: 1
	PresenceFormat string `koanf:"presence_format"` // default: "{artist} - {title}"
}

// ScannerConfig holds process listing configuration.
type ScannerConfig struct {
	Interval       time.Duration `koanf:"interval"`        // default: 1s
	Command        string        `koanf:"command"`         // overrides the platform default
	Args           []string      `koanf:"args"`            // arguments for command
	Format         string        `koanf:"format"`          // "lines", "tasklist" or "wmctrl" (default: lines)
	CommandTimeout time.Duration `koanf:"command_timeout"` // default: 5s
	MPRIS          *bool         `koanf:"mpris"`           // default: true on linux
}

type MatcherConfig struct {
	Interval       time.Duration `koanf:"interval"`        // default: 1s
	ReloadInterval time.Duration `koanf:"reload_interval"` // rule store polling, default: 2s
}

type PresenceConfig struct {
	Interval time.Duration `koanf:"interval"` // default: 1s
}

// ScrobbleConfig holds the pending scrobble retry policy.
type ScrobbleConfig struct {
	RetryInterval time.Duration `koanf:"retry_interval"` // default: 5m
	MaxAttempts   int           `koanf:"max_attempts"`   // default: 10
	MaxAge        time.Duration `koanf:"max_age"`        // default: 336h
}

type HTTPConfig struct {
	Timeout time.Duration `koanf:"timeout"` // default: 10s
}

type NotifyConfig struct {
	Enabled    *bool `koanf:"enabled"`     // default: true
	OnScrobble bool  `koanf:"on_scrobble"` // default: false
}

type LogConfig struct {
	Level  string `koanf:"level"`  // "debug", "info", "warn" or "error" (default: info)
	Stderr bool   `koanf:"stderr"` // log one-shot commands to stderr ("run" always does)
	Dir    string `koanf:"dir"`    // default: $XDG_STATE_HOME/lastcord
}

const (
	DefaultLastfmEndpoint  = "https://ws.audioscrobbler.com/2.0/"
	DefaultDiscordAPIURL   = "https://discord.com/api/"
	DefaultGatewayVersion  = 6
	DefaultClientName      = "lastcord"
	DefaultActivityType    = 1
	DefaultPresenceFormat  = "{artist} - {title}"
	DefaultTickInterval    = time.Second
	DefaultReloadInterval  = 2 * time.Second
	DefaultCommandTimeout  = 5 * time.Second
	DefaultRetryInterval   = 5 * time.Minute
	DefaultMaxAttempts     = 10
	DefaultMaxAge          = 14 * 24 * time.Hour
	DefaultHTTPTimeout     = 10 * time.Second
	DefaultLogLevel        = "info"
	minTickInterval        = 100 * time.Millisecond
	minRetryInterval       = 10 * time.Second
	maxScrobbleAgeAccepted = 14 * 24 * time.Hour
)

// Load reads the default config files. Missing files are skipped.
func Load() (*Config, error) {
	return load(getConfigPaths(), false)
}

// LoadFile reads a single config file, which must exist.
func LoadFile(path string) (*Config, error) {
	return load([]string{expandPath(path)}, true)
}

func load(paths []string, strict bool) (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if strict {
				return nil, fmt.Errorf("config file %s: %w", path, err)
			}
			continue
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.PluginDir != "" {
		cfg.PluginDir = expandPath(cfg.PluginDir)
	}
	if cfg.Log.Dir != "" {
		cfg.Log.Dir = expandPath(cfg.Log.Dir)
	}
	if cfg.Scanner.Command != "" {
		cfg.Scanner.Command = expandPath(cfg.Scanner.Command)
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/lastcord/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "lastcord", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// HasLastfmConfig returns true if Last.fm API credentials are configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != ""
}

// ScrobblingEnabled reports whether scrobbles should be submitted. Without
// API credentials the agent only publishes presence.
func (c *Config) ScrobblingEnabled() bool {
	return c.HasLastfmConfig() && boolOr(c.Lastfm.Scrobbling, true)
}

// DiscordEnabled reports whether the gateway connection should be kept.
func (c *Config) DiscordEnabled() bool {
	return boolOr(c.Discord.Enabled, true)
}

// NotificationsEnabled reports whether desktop notifications are shown.
func (c *Config) NotificationsEnabled() bool {
	return boolOr(c.Notify.Enabled, true)
}

// GetLastfmConfig returns the Last.fm configuration with defaults applied.
func (c *Config) GetLastfmConfig() LastfmConfig {
	cfg := c.Lastfm
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultLastfmEndpoint
	}
	if cfg.Scrobbling == nil {
		cfg.Scrobbling = ptr(true)
	}
	return cfg
}

// GetDiscordConfig returns the Discord configuration with defaults applied.
func (c *Config) GetDiscordConfig() DiscordConfig {
	cfg := c.Discord
	if cfg.Enabled == nil {
		cfg.Enabled = ptr(true)
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultDiscordAPIURL
	}
	if !strings.HasSuffix(cfg.APIURL, "/") {
		cfg.APIURL += "/"
	}
	if cfg.GatewayVersion <= 0 {
		cfg.GatewayVersion = DefaultGatewayVersion
	}
	if cfg.ClientName == "" {
		cfg.ClientName = DefaultClientName
	}
	if cfg.ActivityType == nil || *cfg.ActivityType < 0 {
		cfg.ActivityType = ptr(DefaultActivityType)
	}
	if strings.TrimSpace(cfg.PresenceFormat) == "" {
		cfg.PresenceFormat = DefaultPresenceFormat
	}
	return cfg
}

// GetScannerConfig returns the scanner configuration with defaults applied.
func (c *Config) GetScannerConfig() ScannerConfig {
	cfg := c.Scanner
	cfg.Interval = tick(cfg.Interval)
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}
	if cfg.MPRIS == nil {
		cfg.MPRIS = ptr(runtime.GOOS == "linux")
	}
	return cfg
}

// MatcherInterval returns the matcher and engine tick interval.
func (c *Config) MatcherInterval() time.Duration {
	return tick(c.Matcher.Interval)
}

// RulesReloadInterval returns how often a running agent checks the stored
// rules for changes.
func (c *Config) RulesReloadInterval() time.Duration {
	if c.Matcher.ReloadInterval <= 0 {
		return DefaultReloadInterval
	}
	return max(c.Matcher.ReloadInterval, minTickInterval)
}

// PresenceInterval returns the presence publisher tick interval.
func (c *Config) PresenceInterval() time.Duration {
	return tick(c.Presence.Interval)
}

// GetScrobbleConfig returns the retry policy with defaults applied.
func (c *Config) GetScrobbleConfig() ScrobbleConfig {
	cfg := c.Scrobble
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.RetryInterval < minRetryInterval {
		cfg.RetryInterval = minRetryInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	// Last.fm rejects scrobbles older than two weeks
	if cfg.MaxAge <= 0 || cfg.MaxAge > maxScrobbleAgeAccepted {
		cfg.MaxAge = DefaultMaxAge
	}
	return cfg
}

// HTTPTimeout returns the timeout for every outgoing HTTP call.
func (c *Config) HTTPTimeout() time.Duration {
	if c.HTTP.Timeout <= 0 {
		return DefaultHTTPTimeout
	}
	return c.HTTP.Timeout
}

// LogLevel returns the configured level name, defaulting to info.
func (c *Config) LogLevel() string {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
		return c.Log.Level
	default:
		return DefaultLogLevel
	}
}

func tick(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTickInterval
	}
	return max(d, minTickInterval)
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func ptr[T any](v T) *T {
	return &v
}
