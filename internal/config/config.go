package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// configPtr holds the current config for thread-safe access.
var configPtr atomic.Pointer[Config]

// loadedConfigFile stores the path of the config file used by the last successful Load.
var loadedConfigFile atomic.Value

// Get returns the current Config. It is safe for concurrent use.
// If no config has been loaded yet, it returns the default config.
func Get() *Config {
	if c := configPtr.Load(); c != nil {
		return c
	}
	d := DefaultConfig()
	configPtr.Store(d)
	return d
}

func set(cfg *Config) {
	configPtr.Store(cfg)
}

// Config is the top-level configuration for horoscopo.
type Config struct {
	Server    ServerConfig     `mapstructure:"server"    toml:"server"`
	Providers []ProviderConfig `mapstructure:"providers" toml:"providers"`
	Rewrite   RewriteConfig    `mapstructure:"rewrite"   toml:"rewrite"`
	Cache     CacheConfig      `mapstructure:"cache"     toml:"cache"`
	Tracing   TracingConfig    `mapstructure:"tracing"   toml:"tracing"`
	Metrics   MetricsConfig    `mapstructure:"metrics"   toml:"metrics"`
}

// ServerConfig holds the HTTP API and process settings.
type ServerConfig struct {
	BindAddress  string `mapstructure:"bind_address"  toml:"bind_address"`
	Port         int    `mapstructure:"port"          toml:"port"`
	LogLevel     string `mapstructure:"log_level"     toml:"log_level"`
	DataDir      string `mapstructure:"data_dir"      toml:"data_dir"`
	ReadTimeout  int    `mapstructure:"read_timeout"  toml:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout" toml:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"  toml:"idle_timeout"`
	MaxBodySize  int64  `mapstructure:"max_body_size" toml:"max_body_size"`
	// AuthToken, when set, is required as a Bearer token on /v1 routes.
	AuthToken string `mapstructure:"auth_token" toml:"auth_token,omitempty"`
}

// ProviderConfig describes one horoscope source. Providers are tried in the
// order they appear in the file.
type ProviderConfig struct {
	Name           string            `mapstructure:"name"            toml:"name"`
	BaseURL        string            `mapstructure:"base_url"        toml:"base_url"`
	KeyRef         string            `mapstructure:"key_ref"         toml:"key_ref"`
	Path           string            `mapstructure:"path"            toml:"path,omitempty"`
	SignParam      string            `mapstructure:"sign_param"      toml:"sign_param,omitempty"`
	TimeframeParam string            `mapstructure:"timeframe_param" toml:"timeframe_param,omitempty"`
	KeyHeader      string            `mapstructure:"key_header"      toml:"key_header,omitempty"`
	KeyParam       string            `mapstructure:"key_param"       toml:"key_param,omitempty"`
	HostHeader     string            `mapstructure:"host_header"     toml:"host_header,omitempty"`
	Format         string            `mapstructure:"format"          toml:"format,omitempty"`
	Timeout        int               `mapstructure:"timeout"         toml:"timeout"` // seconds
	Params         map[string]string `mapstructure:"params"          toml:"params,omitempty"`
}

// Equal reports whether p and o describe the same provider.
func (p ProviderConfig) Equal(o ProviderConfig) bool {
	pp, op := p.Params, o.Params
	p.Params, o.Params = nil, nil
	return p == o && maps.Equal(pp, op)
}

// TimeoutDuration returns the provider timeout, defaulting when unset.
func (p ProviderConfig) TimeoutDuration() time.Duration {
	if p.Timeout <= 0 {
		return DefaultProviderTimeout * time.Second
	}
	return time.Duration(p.Timeout) * time.Second
}

// RewriteConfig controls the rewrite/translation API.
type RewriteConfig struct {
	Enabled           bool   `mapstructure:"enabled"             toml:"enabled"`
	BaseURL           string `mapstructure:"base_url"            toml:"base_url"`
	KeyRef            string `mapstructure:"key_ref"             toml:"key_ref"`
	Host              string `mapstructure:"host"                toml:"host"`
	Strength          int    `mapstructure:"strength"            toml:"strength"`
	DefaultLanguage   string `mapstructure:"default_language"    toml:"default_language"`
	Timeout           int    `mapstructure:"timeout"             toml:"timeout"` // seconds
	RequestsPerMinute int    `mapstructure:"requests_per_minute" toml:"requests_per_minute"`
}

// CacheConfig controls the rewrite result cache.
type CacheConfig struct {
	TTLSeconds           int `mapstructure:"ttl_seconds"            toml:"ttl_seconds"`
	MaxMemoryEntries     int `mapstructure:"max_memory_entries"     toml:"max_memory_entries"`
	PurgeIntervalSeconds int `mapstructure:"purge_interval_seconds" toml:"purge_interval_seconds"`
}

// TracingConfig controls OpenTelemetry distributed tracing.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"      toml:"enabled"`
	Exporter    string  `mapstructure:"exporter"     toml:"exporter"` // "stdout", "otlp-grpc", "otlp-http"
	Endpoint    string  `mapstructure:"endpoint"     toml:"endpoint"`
	ServiceName string  `mapstructure:"service_name" toml:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"  toml:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"     toml:"insecure"`
}

// MetricsConfig controls lookup history retention and the Prometheus
// endpoint.
type MetricsConfig struct {
	RetentionDays int  `mapstructure:"retention_days" toml:"retention_days"`
	Prometheus    bool `mapstructure:"prometheus"     toml:"prometheus"`
}

// Load reads configuration with the following precedence:
//  1. Environment variables (HOROSCOPO_ prefix, _ as separator)
//  2. The file at explicitPath if non-empty
//  3. ~/.horoscopo/horoscopo.toml
//  4. ./horoscopo.toml
//  5. Built-in defaults
//
// The provider list comes only from the file. The loaded config is
// validated and stored in the global atomic pointer.
func Load(explicitPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	setViperDefaults(v)

	v.SetEnvPrefix("HOROSCOPO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".horoscopo"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("horoscopo")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if cf := v.ConfigFileUsed(); cf != "" {
		loadedConfigFile.Store(cf)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.Server.DataDir = expandHome(cfg.Server.DataDir)
	normalize(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	set(cfg)
	return cfg, nil
}

// InitConfig writes an example configuration to ~/.horoscopo/horoscopo.toml.
// An existing file is left alone. It returns the path.
func InitConfig() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".horoscopo")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dir, DefaultConfigFilename)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := WriteFile(path, ExampleConfig()); err != nil {
		return "", err
	}
	return path, nil
}

// WriteFile marshals cfg as TOML to path.
func WriteFile(path string, cfg *Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ExportConfig writes the current config to the given path in TOML format.
func ExportConfig(path string) error {
	return WriteFile(path, Get())
}

// ImportConfig reads a TOML config file, validates it and makes it the
// current config. Nothing is written back to disk.
func ImportConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	cfg.Server.DataDir = expandHome(cfg.Server.DataDir)
	normalize(cfg)
	if err := validate(cfg); err != nil {
		return err
	}
	set(cfg)
	return nil
}

// ConfigFilePath returns the path of the config file that was loaded, or
// empty if no file was found.
func ConfigFilePath() string {
	if v, ok := loadedConfigFile.Load().(string); ok {
		return v
	}
	return ""
}

// setViperDefaults registers every scalar key so env overrides work without
// a config file. The provider list has no env form.
func setViperDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.bind_address", d.Server.BindAddress)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.log_level", d.Server.LogLevel)
	v.SetDefault("server.data_dir", d.Server.DataDir)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.max_body_size", d.Server.MaxBodySize)
	v.SetDefault("server.auth_token", d.Server.AuthToken)

	v.SetDefault("rewrite.enabled", d.Rewrite.Enabled)
	v.SetDefault("rewrite.base_url", d.Rewrite.BaseURL)
	v.SetDefault("rewrite.key_ref", d.Rewrite.KeyRef)
	v.SetDefault("rewrite.host", d.Rewrite.Host)
	v.SetDefault("rewrite.strength", d.Rewrite.Strength)
	v.SetDefault("rewrite.default_language", d.Rewrite.DefaultLanguage)
	v.SetDefault("rewrite.timeout", d.Rewrite.Timeout)
	v.SetDefault("rewrite.requests_per_minute", d.Rewrite.RequestsPerMinute)

	v.SetDefault("cache.ttl_seconds", d.Cache.TTLSeconds)
	v.SetDefault("cache.max_memory_entries", d.Cache.MaxMemoryEntries)
	v.SetDefault("cache.purge_interval_seconds", d.Cache.PurgeIntervalSeconds)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.insecure", d.Tracing.Insecure)

	v.SetDefault("metrics.retention_days", d.Metrics.RetentionDays)
	v.SetDefault("metrics.prometheus", d.Metrics.Prometheus)
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
