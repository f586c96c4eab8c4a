package config

import (
	"fmt"
	"net/url"
	"strings"
)

// normalize canonicalises enum-like fields so the packages that consume
// them can match exactly. It runs before validate.
func normalize(cfg *Config) {
	cfg.Server.LogLevel = strings.ToLower(strings.TrimSpace(cfg.Server.LogLevel))
	cfg.Tracing.Exporter = strings.ToLower(strings.TrimSpace(cfg.Tracing.Exporter))
	for i := range cfg.Providers {
		cfg.Providers[i].Format = strings.ToLower(strings.TrimSpace(cfg.Providers[i].Format))
	}
}

// validate checks the Config for invalid or out-of-range values.
// It returns a combined error if any checks fail.
func validate(cfg *Config) error {
	var errs []string

	// Server validation
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be between 1 and 65535, got %d", cfg.Server.Port))
	}
	if !isValidEnum(cfg.Server.LogLevel, ValidLogLevels) {
		errs = append(errs, fmt.Sprintf("server.log_level must be one of %v, got %q", ValidLogLevels, cfg.Server.LogLevel))
	}
	if cfg.Server.DataDir == "" {
		errs = append(errs, "server.data_dir must not be empty")
	}
	if cfg.Server.ReadTimeout < 0 {
		errs = append(errs, fmt.Sprintf("server.read_timeout must be non-negative, got %d", cfg.Server.ReadTimeout))
	}
	if cfg.Server.WriteTimeout < 0 {
		errs = append(errs, fmt.Sprintf("server.write_timeout must be non-negative, got %d", cfg.Server.WriteTimeout))
	}
	if cfg.Server.IdleTimeout < 0 {
		errs = append(errs, fmt.Sprintf("server.idle_timeout must be non-negative, got %d", cfg.Server.IdleTimeout))
	}
	if cfg.Server.MaxBodySize < 0 {
		errs = append(errs, fmt.Sprintf("server.max_body_size must be non-negative, got %d", cfg.Server.MaxBodySize))
	}

	// Provider validation. Order matters, so entries are reported by index.
	seen := make(map[string]int, len(cfg.Providers))
	for i, p := range cfg.Providers {
		field := fmt.Sprintf("providers[%d]", i)
		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, field+".name must not be empty")
		} else if prev, dup := seen[p.Name]; dup {
			errs = append(errs, fmt.Sprintf("%s.name %q duplicates providers[%d]", field, p.Name, prev))
		} else {
			seen[p.Name] = i
		}
		if msg := checkURL(p.BaseURL); msg != "" {
			errs = append(errs, fmt.Sprintf("%s.base_url %s", field, msg))
		}
		if p.Format != "" && !isValidEnum(p.Format, ValidFormats) {
			errs = append(errs, fmt.Sprintf("%s.format must be one of %v, got %q", field, ValidFormats, p.Format))
		}
		if p.Timeout != 0 && (p.Timeout < MinProviderTimeout || p.Timeout > MaxProviderTimeout) {
			errs = append(errs, fmt.Sprintf("%s.timeout must be between %d and %d seconds, got %d",
				field, MinProviderTimeout, MaxProviderTimeout, p.Timeout))
		}
		if p.TimeframeParam != "" && p.TimeframeParam == p.SignParam {
			errs = append(errs, fmt.Sprintf("%s: timeframe_param and sign_param must differ, both %q", field, p.SignParam))
		}
		if p.KeyHeader != "" && p.KeyParam != "" {
			errs = append(errs, field+": key_header and key_param are mutually exclusive")
		}
	}

	// Rewrite validation
	if cfg.Rewrite.Enabled {
		if msg := checkURL(cfg.Rewrite.BaseURL); msg != "" {
			errs = append(errs, "rewrite.base_url "+msg)
		}
		if cfg.Rewrite.KeyRef == "" {
			errs = append(errs, "rewrite.key_ref must be set when rewrite.enabled is true")
		}
	}
	if cfg.Rewrite.Strength < 0 {
		errs = append(errs, fmt.Sprintf("rewrite.strength must be non-negative, got %d", cfg.Rewrite.Strength))
	}
	if cfg.Rewrite.Timeout < 0 {
		errs = append(errs, fmt.Sprintf("rewrite.timeout must be non-negative, got %d", cfg.Rewrite.Timeout))
	}
	if cfg.Rewrite.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Sprintf("rewrite.requests_per_minute must be non-negative, got %d", cfg.Rewrite.RequestsPerMinute))
	}

	// Cache validation
	if cfg.Cache.TTLSeconds < 0 {
		errs = append(errs, fmt.Sprintf("cache.ttl_seconds must be non-negative, got %d", cfg.Cache.TTLSeconds))
	}
	if cfg.Cache.MaxMemoryEntries < 1 {
		errs = append(errs, fmt.Sprintf("cache.max_memory_entries must be at least 1, got %d", cfg.Cache.MaxMemoryEntries))
	}
	if cfg.Cache.PurgeIntervalSeconds < 0 {
		errs = append(errs, fmt.Sprintf("cache.purge_interval_seconds must be non-negative, got %d", cfg.Cache.PurgeIntervalSeconds))
	}

	// Tracing validation
	if cfg.Tracing.Enabled {
		if !isValidEnum(cfg.Tracing.Exporter, ValidExporters) {
			errs = append(errs, fmt.Sprintf("tracing.exporter must be one of %v, got %q", ValidExporters, cfg.Tracing.Exporter))
		}
		if cfg.Tracing.ServiceName == "" {
			errs = append(errs, "tracing.service_name must not be empty when tracing is enabled")
		}
	}
	if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Sprintf("tracing.sample_rate must be between 0 and 1, got %f", cfg.Tracing.SampleRate))
	}

	// Metrics validation
	if cfg.Metrics.RetentionDays < 1 {
		errs = append(errs, fmt.Sprintf("metrics.retention_days must be at least 1, got %d", cfg.Metrics.RetentionDays))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// checkURL returns a problem description for raw, or "" if it is a usable
// http(s) URL.
func checkURL(raw string) string {
	if raw == "" {
		return "must not be empty"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("is not a valid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Sprintf("must use http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Sprintf("has no host: %q", raw)
	}
	return ""
}

// isValidEnum returns true if val is in the allowed list (case-insensitive).
func isValidEnum(val string, allowed []string) bool {
	lower := strings.ToLower(val)
	for _, a := range allowed {
		if strings.ToLower(a) == lower {
			return true
		}
	}
	return false
}
