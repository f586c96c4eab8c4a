package config

// DefaultBindAddress keeps the API on localhost.
const DefaultBindAddress = "127.0.0.1"

// DefaultPort is the default port for the HTTP API.
const DefaultPort = 7690

// DefaultLogLevel is the default log level.
const DefaultLogLevel = "info"

// DefaultDataDir is the default data directory (before tilde expansion).
const DefaultDataDir = "~/.horoscopo"

// DefaultConfigFilename is the name of the config file.
const DefaultConfigFilename = "horoscopo.toml"

// DefaultProviderTimeout is the per-attempt provider timeout in seconds.
const DefaultProviderTimeout = 15

// MinProviderTimeout and MaxProviderTimeout bound provider timeouts.
const (
	MinProviderTimeout = 1
	MaxProviderTimeout = 120
)

// DefaultReadTimeout is the default HTTP server read timeout in seconds.
const DefaultReadTimeout = 10

// DefaultWriteTimeout is the default HTTP server write timeout in seconds.
// It must cover a full failover walk.
const DefaultWriteTimeout = 120

// DefaultIdleTimeout is the default HTTP server idle timeout in seconds.
const DefaultIdleTimeout = 120

// DefaultMaxBodySize is the default maximum request body size (1 MB).
const DefaultMaxBodySize = 1 << 20

// DefaultRetentionDays is the default lookup history retention in days.
const DefaultRetentionDays = 30

// DefaultCacheTTL is the default rewrite cache TTL in seconds (one day).
const DefaultCacheTTL = 86400

// DefaultRewriteStrength is the rewrite API strength parameter.
const DefaultRewriteStrength = 3

// DefaultRewriteTimeout is the rewrite API timeout in seconds.
const DefaultRewriteTimeout = 30

// DefaultTracingExporter is the default tracing exporter type.
const DefaultTracingExporter = "otlp-grpc"

// DefaultTracingEndpoint is the default OTLP collector endpoint.
const DefaultTracingEndpoint = "localhost:4317"

// DefaultTracingServiceName is the default service name for traces.
const DefaultTracingServiceName = "horoscopo"

// ValidLogLevels lists the allowed log level values.
var ValidLogLevels = []string{"trace", "debug", "info", "warn", "error", "fatal"}

// ValidFormats lists the provider response formats.
var ValidFormats = []string{"auto", "generic", "data", "astropredict"}

// ValidExporters lists the tracing exporters.
var ValidExporters = []string{"stdout", "otlp-grpc", "otlp-http"}

// DefaultConfig returns a Config populated with all default values. It
// configures no providers.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BindAddress:  DefaultBindAddress,
			Port:         DefaultPort,
			LogLevel:     DefaultLogLevel,
			DataDir:      DefaultDataDir,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
			IdleTimeout:  DefaultIdleTimeout,
			MaxBodySize:  DefaultMaxBodySize,
		},
		Rewrite: RewriteConfig{
			Enabled:           false,
			BaseURL:           "https://rewriter-paraphraser-text-changer-multi-language.p.rapidapi.com",
			KeyRef:            "keyring://horoscopo/rewrite",
			Host:              "rewriter-paraphraser-text-changer-multi-language.p.rapidapi.com",
			Strength:          DefaultRewriteStrength,
			DefaultLanguage:   "es",
			Timeout:           DefaultRewriteTimeout,
			RequestsPerMinute: 30,
		},
		Cache: CacheConfig{
			TTLSeconds:           DefaultCacheTTL,
			MaxMemoryEntries:     1000,
			PurgeIntervalSeconds: 300,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Exporter:    DefaultTracingExporter,
			Endpoint:    DefaultTracingEndpoint,
			ServiceName: DefaultTracingServiceName,
			SampleRate:  1.0,
		},
		Metrics: MetricsConfig{
			RetentionDays: DefaultRetentionDays,
			Prometheus:    true,
		},
	}
}

// ExampleConfig is DefaultConfig plus a primary provider and two backups,
// written by init-config.
func ExampleConfig() *Config {
	cfg := DefaultConfig()
	cfg.Providers = []ProviderConfig{
		{
			Name:    "principal",
			BaseURL: "https://horoscope-app-api.vercel.app/api/v1/get-horoscope",
			KeyRef:  "keyring://horoscopo/principal",
			Path:    "daily",
			Format:  "data",
			Timeout: DefaultProviderTimeout,
		},
		{
			Name:           "respaldo-1",
			BaseURL:        "https://astropredict-daily-horoscopes-lucky-insights.p.rapidapi.com",
			KeyRef:         "env:HOROSCOPO_KEY_RESPALDO_1",
			Path:           "horoscope",
			SignParam:      "zodiac",
			TimeframeParam: "type",
			KeyHeader:      "X-RapidAPI-Key",
			HostHeader:     "astropredict-daily-horoscopes-lucky-insights.p.rapidapi.com",
			Format:         "astropredict",
			Timeout:        DefaultProviderTimeout,
			Params:         map[string]string{"timezone": "UTC"},
		},
		{
			Name:    "respaldo-2",
			BaseURL: "https://api.example-horoscope.com/v1",
			KeyRef:  "env:HOROSCOPO_KEY_RESPALDO_2",
			Format:  "generic",
			Timeout: DefaultProviderTimeout,
		},
	}
	return cfg
}
